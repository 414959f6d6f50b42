package bankxatm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SeedCustomer is a customer registered when a binary starts, for demos and
// local testing. A nil Balance uses the ledger's opening balance.
type SeedCustomer struct {
	Username string           `yaml:"username"`
	Password string           `yaml:"password"`
	Balance  *decimal.Decimal `yaml:"balance"`
}

func SeedLedger(l *Ledger, customers []SeedCustomer) error {
	for _, c := range customers {
		var err error
		if c.Balance != nil {
			err = l.RegisterWithBalance(c.Username, c.Password, *c.Balance)
		} else {
			err = l.Register(c.Username, c.Password)
		}
		if err != nil {
			return fmt.Errorf("seeding customer %q: %w", c.Username, err)
		}
	}
	return nil
}
