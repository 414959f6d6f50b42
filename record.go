package bankxatm

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDeposit      Kind = "deposit"
	KindWithdraw     Kind = "withdraw"
	KindBalanceCheck Kind = "balance_check"
)

// Record is one entry of an account's transaction history. Balance is the
// account balance right after the entry was appended.
type Record struct {
	ID      snowflake.ID        `json:"id"`
	Kind    Kind                `json:"kind"`
	Amount  decimal.NullDecimal `json:"amount"`
	Balance decimal.NullDecimal `json:"balance"`
	At      time.Time           `json:"at"`
}

// Describe renders the record the way the ATM screens print it.
func (r Record) Describe(currency string) string {
	switch r.Kind {
	case KindDeposit:
		return fmt.Sprintf("Deposited %s%s", currency, r.Amount.Decimal.StringFixed(2))
	case KindWithdraw:
		return fmt.Sprintf("Withdrew %s%s", currency, r.Amount.Decimal.StringFixed(2))
	case KindBalanceCheck:
		return fmt.Sprintf("Checked Balance: %s%s", currency, r.Balance.Decimal.StringFixed(2))
	default:
		return string(r.Kind)
	}
}
