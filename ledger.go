package bankxatm

import (
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DefaultOpeningBalance is credited to a new account unless the ledger or the
// caller overrides it.
var DefaultOpeningBalance = decimal.NewFromInt(60)

type account struct {
	username string
	digest   string
	balance  decimal.Decimal
	history  []Record
}

// Handle is an authenticated reference to one account. It stays valid until
// Logout is called with it.
type Handle snowflake.ID

func (h Handle) String() string {
	return snowflake.ID(h).String()
}

func ParseHandle(s string) (Handle, error) {
	id, err := snowflake.ParseString(s)
	if err != nil {
		return 0, ErrNotAuthenticated
	}
	return Handle(id), nil
}

// AccountSnapshot is a read-only copy of an account.
type AccountSnapshot struct {
	Username string
	Balance  decimal.Decimal
	History  []Record
}

// Ledger owns every customer account. All operations hold one mutex for their
// whole duration, so none of them observes another half done.
type Ledger struct {
	mu       sync.Mutex
	node     *snowflake.Node
	opening  decimal.Decimal
	accts    map[string]*account
	sessions map[Handle]*account
}

func NewLedger(node *snowflake.Node, openingBalance decimal.Decimal) *Ledger {
	return &Ledger{
		node:     node,
		opening:  openingBalance,
		accts:    make(map[string]*account),
		sessions: make(map[Handle]*account),
	}
}

func (l *Ledger) Register(username, password string) error {
	return l.RegisterWithBalance(username, password, l.opening)
}

func (l *Ledger) RegisterWithBalance(username, password string, opening decimal.Decimal) error {
	if blank(username) || blank(password) {
		return ErrEmptyCredential
	}
	if opening.IsNegative() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accts[username]; ok {
		return ErrDuplicateUsername
	}
	l.accts[username] = &account{
		username: username,
		digest:   Digest(password),
		balance:  opening,
	}
	return nil
}

func (l *Ledger) Authenticate(username, password string) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accts[username]
	if !ok {
		return 0, ErrNotFound{Username: username}
	}
	if !digestMatches(password, a.digest) {
		return 0, ErrBadCredential
	}
	h := Handle(l.node.Generate())
	l.sessions[h] = a
	return h, nil
}

func (l *Ledger) Logout(h Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[h]; !ok {
		return ErrNotAuthenticated
	}
	delete(l.sessions, h)
	return nil
}

func (l *Ledger) Deposit(h Handle, amount decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.sessions[h]
	if !ok {
		return decimal.Zero, ErrNotAuthenticated
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	a.balance = a.balance.Add(amount)
	l.appendRecord(a, KindDeposit, decimal.NewNullDecimal(amount))
	return a.balance, nil
}

func (l *Ledger) Withdraw(h Handle, amount decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.sessions[h]
	if !ok {
		return decimal.Zero, ErrNotAuthenticated
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.GreaterThan(a.balance) {
		return decimal.Zero, ErrInsufficientFunds
	}
	a.balance = a.balance.Sub(amount)
	l.appendRecord(a, KindWithdraw, decimal.NewNullDecimal(amount))
	return a.balance, nil
}

// CheckBalance returns the current balance. Every call is recorded in the
// account history.
func (l *Ledger) CheckBalance(h Handle) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.sessions[h]
	if !ok {
		return decimal.Zero, ErrNotAuthenticated
	}
	l.appendRecord(a, KindBalanceCheck, decimal.NullDecimal{})
	return a.balance, nil
}

func (l *Ledger) History(h Handle) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.sessions[h]
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return copyRecords(a.history), nil
}

// Snapshot copies the account behind h without recording anything.
func (l *Ledger) Snapshot(h Handle) (*AccountSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.sessions[h]
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return &AccountSnapshot{
		Username: a.username,
		Balance:  a.balance,
		History:  copyRecords(a.history),
	}, nil
}

// appendRecord must be called with l.mu held and after the balance change.
func (l *Ledger) appendRecord(a *account, kind Kind, amount decimal.NullDecimal) {
	a.history = append(a.history, Record{
		ID:      l.node.Generate(),
		Kind:    kind,
		Amount:  amount,
		Balance: decimal.NewNullDecimal(a.balance),
		At:      time.Now().UTC(),
	})
}

func copyRecords(in []Record) []Record {
	out := make([]Record, len(in))
	copy(out, in)
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
