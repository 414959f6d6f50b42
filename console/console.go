// Package console is a terminal front end for the ATM. It drives a
// bankxatm.Service through a welcome screen for login and registration and
// an ATM menu once logged in.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arhyth/bankxatm"
)

var errQuit = errors.New("quit")

type line struct {
	text string
	err  error
}

type Options struct {
	Currency string
	Counter  Counter
	Log      *zerolog.Logger
}

type session struct {
	handle   bankxatm.Handle
	username string
}

type Console struct {
	svc      bankxatm.Service
	prefs    bankxatm.Preferences
	in       *bufio.Scanner
	out      io.Writer
	counter  Counter
	currency string
	log      *zerolog.Logger
	session  *session

	lines chan line
	done  chan struct{}
}

func New(svc bankxatm.Service, prefs bankxatm.Preferences, in io.Reader, out io.Writer, opts Options) *Console {
	log := opts.Log
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Console{
		svc:      svc,
		prefs:    prefs,
		in:       bufio.NewScanner(in),
		out:      out,
		counter:  opts.Counter,
		currency: opts.Currency,
		log:      log,
		lines:    make(chan line),
		done:     make(chan struct{}),
	}
}

// Run serves screens until the user quits, the input ends or ctx is done.
// An open session is logged out in every case. Run must be called once.
func (c *Console) Run(ctx context.Context) error {
	defer close(c.done)
	go c.scan()

	c.println("Welcome to the Dynamic ATM!")
	for {
		err := ctx.Err()
		if err == nil {
			if c.session == nil {
				err = c.welcome(ctx)
			} else {
				err = c.atm(ctx)
			}
		}
		if err == nil {
			continue
		}
		if c.session != nil {
			c.logout()
		}
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}

// scan feeds input lines to readLine until the input ends or Run returns.
func (c *Console) scan() {
	for c.in.Scan() {
		select {
		case c.lines <- line{text: strings.TrimRight(c.in.Text(), "\r")}:
		case <-c.done:
			return
		}
	}
	err := c.in.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case c.lines <- line{err: err}:
	case <-c.done:
	}
}

func (c *Console) welcome(ctx context.Context) error {
	c.println("")
	c.println("1) Login  2) Register  3) Quit")
	choice, err := c.readLine(ctx, "> ")
	if err != nil {
		return err
	}
	switch strings.TrimSpace(choice) {
	case "1":
		return c.login(ctx)
	case "2":
		return c.register(ctx)
	case "3", "q":
		return errQuit
	default:
		c.println("Unknown option.")
		return nil
	}
}

func (c *Console) atm(ctx context.Context) error {
	c.println("")
	c.println("1) Withdraw  2) Deposit  3) Check Balance  4) Transaction History  5) Logout")
	choice, err := c.readLine(ctx, "> ")
	if err != nil {
		return err
	}
	switch strings.TrimSpace(choice) {
	case "1":
		return c.charge(ctx, bankxatm.KindWithdraw)
	case "2":
		return c.charge(ctx, bankxatm.KindDeposit)
	case "3":
		return c.balance(ctx)
	case "4":
		return c.history()
	case "5":
		c.logout()
		return nil
	default:
		c.println("Unknown option.")
		return nil
	}
}

func (c *Console) credentials(ctx context.Context) (string, string, error) {
	last := c.prefs.Get(bankxatm.PrefLastUsername, "")
	prompt := "Username: "
	if last != "" {
		prompt = fmt.Sprintf("Username [%s]: ", last)
	}
	username, err := c.readLine(ctx, prompt)
	if err != nil {
		return "", "", err
	}
	if username == "" {
		username = last
	}
	password, err := c.readLine(ctx, "Password: ")
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

func (c *Console) login(ctx context.Context) error {
	username, password, err := c.credentials(ctx)
	if err != nil {
		return err
	}
	h, err := c.svc.Login(bankxatm.LoginReq{Username: username, Password: password})
	switch {
	case err == nil:
	case errors.Is(err, bankxatm.ErrBadCredential), errors.As(err, &bankxatm.ErrNotFound{}):
		c.println("Invalid username or password.")
		return nil
	default:
		c.printf("Login failed: %v\n", err)
		return nil
	}

	c.session = &session{handle: h, username: username}
	if err = c.prefs.Put(bankxatm.PrefLastUsername, username); err != nil {
		c.log.Warn().Err(err).Msg("error saving last username")
	}
	c.printf("Welcome back, %s!\n", username)
	return nil
}

func (c *Console) register(ctx context.Context) error {
	username, password, err := c.credentials(ctx)
	if err != nil {
		return err
	}
	err = c.svc.Register(bankxatm.RegisterReq{Username: username, Password: password})
	switch {
	case err == nil:
		c.println("Registration successful!")
	case errors.Is(err, bankxatm.ErrEmptyCredential):
		c.println("Please enter both username and password.")
	case errors.Is(err, bankxatm.ErrDuplicateUsername):
		c.println("Username already exists.")
	default:
		c.printf("Registration failed: %v\n", err)
	}
	return nil
}

func (c *Console) charge(ctx context.Context, kind bankxatm.Kind) error {
	input, err := c.readLine(ctx, "Enter amount: ")
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil || !amount.IsPositive() {
		c.println("Invalid or negative amount.")
		return nil
	}

	req := bankxatm.ChargeReq{Amount: amount, Handle: c.session.handle}
	var bal *decimal.Decimal
	if kind == bankxatm.KindDeposit {
		bal, err = c.svc.Deposit(req)
	} else {
		bal, err = c.svc.Withdraw(req)
	}
	if err != nil {
		c.reportError(err)
		return nil
	}

	verb := "Deposit"
	if kind == bankxatm.KindWithdraw {
		verb = "Withdraw"
	}
	c.printf("%s: %s%s\n", verb, c.currency, amount.StringFixed(2))
	c.printf("Balance: %s %s\n", c.currency, bal.StringFixed(2))
	return nil
}

func (c *Console) balance(ctx context.Context) error {
	bal, err := c.svc.Balance(bankxatm.BalanceReq{Handle: c.session.handle})
	if err != nil {
		c.reportError(err)
		return nil
	}
	return c.counter.Play(ctx, c.out, *bal, func(d decimal.Decimal) string {
		return fmt.Sprintf("Balance: %s %s", c.currency, d.StringFixed(2))
	})
}

func (c *Console) history() error {
	recs, err := c.svc.History(bankxatm.HistoryReq{Handle: c.session.handle})
	if err != nil {
		c.reportError(err)
		return nil
	}
	c.println("Transaction History:")
	if len(recs) == 0 {
		c.println("No transactions yet.")
	}
	for _, r := range recs {
		c.println(r.Describe(c.currency))
	}
	return nil
}

func (c *Console) logout() {
	if err := c.svc.Logout(bankxatm.LogoutReq{Handle: c.session.handle}); err != nil {
		c.log.Debug().Err(err).Msg("logout of an expired session")
	}
	c.session = nil
}

func (c *Console) reportError(err error) {
	switch {
	case errors.Is(err, bankxatm.ErrInsufficientFunds):
		c.println("Insufficient funds.")
	case errors.Is(err, bankxatm.ErrInvalidAmount):
		c.println("Invalid or negative amount.")
	case errors.Is(err, bankxatm.ErrNotAuthenticated):
		c.session = nil
		c.println("Please log in first.")
	default:
		c.printf("Error: %v\n", err)
	}
}

func (c *Console) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-c.lines:
		return l.text, l.err
	}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
