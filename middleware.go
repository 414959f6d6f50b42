package bankxatm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
)

type Middleware func(Service) Service

// Chain wraps svc so that the first middleware is the outermost.
func Chain(svc Service, mws ...Middleware) Service {
	for i := len(mws) - 1; i >= 0; i-- {
		svc = mws[i](svc)
	}
	return svc
}

//
// Request validation
//

var (
	_ Service = (*validationMiddleware)(nil)

	notBlank = validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New("cannot be blank")
		}
		return nil
	})

	positiveAmount = validation.By(func(value interface{}) error {
		d, ok := value.(decimal.Decimal)
		if !ok || !d.IsPositive() {
			return errors.New("must be greater than zero")
		}
		return nil
	})

	nonNegativeAmount = validation.By(func(value interface{}) error {
		d, ok := value.(*decimal.Decimal)
		if ok && d != nil && d.IsNegative() {
			return errors.New("cannot be negative")
		}
		return nil
	})
)

// validationMiddleware rejects malformed requests before they reach the
// ledger. The returned ErrBadRequest unwraps to the matching domain error.
type validationMiddleware struct {
	next Service
}

func NewValidationMiddleware() Middleware {
	return func(svc Service) Service {
		return &validationMiddleware{next: svc}
	}
}

func (v *validationMiddleware) Register(req RegisterReq) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Username, notBlank),
		validation.Field(&req.Password, notBlank),
	)
	if err != nil {
		return badRequest(err, ErrEmptyCredential)
	}
	err = validation.ValidateStruct(&req,
		validation.Field(&req.OpeningBalance, nonNegativeAmount),
	)
	if err != nil {
		return badRequest(err, ErrInvalidAmount)
	}
	return v.next.Register(req)
}

func (v *validationMiddleware) Login(req LoginReq) (Handle, error) {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Username, notBlank),
		validation.Field(&req.Password, notBlank),
	)
	if err != nil {
		return 0, badRequest(err, ErrBadCredential)
	}
	return v.next.Login(req)
}

func (v *validationMiddleware) Logout(req LogoutReq) error {
	return v.next.Logout(req)
}

func (v *validationMiddleware) Deposit(req ChargeReq) (*decimal.Decimal, error) {
	if err := validateCharge(&req); err != nil {
		return nil, err
	}
	return v.next.Deposit(req)
}

func (v *validationMiddleware) Withdraw(req ChargeReq) (*decimal.Decimal, error) {
	if err := validateCharge(&req); err != nil {
		return nil, err
	}
	return v.next.Withdraw(req)
}

func (v *validationMiddleware) Balance(req BalanceReq) (*decimal.Decimal, error) {
	return v.next.Balance(req)
}

func (v *validationMiddleware) History(req HistoryReq) ([]Record, error) {
	return v.next.History(req)
}

func (v *validationMiddleware) Statement(w io.Writer, req StatementReq) error {
	return v.next.Statement(w, req)
}

func validateCharge(req *ChargeReq) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Amount, positiveAmount),
	)
	if err != nil {
		return badRequest(err, ErrInvalidAmount)
	}
	return nil
}

func badRequest(err, cause error) error {
	fields := make(map[string]string)
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for k, e := range verrs {
			fields[k] = e.Error()
		}
	} else {
		fields["request"] = err.Error()
	}
	return ErrBadRequest{Fields: fields, Err: cause}
}

//
// Rate limiting middlewares
//

// limitMiddleware limits the number of in-flight requests per operation with
// weighted semaphores. A request that cannot acquire a token within
// ServiceLimits.Timeout is shed with ErrServiceBusy.
type limitMiddleware struct {
	next   Service
	limits *ServiceLimits
}

var (
	_ Service = (*limitMiddleware)(nil)
)

type ServiceLimits struct {
	Timeout   time.Duration
	Register  *semaphore.Weighted
	Login     *semaphore.Weighted
	Logout    *semaphore.Weighted
	Deposit   *semaphore.Weighted
	Withdraw  *semaphore.Weighted
	Balance   *semaphore.Weighted
	History   *semaphore.Weighted
	Statement *semaphore.Weighted
}

// NewServiceLimits allows n concurrent calls of each operation.
func NewServiceLimits(n int64, timeout time.Duration) *ServiceLimits {
	return &ServiceLimits{
		Timeout:   timeout,
		Register:  semaphore.NewWeighted(n),
		Login:     semaphore.NewWeighted(n),
		Logout:    semaphore.NewWeighted(n),
		Deposit:   semaphore.NewWeighted(n),
		Withdraw:  semaphore.NewWeighted(n),
		Balance:   semaphore.NewWeighted(n),
		History:   semaphore.NewWeighted(n),
		Statement: semaphore.NewWeighted(n),
	}
}

func NewLimitMiddleware(limits *ServiceLimits) Middleware {
	return func(next Service) Service {
		return &limitMiddleware{
			next:   next,
			limits: limits,
		}
	}
}

func (l *limitMiddleware) acquire(sem *semaphore.Weighted) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.limits.Timeout)
	defer cancel()
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, ErrServiceBusy
	}
	return func() { sem.Release(1) }, nil
}

func (l *limitMiddleware) Register(req RegisterReq) error {
	release, err := l.acquire(l.limits.Register)
	if err != nil {
		return err
	}
	defer release()
	return l.next.Register(req)
}

func (l *limitMiddleware) Login(req LoginReq) (Handle, error) {
	release, err := l.acquire(l.limits.Login)
	if err != nil {
		return 0, err
	}
	defer release()
	return l.next.Login(req)
}

func (l *limitMiddleware) Logout(req LogoutReq) error {
	release, err := l.acquire(l.limits.Logout)
	if err != nil {
		return err
	}
	defer release()
	return l.next.Logout(req)
}

func (l *limitMiddleware) Deposit(req ChargeReq) (*decimal.Decimal, error) {
	release, err := l.acquire(l.limits.Deposit)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Deposit(req)
}

func (l *limitMiddleware) Withdraw(req ChargeReq) (*decimal.Decimal, error) {
	release, err := l.acquire(l.limits.Withdraw)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Withdraw(req)
}

func (l *limitMiddleware) Balance(req BalanceReq) (*decimal.Decimal, error) {
	release, err := l.acquire(l.limits.Balance)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Balance(req)
}

func (l *limitMiddleware) History(req HistoryReq) ([]Record, error) {
	release, err := l.acquire(l.limits.History)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.History(req)
}

func (l *limitMiddleware) Statement(w io.Writer, req StatementReq) error {
	release, err := l.acquire(l.limits.Statement)
	if err != nil {
		return err
	}
	defer release()
	return l.next.Statement(w, req)
}

//
// Circuit breaker
//

type ServiceBreaker struct {
	Register  *gobreaker.TwoStepCircuitBreaker[any]
	Login     *gobreaker.TwoStepCircuitBreaker[Handle]
	Logout    *gobreaker.TwoStepCircuitBreaker[any]
	Deposit   *gobreaker.TwoStepCircuitBreaker[*decimal.Decimal]
	Withdraw  *gobreaker.TwoStepCircuitBreaker[*decimal.Decimal]
	Balance   *gobreaker.TwoStepCircuitBreaker[*decimal.Decimal]
	History   *gobreaker.TwoStepCircuitBreaker[[]Record]
	Statement *gobreaker.TwoStepCircuitBreaker[any]
}

func NewServiceBreaker(cfg BreakerConfig, log *zerolog.Logger) *ServiceBreaker {
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state change")
			},
		}
	}
	return &ServiceBreaker{
		Register:  gobreaker.NewTwoStepCircuitBreaker[any](settings("register")),
		Login:     gobreaker.NewTwoStepCircuitBreaker[Handle](settings("login")),
		Logout:    gobreaker.NewTwoStepCircuitBreaker[any](settings("logout")),
		Deposit:   gobreaker.NewTwoStepCircuitBreaker[*decimal.Decimal](settings("deposit")),
		Withdraw:  gobreaker.NewTwoStepCircuitBreaker[*decimal.Decimal](settings("withdraw")),
		Balance:   gobreaker.NewTwoStepCircuitBreaker[*decimal.Decimal](settings("balance")),
		History:   gobreaker.NewTwoStepCircuitBreaker[[]Record](settings("history")),
		Statement: gobreaker.NewTwoStepCircuitBreaker[any](settings("statement")),
	}
}

// circuitBreakMiddleware works in conjunction with limitMiddleware: requests
// shed by the limiter count as failures, and while the breaker is open calls
// fail fast with ErrServiceBusy instead of queueing on the semaphores.
// Domain errors such as ErrInsufficientFunds count as successes.
type circuitBreakMiddleware struct {
	next  Service
	brkrs *ServiceBreaker
}

var (
	_ Service = (*circuitBreakMiddleware)(nil)
)

func NewCircuitBreakMiddleware(brkrs *ServiceBreaker) Middleware {
	return func(next Service) Service {
		return &circuitBreakMiddleware{
			next:  next,
			brkrs: brkrs,
		}
	}
}

func guard[T any](brkr *gobreaker.TwoStepCircuitBreaker[T], fn func() (T, error)) (T, error) {
	done, err := brkr.Allow()
	if err != nil {
		var zero T
		return zero, ErrServiceBusy
	}
	res, err := fn()
	done(!errors.Is(err, ErrServiceBusy) && !errors.Is(err, ErrInternalServer))
	return res, err
}

func (c *circuitBreakMiddleware) Register(req RegisterReq) error {
	_, err := guard(c.brkrs.Register, func() (any, error) {
		return nil, c.next.Register(req)
	})
	return err
}

func (c *circuitBreakMiddleware) Login(req LoginReq) (Handle, error) {
	return guard(c.brkrs.Login, func() (Handle, error) {
		return c.next.Login(req)
	})
}

func (c *circuitBreakMiddleware) Logout(req LogoutReq) error {
	_, err := guard(c.brkrs.Logout, func() (any, error) {
		return nil, c.next.Logout(req)
	})
	return err
}

func (c *circuitBreakMiddleware) Deposit(req ChargeReq) (*decimal.Decimal, error) {
	return guard(c.brkrs.Deposit, func() (*decimal.Decimal, error) {
		return c.next.Deposit(req)
	})
}

func (c *circuitBreakMiddleware) Withdraw(req ChargeReq) (*decimal.Decimal, error) {
	return guard(c.brkrs.Withdraw, func() (*decimal.Decimal, error) {
		return c.next.Withdraw(req)
	})
}

func (c *circuitBreakMiddleware) Balance(req BalanceReq) (*decimal.Decimal, error) {
	return guard(c.brkrs.Balance, func() (*decimal.Decimal, error) {
		return c.next.Balance(req)
	})
}

func (c *circuitBreakMiddleware) History(req HistoryReq) ([]Record, error) {
	return guard(c.brkrs.History, func() ([]Record, error) {
		return c.next.History(req)
	})
}

func (c *circuitBreakMiddleware) Statement(w io.Writer, req StatementReq) error {
	_, err := guard(c.brkrs.Statement, func() (any, error) {
		return nil, c.next.Statement(w, req)
	})
	return err
}
