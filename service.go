package bankxatm

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RegisterReq.OpeningBalance is for trusted in-process callers such as
// seeding; it is never decoded from a request body.
type RegisterReq struct {
	Username       string           `json:"username"`
	Password       string           `json:"password"`
	OpeningBalance *decimal.Decimal `json:"-"`
}

type LoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LogoutReq struct {
	Handle Handle
}

type ChargeReq struct {
	Amount decimal.Decimal `json:"amount"`
	Handle Handle          `json:"-"`
}

type BalanceReq struct {
	Handle Handle
}

type HistoryReq struct {
	Handle Handle
}

type StatementReq struct {
	Handle Handle
}

//go:generate mockgen -source=service.go -destination=mocks/service.go -package=mocks
type Service interface {
	Register(RegisterReq) error
	Login(LoginReq) (Handle, error)
	Logout(LogoutReq) error
	Deposit(ChargeReq) (*decimal.Decimal, error)
	Withdraw(ChargeReq) (*decimal.Decimal, error)
	Balance(BalanceReq) (*decimal.Decimal, error)
	History(HistoryReq) ([]Record, error)
	Statement(io.Writer, StatementReq) error
}

var (
	_ Service = (*serviceImpl)(nil)
)

func NewService(ledger *Ledger, log *zerolog.Logger) *serviceImpl {
	return &serviceImpl{
		ledger: ledger,
		log:    log,
	}
}

type serviceImpl struct {
	ledger *Ledger
	log    *zerolog.Logger
}

func (s *serviceImpl) Register(req RegisterReq) error {
	var err error
	if req.OpeningBalance != nil {
		err = s.ledger.RegisterWithBalance(req.Username, req.Password, *req.OpeningBalance)
	} else {
		err = s.ledger.Register(req.Username, req.Password)
	}
	if err != nil {
		s.log.Debug().Err(err).Str("username", req.Username).Msg("registration rejected")
		return err
	}
	s.log.Info().Str("username", req.Username).Msg("account registered")
	return nil
}

func (s *serviceImpl) Login(req LoginReq) (Handle, error) {
	h, err := s.ledger.Authenticate(req.Username, req.Password)
	if err != nil {
		s.log.Warn().Err(err).Str("username", req.Username).Msg("login failed")
		return 0, err
	}
	s.log.Info().
		Str("username", req.Username).
		Str("handle", h.String()).
		Msg("session opened")
	return h, nil
}

func (s *serviceImpl) Logout(req LogoutReq) error {
	if err := s.ledger.Logout(req.Handle); err != nil {
		return err
	}
	s.log.Info().Str("handle", req.Handle.String()).Msg("session closed")
	return nil
}

func (s *serviceImpl) Deposit(req ChargeReq) (*decimal.Decimal, error) {
	bal, err := s.ledger.Deposit(req.Handle, req.Amount)
	if err != nil {
		s.log.Debug().Err(err).Str("method", "deposit").Str("handle", req.Handle.String()).Msg("charge rejected")
		return nil, err
	}
	return &bal, nil
}

func (s *serviceImpl) Withdraw(req ChargeReq) (*decimal.Decimal, error) {
	bal, err := s.ledger.Withdraw(req.Handle, req.Amount)
	if err != nil {
		s.log.Debug().Err(err).Str("method", "withdraw").Str("handle", req.Handle.String()).Msg("charge rejected")
		return nil, err
	}
	return &bal, nil
}

func (s *serviceImpl) Balance(req BalanceReq) (*decimal.Decimal, error) {
	bal, err := s.ledger.CheckBalance(req.Handle)
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

func (s *serviceImpl) History(req HistoryReq) ([]Record, error) {
	return s.ledger.History(req.Handle)
}

func (s *serviceImpl) Statement(w io.Writer, req StatementReq) error {
	snap, err := s.ledger.Snapshot(req.Handle)
	if err != nil {
		return err
	}
	if err = WriteStatement(w, snap); err != nil {
		s.log.Err(err).Str("method", "statement").Msg("error rendering statement")
		return errors.Join(ErrInternalServer, err)
	}
	return nil
}
