package bankxatm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	statusOK = []byte(`{"status":"OK"}`)
)

type ctxKey int

const handleKey ctxKey = iota

type balanceJSONResp struct {
	Balance decimal.Decimal `json:"balance"`
}

type tokenJSONResp struct {
	Token string `json:"token"`
}

type historyJSONResp struct {
	History []Record `json:"history"`
}

func NewHTTPHandler(svc Service, tokens *TokenIssuer, log *zerolog.Logger) http.Handler {
	hndlr := &httpHandler{
		Svc:    svc,
		Tokens: tokens,
		Log:    log,
	}
	mux := chi.NewMux()
	mux.NotFound(HTTPNotFound)
	mux.Post("/customers", hndlr.Register)
	mux.Post("/sessions", hndlr.Login)
	mux.Group(func(r chi.Router) {
		r.Use(hndlr.authenticate)
		r.Delete("/sessions", hndlr.Logout)
		r.Route("/account", func(rr chi.Router) {
			rr.Post("/deposit", hndlr.Deposit)
			rr.Post("/withdraw", hndlr.Withdraw)
			rr.Get("/balance", hndlr.Balance)
			rr.Get("/history", hndlr.History)
			rr.Get("/statement", hndlr.Statement)
		})
	})

	return mux
}

type httpHandler struct {
	Svc    Service
	Tokens *TokenIssuer
	Log    *zerolog.Logger
}

// authenticate resolves the bearer token into a ledger handle.
func (h *httpHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || bearer == "" {
			WriteHTTPError(w, ErrNotAuthenticated)
			return
		}
		hdl, err := h.Tokens.Parse(bearer)
		if err != nil {
			h.Log.Debug().Err(err).Msg("rejected session token")
			WriteHTTPError(w, ErrNotAuthenticated)
			return
		}
		ctx := context.WithValue(r.Context(), handleKey, hdl)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func handleFrom(ctx context.Context) Handle {
	hdl, _ := ctx.Value(handleKey).(Handle)
	return hdl
}

func (h *httpHandler) decode(w http.ResponseWriter, r *http.Request, method string, v any) bool {
	buf, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		h.Log.Err(err).Str("method", method).Msg("error reading HTTP request")
		WriteHTTPError(w, ErrInternalServer)
		return false
	}
	if err = json.Unmarshal(buf, v); err != nil {
		h.Log.Err(err).Str("method", method).Msg("error unmarshalling JSON")
		WriteHTTPError(w, ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}})
		return false
	}
	return true
}

func (h *httpHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if !h.decode(w, r, "register", &req) {
		return
	}
	if err := h.Svc.Register(req); err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(statusOK)
}

func (h *httpHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !h.decode(w, r, "login", &req) {
		return
	}
	hdl, err := h.Svc.Login(req)
	if err != nil {
		// unknown usernames look the same as wrong passwords
		if errors.As(err, &ErrNotFound{}) {
			err = ErrBadCredential
		}
		WriteHTTPError(w, err)
		return
	}
	token, err := h.Tokens.Issue(hdl)
	if err != nil {
		h.Log.Err(err).Str("method", "login").Msg("error issuing session token")
		WriteHTTPError(w, ErrInternalServer)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(tokenJSONResp{Token: token}); err != nil {
		WriteHTTPError(w, err)
	}
}

func (h *httpHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(LogoutReq{Handle: handleFrom(r.Context())}); err != nil {
		WriteHTTPError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(statusOK)
}

func (h *httpHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req ChargeReq
	if !h.decode(w, r, "deposit", &req) {
		return
	}
	req.Handle = handleFrom(r.Context())
	bal, err := h.Svc.Deposit(req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	writeBalance(w, bal)
}

func (h *httpHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req ChargeReq
	if !h.decode(w, r, "withdraw", &req) {
		return
	}
	req.Handle = handleFrom(r.Context())
	bal, err := h.Svc.Withdraw(req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	writeBalance(w, bal)
}

func (h *httpHandler) Balance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.Svc.Balance(BalanceReq{Handle: handleFrom(r.Context())})
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	writeBalance(w, bal)
}

func (h *httpHandler) History(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Svc.History(HistoryReq{Handle: handleFrom(r.Context())})
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(historyJSONResp{History: recs}); err != nil {
		WriteHTTPError(w, err)
	}
}

func (h *httpHandler) Statement(w http.ResponseWriter, r *http.Request) {
	buf := new(bytes.Buffer)
	if err := h.Svc.Statement(buf, StatementReq{Handle: handleFrom(r.Context())}); err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="statement.pdf"`)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Err(err).Str("method", "statement").Msg("error writing statement")
	}
}

func writeBalance(w http.ResponseWriter, bal *decimal.Decimal) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(balanceJSONResp{Balance: *bal}); err != nil {
		WriteHTTPError(w, err)
	}
}

func WriteHTTPError(w http.ResponseWriter, err error) {
	var ne error
	defer func() {
		if ne != nil {
			log.Error().
				Err(ne).
				Msg("error response encoding failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	errnf := &ErrNotFound{}
	errbr := &ErrBadRequest{}
	switch {
	case errors.As(err, errnf):
		w.WriteHeader(http.StatusNotFound)
		ne = json.NewEncoder(w).Encode(errnf)
	case errors.As(err, errbr):
		w.WriteHeader(http.StatusBadRequest)
		ne = json.NewEncoder(w).Encode(errbr)
	default:
		w.WriteHeader(statusFor(err))
		resp := map[string]string{
			"message": messageFor(err),
		}
		ne = json.NewEncoder(w).Encode(resp)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyCredential), errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrBadCredential), errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrServiceBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "server error"
	}
	return err.Error()
}

func HTTPNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	resp := map[string]string{
		"path": r.URL.Path,
	}
	json.NewEncoder(w).Encode(resp)
}
