package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
)

const maxBodyBytes = 1 << 20

type createAccountRequest struct {
	OpeningBalance float64 `json:"opening_balance"`
	Currency       string  `json:"currency"`
}

// CreateUser registers a user from a JSON body with username and email
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := decodeBody(w, r, &user); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.CreateUser(r.Context(), &user); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	h.writeJSON(w, http.StatusOK, users)
}

// CreateAccount opens an account; an empty body opens a zero balance RUB account
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req createAccountRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			h.writeError(w, err)
			return
		}
	}
	account, err := h.svc.CreateAccount(r.Context(), userID, req.OpeningBalance, req.Currency)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	accounts, err := h.svc.ListUserAccounts(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// AddTransactions records a JSON array of transactions for the user
func (h *Handler) AddTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var txns []models.Transaction
	if err := decodeBody(w, r, &txns); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.AddTransactions(r.Context(), userID, txns); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, txns)
}

// ListTransactions returns a user's transactions. Optional query parameters:
// account, from (inclusive) and to (exclusive) as RFC 3339 or YYYY-MM-DD.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	q := models.TransactionQuery{UserID: userID}
	params := r.URL.Query()
	if raw := params.Get("account"); raw != "" {
		q.AccountID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || q.AccountID <= 0 {
			h.writeError(w, &models.ValidationError{Field: "account", Reason: "must be a positive integer"})
			return
		}
	}
	if q.From, err = parseTime("from", params.Get("from")); err != nil {
		h.writeError(w, err)
		return
	}
	if q.To, err = parseTime("to", params.Get("to")); err != nil {
		h.writeError(w, err)
		return
	}

	txns, err := h.svc.ListUserTransactions(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, txns)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func parseTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: field, Reason: "must be RFC 3339 or YYYY-MM-DD"}
	}
	return t, nil
}
