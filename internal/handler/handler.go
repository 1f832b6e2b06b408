package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// API is the service surface exposed over HTTP
type API interface {
	CreateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateAccount(ctx context.Context, userID int64, opening float64, currency string) (*models.Account, error)
	ListUserAccounts(ctx context.Context, userID int64) ([]models.Account, error)
	AddTransactions(ctx context.Context, userID int64, txns []models.Transaction) error
	ListUserTransactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error)

	AssignPersonas(ctx context.Context) ([]models.PersonaAssignment, error)
	GetPersona(ctx context.Context, userID int64) (*models.PersonaAssignment, error)
	ForecastBalance(ctx context.Context, userID, accountID int64, horizonDays int) (*models.BalanceForecast, error)
	GenerateNudges(ctx context.Context, userID, accountID int64) ([]models.Nudge, error)
	ListNudges(ctx context.Context, userID int64, unreadOnly bool) ([]models.Nudge, error)
	DismissNudge(ctx context.Context, userID, nudgeID int64) error
	DetectPatterns(ctx context.Context, userID int64) ([]models.SpendingPattern, error)
	ListPatterns(ctx context.Context, userID int64) ([]models.SpendingPattern, error)
	KeyRate(ctx context.Context) (float64, error)
}

type Handler struct {
	svc API
	log *logrus.Logger
}

func NewHandler(svc API, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts every route on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/key-rate", h.KeyRate).Methods(http.MethodGet)
	r.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/accounts", h.CreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}/accounts", h.ListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/transactions", h.AddTransactions).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}/transactions", h.ListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/personas/run", h.RunPersonas).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}/persona", h.GetPersona).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/accounts/{accountID:[0-9]+}/forecast", h.Forecast).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}/accounts/{accountID:[0-9]+}/nudges/run", h.RunNudges).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}/nudges", h.ListNudges).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/nudges/{nudgeID:[0-9]+}/read", h.DismissNudge).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}/patterns", h.ListPatterns).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/patterns/run", h.RunPatterns).Methods(http.MethodPost)
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// KeyRate returns the current CBR key rate
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.svc.KeyRate(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]float64{"key_rate": rate})
}

// RunPersonas re-clusters every eligible user
func (h *Handler) RunPersonas(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.svc.AssignPersonas(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assignments)
}

// GetPersona returns a user's active persona
func (h *Handler) GetPersona(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	a, err := h.svc.GetPersona(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

// Forecast runs a balance forecast; ?horizon=N overrides the default horizon
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	userID, accountID, err := userAccount(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	horizon := 0
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		horizon, err = strconv.Atoi(raw)
		if err != nil || horizon < 1 || horizon > 365 {
			h.writeError(w, &models.ValidationError{Field: "horizon", Reason: "must be an integer between 1 and 365"})
			return
		}
	}
	out, err := h.svc.ForecastBalance(r.Context(), userID, accountID, horizon)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// RunNudges evaluates the nudge rules for an account
func (h *Handler) RunNudges(w http.ResponseWriter, r *http.Request) {
	userID, accountID, err := userAccount(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	nudges, err := h.svc.GenerateNudges(r.Context(), userID, accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if nudges == nil {
		nudges = []models.Nudge{}
	}
	h.writeJSON(w, http.StatusOK, nudges)
}

// ListNudges returns a user's nudges; ?unread=true filters read ones out
func (h *Handler) ListNudges(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	unread := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		if unread, err = strconv.ParseBool(raw); err != nil {
			h.writeError(w, &models.ValidationError{Field: "unread", Reason: "must be a boolean"})
			return
		}
	}
	nudges, err := h.svc.ListNudges(r.Context(), userID, unread)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if nudges == nil {
		nudges = []models.Nudge{}
	}
	h.writeJSON(w, http.StatusOK, nudges)
}

// DismissNudge marks a nudge read
func (h *Handler) DismissNudge(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	nudgeID, err := pathID(r, "nudgeID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.DismissNudge(r.Context(), userID, nudgeID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunPatterns re-detects a user's spending patterns
func (h *Handler) RunPatterns(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	patterns, err := h.svc.DetectPatterns(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if patterns == nil {
		patterns = []models.SpendingPattern{}
	}
	h.writeJSON(w, http.StatusOK, patterns)
}

// ListPatterns returns the patterns found by the last detection run
func (h *Handler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	patterns, err := h.svc.ListPatterns(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if patterns == nil {
		patterns = []models.SpendingPattern{}
	}
	h.writeJSON(w, http.StatusOK, patterns)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

func userAccount(r *http.Request) (int64, int64, error) {
	userID, err := pathID(r, "userID")
	if err != nil {
		return 0, 0, err
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		return 0, 0, err
	}
	return userID, accountID, nil
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrModelFit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNoEligibleUsers), errors.Is(err, models.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Errorf("Request failed: %v", err)
		msg = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}
