package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/engine"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/ogulcanaydogan/pfm-alerts/pkg/storage"
)

// Evaluator is the engine surface the server triggers.
type Evaluator interface {
	EvaluateAllUserAlerts(ctx context.Context, userID string) engine.BatchReport
	EvaluateUpcomingBills(ctx context.Context, userID string) engine.BatchReport
	EvaluateAlertByID(ctx context.Context, userID, alertID string) (engine.Outcome, error)
}

// Store is what the server reads directly.
type Store interface {
	ListAlerts(ctx context.Context, userID string) ([]*model.Alert, error)
	ListNotifications(ctx context.Context, userID string, filter model.NotificationFilter) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string, at time.Time) error
}

// Server exposes evaluation triggers and notification reads over HTTP. The user id in
// the path is trusted; authentication happens upstream.
type Server struct {
	engine  Evaluator
	store   Store
	mux     *http.ServeMux
	logger  *slog.Logger
	timeout time.Duration
}

// NewServer creates an API server. timeout bounds each request's work; zero means 30s.
func NewServer(e Evaluator, store Store, timeout time.Duration, logger *slog.Logger) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Server{
		engine:  e,
		store:   store,
		mux:     http.NewServeMux(),
		logger:  logger,
		timeout: timeout,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/users/{userID}/evaluate", s.handleEvaluateUser)
	s.mux.HandleFunc("POST /api/v1/users/{userID}/alerts/{alertID}/evaluate", s.handleEvaluateAlert)
	s.mux.HandleFunc("GET /api/v1/users/{userID}/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /api/v1/users/{userID}/notifications", s.handleNotifications)
	s.mux.HandleFunc("POST /api/v1/users/{userID}/notifications/{id}/read", s.handleMarkRead)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type evaluateResponse struct {
	Periodic engine.BatchReport  `json:"periodic"`
	Bills    *engine.BatchReport `json:"bills,omitempty"`
}

func (s *Server) handleEvaluateUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	userID := r.PathValue("userID")
	resp := evaluateResponse{Periodic: s.engine.EvaluateAllUserAlerts(ctx, userID)}

	if withBills, _ := strconv.ParseBool(r.URL.Query().Get("bills")); withBills {
		bills := s.engine.EvaluateUpcomingBills(ctx, userID)
		resp.Bills = &bills
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvaluateAlert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	userID, alertID := r.PathValue("userID"), r.PathValue("alertID")
	outcome, err := s.engine.EvaluateAlertByID(ctx, userID, alertID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("evaluate alert", "user_id", userID, "alert_id", alertID, "error", err)
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type alertView struct {
	*model.Alert
	Conditions map[string]any `json:"conditions,omitempty"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	alerts, err := s.store.ListAlerts(ctx, r.PathValue("userID"))
	if err != nil {
		s.logger.Error("list alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	views := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		v := alertView{Alert: a}
		if a.Conditions != nil {
			v.Conditions = a.Conditions.Map()
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	q := r.URL.Query()
	filter := model.NotificationFilter{AlertID: q.Get("alert_id")}
	if v := q.Get("unread"); v != "" {
		unread, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid unread parameter", http.StatusBadRequest)
			return
		}
		filter.UnreadOnly = unread
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	notes, err := s.store.ListNotifications(ctx, r.PathValue("userID"), filter)
	if err != nil {
		s.logger.Error("list notifications", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if notes == nil {
		notes = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	err := s.store.MarkNotificationRead(ctx, r.PathValue("userID"), r.PathValue("id"), time.Now().UTC())
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("mark notification read", "error", err)
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlertNotEvaluable), errors.Is(err, engine.ErrDanglingReference):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidConditions), errors.Is(err, model.ErrUnknownKind):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
