// Package web exposes the JSON API consumed by the dashboard. It only
// invokes core operations and reads state; all status transitions happen in
// the core and scheduler.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/models"
	"github.com/example/reminderd/internal/notify"
	"github.com/example/reminderd/internal/settings"
)

// Notifier pokes the scheduler after writes so a freshly created reminder
// due in seconds does not wait for the next tick.
type Notifier interface {
	Notify()
}

type Server struct {
	core     *core.Service
	users    UserStore
	resolver *settings.Resolver
	telegram *notify.Telegram
	notifier Notifier
	secret   []byte
	router   *mux.Router
}

func NewServer(coreSvc *core.Service, users UserStore, resolver *settings.Resolver, telegram *notify.Telegram, notifier Notifier, sessionSecret string) *Server {
	s := &Server{
		core:     coreSvc,
		users:    users,
		resolver: resolver,
		telegram: telegram,
		notifier: notifier,
		secret:   []byte(sessionSecret),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	// Bot confirmations arrive without a session; the opaque execution id
	// is the credential.
	r.HandleFunc("/confirm/bot/{publicID}", s.handleConfirmBot).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/reminders", s.handleListReminders).Methods(http.MethodGet)
	authed.HandleFunc("/reminders", s.handleCreateReminder).Methods(http.MethodPost)
	authed.HandleFunc("/reminders/{id}", s.handleUpdateReminder).Methods(http.MethodPut)
	authed.HandleFunc("/reminders/{id}", s.handleDeleteReminder).Methods(http.MethodDelete)
	authed.HandleFunc("/confirm/{executionID}", s.handleConfirm).Methods(http.MethodPost)
	authed.HandleFunc("/resolve/{reminderID}", s.handleResolve).Methods(http.MethodPost)
	authed.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	authed.HandleFunc("/settings/token", s.handleSaveToken).Methods(http.MethodPost)
	authed.HandleFunc("/settings/chat-ids", s.handleSaveChatIDs).Methods(http.MethodPost)
	authed.HandleFunc("/settings/test", s.handleTestDelivery).Methods(http.MethodPost)

	s.router = r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) poke() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	u, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil || !verifyPassword(req.Password, u.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := s.issueSession(w, u); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged in", "username": u.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	opts := models.ListOptions{
		Sort:           r.URL.Query().Get("sort"),
		IncludeDeleted: r.URL.Query().Get("show_deleted") == "true",
	}
	reminders, err := s.core.ListReminders(r.Context(), userID(r.Context()), opts)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if reminders == nil {
		reminders = []*models.Reminder{}
	}
	writeJSON(w, http.StatusOK, reminders)
}

type reminderRequest struct {
	Message       string     `json:"message"`
	NextExecution *time.Time `json:"next_execution"`
	Recurrence    *string    `json:"recurrence"`
	Status        *string    `json:"status"`
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.NextExecution == nil {
		writeError(w, http.StatusBadRequest, "next_execution required")
		return
	}
	recurrence := ""
	if req.Recurrence != nil {
		recurrence = *req.Recurrence
	}

	reminder, err := s.core.CreateReminder(r.Context(), userID(r.Context()), req.Message, *req.NextExecution, recurrence)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	s.poke()
	writeJSON(w, http.StatusCreated, reminder)
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	patch := core.ReminderPatch{
		NextExecution: req.NextExecution,
		Recurrence:    req.Recurrence,
		Status:        req.Status,
	}
	if req.Message != "" {
		patch.Message = &req.Message
	}

	reminder, err := s.core.UpdateReminder(r.Context(), id, userID(r.Context()), patch)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	s.poke()
	writeJSON(w, http.StatusOK, reminder)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.core.SoftDeleteReminder(r.Context(), id, userID(r.Context())); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reminder deleted"})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	executionID, err := pathID(r, "executionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid execution id")
		return
	}

	exec, err := s.core.GetExecutionForUser(r.Context(), executionID, userID(r.Context()))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if err := s.core.ApplyConfirmation(r.Context(), exec.ReminderID, exec.ID); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reminder confirmed"})
}

func (s *Server) handleConfirmBot(w http.ResponseWriter, r *http.Request) {
	publicID := mux.Vars(r)["publicID"]
	already, err := s.core.ConfirmByToken(r.Context(), publicID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if already {
		writeJSON(w, http.StatusOK, map[string]string{"message": "already confirmed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "confirmed via bot"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "reminderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}
	if err := s.core.ResolveReminder(r.Context(), id, userID(r.Context())); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reminder resolved"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	token, err := s.resolver.TelegramToken(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	chatIDs, err := s.resolver.ChatIDs(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if chatIDs == nil {
		chatIDs = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"telegram_token_set":    token != "",
		"telegram_token_masked": maskToken(token),
		"chat_ids":              chatIDs,
	})
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 6 {
		return "***"
	}
	return strings.Repeat("*", len(token)-6) + token[len(token)-6:]
}

func (s *Server) handleSaveToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TelegramToken string `json:"telegram_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.TelegramToken) == "" {
		writeError(w, http.StatusBadRequest, "telegram_token required")
		return
	}
	token := strings.TrimSpace(req.TelegramToken)

	botName, err := notify.VerifyToken(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "token rejected by telegram")
		return
	}
	if err := s.resolver.SetTelegramToken(r.Context(), token); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "token saved", "bot": "@" + botName})
}

func (s *Server) handleSaveChatIDs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatIDs []int64 `json:"chat_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.resolver.SetChatIDs(r.Context(), req.ChatIDs); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "chat ids updated", "chat_ids": req.ChatIDs})
}

func (s *Server) handleTestDelivery(w http.ResponseWriter, r *http.Request) {
	chatIDs, err := s.resolver.ChatIDs(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if len(chatIDs) == 0 {
		writeError(w, http.StatusBadRequest, "no chat ids configured")
		return
	}

	type result struct {
		ChatID int64  `json:"chat_id"`
		OK     bool   `json:"ok"`
		Error  string `json:"error,omitempty"`
	}
	results := make([]result, 0, len(chatIDs))
	allOK := true
	for _, chatID := range chatIDs {
		err := s.telegram.Probe(r.Context(), chatID, "✅ Reminder system connection test, it works!")
		res := result{ChatID: chatID, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
			allOK = false
		}
		results = append(results, res)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "test completed", "results": results, "all_ok": allOK})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
