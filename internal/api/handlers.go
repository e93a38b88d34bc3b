package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"govorilka/internal/auth"
	"govorilka/internal/chat"
	"govorilka/internal/filestore"
	"govorilka/internal/models"
	"govorilka/internal/storage"
	"govorilka/internal/ws"
)

type API struct {
	auth    *auth.Service
	chats   *chat.Service
	hub     *ws.Hub
	storage *storage.BboltStorage
	files   filestore.Store
}

func New(authService *auth.Service, chats *chat.Service, hub *ws.Hub, store *storage.BboltStorage, files filestore.Store) *API {
	return &API{
		auth:    authService,
		chats:   chats,
		hub:     hub,
		storage: store,
		files:   files,
	}
}

type ctxKey int

const userIDKey ctxKey = 0

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func getToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.Header.Get("token")
}

// RequireAuth resolves the bearer token to a user identity and puts it on
// the request context. Requests without a valid token are rejected before
// the wrapped handler runs.
func (a *API) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.auth.VerifyToken(getToken(r))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeError maps service errors to HTTP statuses. Authorization failures
// and not-found are distinguished; anything unrecognized is a server error.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrNotParticipant), errors.Is(err, models.ErrNotAdmin):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrNotGroup):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidArgument):
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, models.APIResponse{Success: false, Message: msg})
}

func (a *API) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := a.auth.Register(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.GetUser(userIDFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) UsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := a.storage.SearchUsers(r.URL.Query().Get("q"), userIDFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) UserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := a.storage.GetUser(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) OnlineUsersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.hub.OnlineUsers())
}

func (a *API) LastSeenHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.storage.TouchLastSeen(userIDFrom(r), time.Now().Unix()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Message: "Last seen updated"})
}
