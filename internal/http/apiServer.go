package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"govorilka/internal/api"
	"govorilka/internal/auth"
	"govorilka/internal/chat"
	"govorilka/internal/filestore"
	"govorilka/internal/storage"
	"govorilka/internal/ws"
)

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAPIServer(
	authService *auth.Service,
	chatService *chat.Service,
	hub *ws.Hub,
	store *storage.BboltStorage,
	files filestore.Store,
	addr string,
) *APIServer {
	wsServer := ws.NewServer(authService, hub)
	handlers := api.New(authService, chatService, hub, store, files)

	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/auth/register", handlers.RegisterHandler)
	mux.HandleFunc("POST /api/auth/login", handlers.LoginHandler)

	// Users
	mux.HandleFunc("GET /api/me", handlers.RequireAuth(handlers.MeHandler))
	mux.HandleFunc("GET /api/users", handlers.RequireAuth(handlers.UsersHandler))
	mux.HandleFunc("GET /api/users/online", handlers.RequireAuth(handlers.OnlineUsersHandler))
	mux.HandleFunc("GET /api/users/{id}", handlers.RequireAuth(handlers.UserHandler))
	mux.HandleFunc("POST /api/users/last-seen", handlers.RequireAuth(handlers.LastSeenHandler))

	// Chats
	mux.HandleFunc("POST /api/chats/access", handlers.RequireAuth(handlers.AccessChatHandler))
	mux.HandleFunc("GET /api/chats", handlers.RequireAuth(handlers.ChatsHandler))
	mux.HandleFunc("POST /api/chats/group", handlers.RequireAuth(handlers.CreateGroupHandler))
	mux.HandleFunc("PUT /api/chats/group/rename", handlers.RequireAuth(handlers.RenameGroupHandler))
	mux.HandleFunc("PUT /api/chats/group/add-user", handlers.RequireAuth(handlers.AddToGroupHandler))
	mux.HandleFunc("PUT /api/chats/group/remove-user", handlers.RequireAuth(handlers.RemoveFromGroupHandler))
	mux.HandleFunc("PUT /api/chats/group/avatar", handlers.RequireAuth(handlers.GroupAvatarHandler))
	mux.HandleFunc("PUT /api/chats/group/add-admin", handlers.RequireAuth(handlers.AddAdminHandler))
	mux.HandleFunc("POST /api/chats/group/leave", handlers.RequireAuth(handlers.LeaveGroupHandler))
	mux.HandleFunc("PUT /api/chats/group/{chatId}", handlers.RequireAuth(handlers.ReplaceMembersHandler))
	mux.HandleFunc("DELETE /api/chats/group/{chatId}", handlers.RequireAuth(handlers.DeleteGroupHandler))

	// Messages
	mux.HandleFunc("POST /api/messages", handlers.RequireAuth(handlers.CreateMessageHandler))
	mux.HandleFunc("GET /api/messages/{chatId}", handlers.RequireAuth(handlers.MessagesHandler))

	// Uploads
	mux.HandleFunc("POST /api/uploads", handlers.RequireAuth(handlers.UploadHandler))
	mux.HandleFunc("GET /api/uploads/{id}", handlers.GetUploadHandler)

	// WebSocket endpoint
	mux.HandleFunc("/api/ws", wsServer.HandleConnections)

	if addr == "" {
		addr = ":8080"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

func (s *APIServer) Start() error {
	log.Printf("Server started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
