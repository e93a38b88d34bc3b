package ws

import (
	"errors"
	"log/slog"
	"time"

	"govorilka/internal/models"
	"govorilka/internal/presence"

	"github.com/google/uuid"
)

const sessionBufferSize = 100

type chatStore interface {
	GetChat(id string) (models.Chat, error)
	TouchLastSeen(id string, ts int64) error
}

// Hub ties the presence registry and the broadcast router together and is
// the single entry point for everything websocket connections do. It owns no
// mutable state of its own: sessions live in the router, the online set in
// the registry.
type Hub struct {
	router   *Router
	registry *presence.Registry
	store    chatStore
	now      func() time.Time
}

func NewHub(store chatStore) *Hub {
	h := &Hub{
		router: NewRouter(),
		store:  store,
		now:    time.Now,
	}
	h.registry = presence.NewRegistry(h.onTransition)
	return h
}

// onTransition pushes the fresh online set to every connected session. This
// is a global fan-out on each transition and is deliberately simple; it does
// not scale past a single process.
func (h *Hub) onTransition(userID string, online bool, onlineUsers []string) {
	h.router.Broadcast(models.ServerEvent{
		Type:  models.ServerEventOnlineUsers,
		Users: onlineUsers,
	})
}

// Connect allocates a session and returns its ID and receive channel. The
// session is not visible as online until Setup is called: presence follows
// the explicit setup event, not the raw connection.
func (h *Hub) Connect() (string, chan models.ServerEvent) {
	sessionID := uuid.NewString()
	ch := make(chan models.ServerEvent, sessionBufferSize)
	h.router.AddSession(sessionID, ch)
	return sessionID, ch
}

// Disconnect tears the session down: drops all group memberships, removes it
// from the presence registry and, if it was the user's last session, stamps
// their last-seen time.
func (h *Hub) Disconnect(sessionID string) {
	h.router.RemoveSession(sessionID)
	userID, wentOffline := h.registry.Unregister(sessionID)
	if wentOffline {
		if err := h.store.TouchLastSeen(userID, h.now().Unix()); err != nil && !errors.Is(err, models.ErrNotFound) {
			slog.Error("failed to update last seen", "user_id", userID, "error", err)
		}
	}
}

// Setup registers the session as a live presence of the user and joins it to
// the user's direct-delivery group.
func (h *Hub) Setup(sessionID, userID string) {
	h.router.Join(sessionID, UserGroup(userID))
	h.registry.Register(userID, sessionID)
	if err := h.store.TouchLastSeen(userID, h.now().Unix()); err != nil && !errors.Is(err, models.ErrNotFound) {
		slog.Error("failed to update last seen", "user_id", userID, "error", err)
	}
}

// JoinChat subscribes the session to a chat room after checking the user is
// a participant. Non-participants are ignored, not errored: the event is
// fire-and-forget.
func (h *Hub) JoinChat(sessionID, userID, chatID string) {
	chat, err := h.store.GetChat(chatID)
	if err != nil {
		slog.Warn("joinChat for unknown chat", "chat_id", chatID, "error", err)
		return
	}
	if !chat.HasParticipant(userID) {
		return
	}
	h.router.Join(sessionID, ChatGroup(chatID))
}

// LeaveChat unsubscribes the session from a chat room. Not required for
// correctness, only to cut typing-indicator noise when a client navigates
// away.
func (h *Hub) LeaveChat(sessionID, chatID string) {
	h.router.Leave(sessionID, ChatGroup(chatID))
}

// Typing relays a typing indicator to the chat room, excluding the
// originating session. Nothing is persisted.
func (h *Hub) Typing(sessionID, userID, chatID string, typing bool) {
	h.router.EmitToGroupExcept(ChatGroup(chatID), sessionID, models.ServerEvent{
		Type:   models.ServerEventTyping,
		ChatID: chatID,
		UserID: userID,
		Typing: typing,
	})
}

// Relay is the client-side delivery hint path: a client that just created a
// message asks the hub to fan it out again. The chat's current participant
// list is resolved fresh, and the sender must be one of them.
func (h *Hub) Relay(userID string, msg *models.Message) {
	if msg == nil || msg.ChatID == "" {
		return
	}
	chat, err := h.store.GetChat(msg.ChatID)
	if err != nil {
		slog.Warn("relay for unknown chat", "chat_id", msg.ChatID, "error", err)
		return
	}
	if !chat.HasParticipant(userID) {
		return
	}
	h.NotifyMessage(msg, chat.Participants)
}

// NotifyMessage delivers a messageReceived event to each participant's
// per-user group, the sender included so their other devices get the echo.
func (h *Hub) NotifyMessage(msg *models.Message, participants []string) {
	ev := models.ServerEvent{
		Type:    models.ServerEventMessageReceived,
		ChatID:  msg.ChatID,
		Message: msg,
	}
	for _, userID := range participants {
		h.router.EmitToUser(userID, ev)
	}
}

// OnlineUsers returns the current online set.
func (h *Hub) OnlineUsers() []string {
	return h.registry.Snapshot()
}

// IsOnline reports whether the user has at least one live session.
func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}
