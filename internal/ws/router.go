package ws

import (
	"log/slog"
	"sync"

	"govorilka/internal/models"
)

// Group name namespaces. Per-user groups carry direct delivery to every
// device a user has open; per-chat groups carry room-scoped events like
// typing indicators. Keeping the prefixes distinct avoids collisions between
// user and chat identifiers.
const (
	userGroupPrefix = "user:"
	chatGroupPrefix = "chat:"
)

func UserGroup(userID string) string { return userGroupPrefix + userID }
func ChatGroup(chatID string) string { return chatGroupPrefix + chatID }

// Router owns group membership and event fan-out. Sessions are registered
// with a buffered send channel; all delivery is best-effort at-most-once. A
// slow or closing session drops events for itself only and never blocks
// delivery to the rest of a group.
type Router struct {
	mu sync.RWMutex

	// sessionID -> send channel
	sessions map[string]chan models.ServerEvent
	// group name -> set of member session IDs
	groups map[string]map[string]struct{}
	// sessionID -> set of group names, for disconnect cleanup
	memberships map[string]map[string]struct{}
}

func NewRouter() *Router {
	return &Router{
		sessions:    make(map[string]chan models.ServerEvent),
		groups:      make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
	}
}

// AddSession registers a session's send channel with the router.
func (r *Router) AddSession(sessionID string, ch chan models.ServerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = ch
}

// RemoveSession drops the session from every group it joined and closes its
// send channel. Unknown sessions are a no-op.
func (r *Router) RemoveSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	close(ch)

	for group := range r.memberships[sessionID] {
		members := r.groups[group]
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.groups, group)
		}
	}
	delete(r.memberships, sessionID)
}

// Join subscribes the session to a group. Joining twice is a no-op.
func (r *Router) Join(sessionID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return
	}

	members, ok := r.groups[group]
	if !ok {
		members = make(map[string]struct{})
		r.groups[group] = members
	}
	members[sessionID] = struct{}{}

	joined, ok := r.memberships[sessionID]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[sessionID] = joined
	}
	joined[group] = struct{}{}
}

// Leave unsubscribes the session from a group.
func (r *Router) Leave(sessionID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.groups[group]
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.groups, group)
	}
	delete(r.memberships[sessionID], group)
}

// EmitToGroup delivers the event to every session currently in the group.
func (r *Router) EmitToGroup(group string, ev models.ServerEvent) {
	r.EmitToGroupExcept(group, "", ev)
}

// EmitToGroupExcept delivers the event to every group member except the
// given session. Used for typing indicators, which skip the originator.
func (r *Router) EmitToGroupExcept(group, exceptSessionID string, ev models.ServerEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for sessionID := range r.groups[group] {
		if sessionID == exceptSessionID {
			continue
		}
		r.sendLocked(sessionID, ev)
	}
}

// EmitToUser delivers the event to every session in the user's per-user
// group, i.e. every device the user has open.
func (r *Router) EmitToUser(userID string, ev models.ServerEvent) {
	r.EmitToGroup(UserGroup(userID), ev)
}

// Broadcast delivers the event to every connected session.
func (r *Router) Broadcast(ev models.ServerEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for sessionID := range r.sessions {
		r.sendLocked(sessionID, ev)
	}
}

func (r *Router) sendLocked(sessionID string, ev models.ServerEvent) {
	ch, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		// Session is not keeping up; drop for this session only.
		slog.Warn("dropping event for slow session", "session_id", sessionID, "event", ev.Type)
	}
}
