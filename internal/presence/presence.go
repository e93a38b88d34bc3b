package presence

import (
	"sort"
	"sync"
)

// TransitionFunc is called on every online/offline transition with the user
// that changed state and the online set after the change. It is invoked
// synchronously under the registry lock, so transitions and snapshots are
// observed in a consistent order. Callbacks must not call back into the
// registry.
type TransitionFunc func(userID string, online bool, onlineUsers []string)

// Registry tracks which users are currently reachable and over which
// transport sessions. A user is online iff they have at least one live
// session. The two maps are only ever touched through Register/Unregister.
type Registry struct {
	mu sync.RWMutex

	// userID -> set of session IDs
	users map[string]map[string]struct{}
	// sessionID -> userID reverse map
	sessions map[string]string

	onTransition TransitionFunc
}

func NewRegistry(onTransition TransitionFunc) *Registry {
	return &Registry{
		users:        make(map[string]map[string]struct{}),
		sessions:     make(map[string]string),
		onTransition: onTransition,
	}
}

// Register adds the session to the user's session set. Registering the same
// pair twice is a no-op. The online transition fires exactly when the set
// goes from empty to non-empty.
func (r *Registry) Register(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	if _, dup := set[sessionID]; dup {
		return
	}
	set[sessionID] = struct{}{}
	r.sessions[sessionID] = userID

	if len(set) == 1 && r.onTransition != nil {
		r.onTransition(userID, true, r.snapshotLocked())
	}
}

// Unregister removes the session and returns the owning user and whether
// this was the user's last session. An unknown session is a benign no-op:
// disconnect can race with a connection that never completed setup.
func (r *Registry) Unregister(sessionID string) (userID string, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	delete(r.sessions, sessionID)

	set := r.users[userID]
	delete(set, sessionID)
	if len(set) > 0 {
		return userID, false
	}

	// Empty sets are removed entirely; their absence is the offline signal.
	delete(r.users, userID)
	if r.onTransition != nil {
		r.onTransition(userID, false, r.snapshotLocked())
	}
	return userID, true
}

// IsOnline reports whether the user has at least one live session.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// Snapshot returns the current online user set, sorted for determinism.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []string {
	users := make([]string, 0, len(r.users))
	for id := range r.users {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}
