package ws

import (
	"testing"

	"govorilka/internal/models"
)

type fakeStore struct {
	chats    map[string]models.Chat
	lastSeen map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chats:    make(map[string]models.Chat),
		lastSeen: make(map[string]int64),
	}
}

func (f *fakeStore) GetChat(id string) (models.Chat, error) {
	chat, ok := f.chats[id]
	if !ok {
		return models.Chat{}, models.ErrNotFound
	}
	return chat, nil
}

func (f *fakeStore) TouchLastSeen(id string, ts int64) error {
	f.lastSeen[id] = ts
	return nil
}

func findEvent(events []models.ServerEvent, typ models.ServerEventType) (models.ServerEvent, bool) {
	for _, ev := range events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return models.ServerEvent{}, false
}

func TestHub_SetupBroadcastsOnlineSet(t *testing.T) {
	store := newFakeStore()
	h := NewHub(store)

	s1, ch1 := h.Connect()
	s2, ch2 := h.Connect()

	h.Setup(s1, "alice")

	// Both connected sessions see the transition, setup or not.
	for name, ch := range map[string]chan models.ServerEvent{"s1": ch1, "s2": ch2} {
		ev, ok := findEvent(drain(ch), models.ServerEventOnlineUsers)
		if !ok {
			t.Fatalf("%s did not receive onlineUsers", name)
		}
		if len(ev.Users) != 1 || ev.Users[0] != "alice" {
			t.Errorf("%s onlineUsers = %v, want [alice]", name, ev.Users)
		}
	}

	if store.lastSeen["alice"] == 0 {
		t.Error("setup did not touch last seen")
	}

	h.Setup(s2, "bob")
	if !h.IsOnline("alice") || !h.IsOnline("bob") {
		t.Error("expected both users online")
	}

	// Disconnect bob's only session: offline transition with just alice.
	h.Disconnect(s2)
	ev, ok := findEvent(drain(ch1), models.ServerEventOnlineUsers)
	if !ok {
		t.Fatal("no onlineUsers broadcast on disconnect")
	}
	if len(ev.Users) != 1 || ev.Users[0] != "alice" {
		t.Errorf("onlineUsers after disconnect = %v, want [alice]", ev.Users)
	}

	h.Disconnect(s1)
	if h.IsOnline("alice") {
		t.Error("alice online after disconnect")
	}
	if len(h.OnlineUsers()) != 0 {
		t.Errorf("online set = %v, want empty", h.OnlineUsers())
	}
}

func TestHub_MultiDeviceSingleTransition(t *testing.T) {
	store := newFakeStore()
	h := NewHub(store)

	s1, ch1 := h.Connect()
	h.Setup(s1, "alice")
	drain(ch1)

	s2, ch2 := h.Connect()
	h.Setup(s2, "alice")

	// Second device: no presence transition, no broadcast.
	if _, ok := findEvent(drain(ch1), models.ServerEventOnlineUsers); ok {
		t.Error("unexpected onlineUsers broadcast for second device")
	}
	drain(ch2)

	// First device closing keeps alice online.
	h.Disconnect(s1)
	if !h.IsOnline("alice") {
		t.Error("alice offline with one device still open")
	}
	if _, ok := findEvent(drain(ch2), models.ServerEventOnlineUsers); ok {
		t.Error("unexpected broadcast while user still online")
	}

	h.Disconnect(s2)
	if h.IsOnline("alice") {
		t.Error("alice online after last device closed")
	}
}

func TestHub_NotifyMessageReachesAllDevices(t *testing.T) {
	store := newFakeStore()
	h := NewHub(store)

	sA1, chA1 := h.Connect()
	sA2, chA2 := h.Connect()
	sB, chB := h.Connect()
	sC, chC := h.Connect()
	h.Setup(sA1, "alice")
	h.Setup(sA2, "alice")
	h.Setup(sB, "bob")
	h.Setup(sC, "carol")
	for _, ch := range []chan models.ServerEvent{chA1, chA2, chB, chC} {
		drain(ch)
	}

	msg := &models.Message{ID: "m1", ChatID: "c1", SenderID: "bob", Content: "hi"}
	h.NotifyMessage(msg, []string{"alice", "bob"})

	for name, ch := range map[string]chan models.ServerEvent{"alice dev1": chA1, "alice dev2": chA2, "bob": chB} {
		events := drain(ch)
		count := 0
		for _, ev := range events {
			if ev.Type == models.ServerEventMessageReceived {
				count++
				if ev.Message == nil || ev.Message.ID != "m1" {
					t.Errorf("%s got wrong message: %+v", name, ev.Message)
				}
			}
		}
		if count != 1 {
			t.Errorf("%s received %d messageReceived events, want exactly 1", name, count)
		}
	}

	if _, ok := findEvent(drain(chC), models.ServerEventMessageReceived); ok {
		t.Error("carol received a message for a chat she is not in")
	}
}

func TestHub_TypingExcludesSender(t *testing.T) {
	store := newFakeStore()
	store.chats["c1"] = models.Chat{ID: "c1", Participants: []string{"alice", "bob"}}
	h := NewHub(store)

	sA, chA := h.Connect()
	sB, chB := h.Connect()
	h.Setup(sA, "alice")
	h.Setup(sB, "bob")
	h.JoinChat(sA, "alice", "c1")
	h.JoinChat(sB, "bob", "c1")
	drain(chA)
	drain(chB)

	h.Typing(sA, "alice", "c1", true)

	if _, ok := findEvent(drain(chA), models.ServerEventTyping); ok {
		t.Error("typing echoed back to the originating session")
	}
	ev, ok := findEvent(drain(chB), models.ServerEventTyping)
	if !ok {
		t.Fatal("bob did not receive typing event")
	}
	if ev.ChatID != "c1" || ev.UserID != "alice" || !ev.Typing {
		t.Errorf("typing event = %+v", ev)
	}
}

func TestHub_JoinChatRequiresMembership(t *testing.T) {
	store := newFakeStore()
	store.chats["c1"] = models.Chat{ID: "c1", Participants: []string{"alice"}}
	h := NewHub(store)

	sA, chA := h.Connect()
	sM, chM := h.Connect()
	h.Setup(sA, "alice")
	h.Setup(sM, "mallory")
	h.JoinChat(sA, "alice", "c1")
	h.JoinChat(sM, "mallory", "c1") // not a participant, silently ignored
	drain(chA)
	drain(chM)

	h.Typing(sA, "alice", "c1", true)

	if _, ok := findEvent(drain(chM), models.ServerEventTyping); ok {
		t.Error("non-participant received room event")
	}
}

func TestHub_RelayChecksSender(t *testing.T) {
	store := newFakeStore()
	store.chats["c1"] = models.Chat{ID: "c1", Participants: []string{"alice", "bob"}}
	h := NewHub(store)

	sA, chA := h.Connect()
	h.Setup(sA, "alice")
	drain(chA)

	// Mallory is not in the chat: relay is dropped.
	h.Relay("mallory", &models.Message{ID: "m1", ChatID: "c1", SenderID: "mallory"})
	if _, ok := findEvent(drain(chA), models.ServerEventMessageReceived); ok {
		t.Error("relay from non-participant was delivered")
	}

	// Bob is a participant: alice gets the hint delivery.
	h.Relay("bob", &models.Message{ID: "m2", ChatID: "c1", SenderID: "bob"})
	if _, ok := findEvent(drain(chA), models.ServerEventMessageReceived); !ok {
		t.Error("relay from participant was not delivered")
	}

	// Nil and chat-less messages are ignored.
	h.Relay("bob", nil)
	h.Relay("bob", &models.Message{ID: "m3"})
}

func TestHub_DisconnectBeforeSetup(t *testing.T) {
	store := newFakeStore()
	h := NewHub(store)

	sessionID, _ := h.Connect()
	// Never sent setup; disconnect must be a benign no-op.
	h.Disconnect(sessionID)

	if len(h.OnlineUsers()) != 0 {
		t.Errorf("online set = %v, want empty", h.OnlineUsers())
	}
	if len(store.lastSeen) != 0 {
		t.Error("last seen touched for a session that never completed setup")
	}
}
