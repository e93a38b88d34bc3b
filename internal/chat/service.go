package chat

import (
	"fmt"
	"time"

	"govorilka/internal/content"
	"govorilka/internal/models"

	"github.com/google/uuid"
)

type store interface {
	GetUser(id string) (models.User, error)
	GetChat(id string) (models.Chat, error)
	UpsertChat(chat models.Chat) error
	DeleteChat(id string) error
	ListChatsForUser(userID string) ([]models.Chat, error)
	FindDirectChat(userA, userB string) (models.Chat, bool, error)
	AppendMessage(msg *models.Message) error
	ListMessages(chatID string, from, to int64) ([]models.Message, error)
}

type notifier interface {
	NotifyMessage(msg *models.Message, participants []string)
}

// Service sequences persistence and delivery for chats and messages. A
// message is either durably stored and then delivered, or neither; delivery
// itself is best-effort and never fails a send.
type Service struct {
	store    store
	notifier notifier
	now      func() time.Time
}

func NewService(store store, notifier notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// SendMessage runs the send flow: authorize, persist (which advances the
// chat's latest-message pointer), then fan out to every participant's
// per-user group, the sender included.
func (s *Service) SendMessage(callerID, chatID, text string, attachments []models.Attachment) (models.Message, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return models.Message{}, err
	}
	if !chat.HasParticipant(callerID) {
		return models.Message{}, models.ErrNotParticipant
	}

	text = content.Sanitize(text)
	if text == "" && len(attachments) == 0 {
		return models.Message{}, fmt.Errorf("message is empty: %w", models.ErrInvalidArgument)
	}

	msg := models.Message{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		SenderID:    callerID,
		Content:     text,
		Attachments: attachments,
		Timestamp:   s.now().Unix(),
	}
	if err := s.store.AppendMessage(&msg); err != nil {
		return models.Message{}, fmt.Errorf("failed to persist message: %w", err)
	}

	// Participants are resolved from the chat loaded in this send, so
	// membership changes apply to all subsequent sends.
	s.notifier.NotifyMessage(&msg, chat.Participants)

	return msg, nil
}

// ListMessages returns the chat's messages in creation order.
func (s *Service) ListMessages(callerID, chatID string) ([]models.Message, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(callerID) {
		return nil, models.ErrNotParticipant
	}
	if chat.LastSeq == 0 {
		return []models.Message{}, nil
	}
	return s.store.ListMessages(chatID, 1, chat.LastSeq)
}

// AccessDirectChat finds the 1-1 chat between the caller and the other user,
// creating it if it does not exist yet. Returns whether it was created.
func (s *Service) AccessDirectChat(callerID, otherID string) (models.Chat, bool, error) {
	if otherID == "" || otherID == callerID {
		return models.Chat{}, false, fmt.Errorf("otherUserId must be another user: %w", models.ErrInvalidArgument)
	}
	if _, err := s.store.GetUser(otherID); err != nil {
		return models.Chat{}, false, err
	}

	chat, found, err := s.store.FindDirectChat(callerID, otherID)
	if err != nil {
		return models.Chat{}, false, err
	}
	if found {
		return chat, false, nil
	}

	now := s.now().Unix()
	chat = models.Chat{
		ID:           uuid.NewString(),
		IsGroup:      false,
		Participants: []string{callerID, otherID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.UpsertChat(chat); err != nil {
		return models.Chat{}, false, err
	}
	return chat, true, nil
}

// ListChats returns the caller's chats, newest activity first.
func (s *Service) ListChats(callerID string) ([]models.Chat, error) {
	return s.store.ListChatsForUser(callerID)
}

// CreateGroup creates a group chat with the caller as owner. The member list
// must name at least two other users; the caller is always included.
func (s *Service) CreateGroup(callerID, name string, memberIDs []string) (models.Chat, error) {
	name = content.Sanitize(name)
	if err := content.ValidateName(name); err != nil {
		return models.Chat{}, err
	}

	participants := []string{callerID}
	seen := map[string]bool{callerID: true}
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		if _, err := s.store.GetUser(id); err != nil {
			return models.Chat{}, fmt.Errorf("member %s: %w", id, err)
		}
		seen[id] = true
		participants = append(participants, id)
	}
	if len(participants) < 3 {
		return models.Chat{}, fmt.Errorf("group requires a name and at least 2 other users: %w", models.ErrInvalidArgument)
	}

	now := s.now().Unix()
	chat := models.Chat{
		ID:           uuid.NewString(),
		Name:         name,
		IsGroup:      true,
		Participants: participants,
		Owner:        callerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.UpsertChat(chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// getGroupAsAdmin loads a group chat and checks the caller holds admin
// rights on it. Used by all privileged group mutations.
func (s *Service) getGroupAsAdmin(callerID, chatID string) (models.Chat, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return models.Chat{}, err
	}
	if !chat.IsGroup {
		return models.Chat{}, models.ErrNotGroup
	}
	if !chat.IsAdmin(callerID) {
		return models.Chat{}, models.ErrNotAdmin
	}
	return chat, nil
}

func (s *Service) saveGroup(chat models.Chat) (models.Chat, error) {
	chat.UpdatedAt = s.now().Unix()
	if err := s.store.UpsertChat(chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// RenameGroup changes the group name. Admin only.
func (s *Service) RenameGroup(callerID, chatID, name string) (models.Chat, error) {
	chat, err := s.getGroupAsAdmin(callerID, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	name = content.Sanitize(name)
	if err := content.ValidateName(name); err != nil {
		return models.Chat{}, err
	}
	chat.Name = name
	return s.saveGroup(chat)
}

// AddToGroup adds a user to the group. Admin only; adding an existing member
// is a no-op.
func (s *Service) AddToGroup(callerID, chatID, userID string) (models.Chat, error) {
	chat, err := s.getGroupAsAdmin(callerID, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	if _, err := s.store.GetUser(userID); err != nil {
		return models.Chat{}, err
	}
	if chat.HasParticipant(userID) {
		return chat, nil
	}
	chat.Participants = append(chat.Participants, userID)
	return s.saveGroup(chat)
}

// RemoveFromGroup removes a user from the group. Admin only.
func (s *Service) RemoveFromGroup(callerID, chatID, userID string) (models.Chat, error) {
	chat, err := s.getGroupAsAdmin(callerID, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	chat.Participants = removeID(chat.Participants, userID)
	chat.Admins = removeID(chat.Admins, userID)
	return s.saveGroup(chat)
}

// ReplaceMembers swaps the entire participant list. Admin only.
func (s *Service) ReplaceMembers(callerID, chatID string, memberIDs []string) (models.Chat, error) {
	chat, err := s.getGroupAsAdmin(callerID, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	if len(memberIDs) < 2 {
		return models.Chat{}, fmt.Errorf("group requires at least 2 members: %w", models.ErrInvalidArgument)
	}
	var participants []string
	seen := make(map[string]bool)
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		if _, err := s.store.GetUser(id); err != nil {
			return models.Chat{}, fmt.Errorf("member %s: %w", id, err)
		}
		seen[id] = true
		participants = append(participants, id)
	}
	chat.Participants = participants
	return s.saveGroup(chat)
}

// SetGroupAvatar updates the group avatar. Admin only.
func (s *Service) SetGroupAvatar(callerID, chatID, avatarURL string) (models.Chat, error) {
	chat, err := s.getGroupAsAdmin(callerID, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	chat.AvatarURL = avatarURL
	return s.saveGroup(chat)
}

// PromoteAdmin grants admin rights to an existing group member. Admin only.
func (s *Service) PromoteAdmin(callerID, chatID, userID string) (models.Chat, error) {
	chat, err := s.getGroupAsAdmin(callerID, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	if !chat.HasParticipant(userID) {
		return models.Chat{}, models.ErrNotParticipant
	}
	if chat.IsAdmin(userID) {
		return chat, nil
	}
	chat.Admins = append(chat.Admins, userID)
	return s.saveGroup(chat)
}

// LeaveGroup removes the caller from the group. If the owner leaves,
// ownership passes to the first remaining participant; the last member
// leaving deletes the group and its messages. Returns whether the group was
// deleted.
func (s *Service) LeaveGroup(callerID, chatID string) (models.Chat, bool, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return models.Chat{}, false, err
	}
	if !chat.IsGroup {
		return models.Chat{}, false, models.ErrNotGroup
	}
	if !chat.HasParticipant(callerID) {
		return models.Chat{}, false, models.ErrNotParticipant
	}

	chat.Participants = removeID(chat.Participants, callerID)
	chat.Admins = removeID(chat.Admins, callerID)
	if chat.Owner == callerID {
		chat.Owner = ""
		if len(chat.Participants) > 0 {
			chat.Owner = chat.Participants[0]
		}
	}

	if len(chat.Participants) == 0 {
		if err := s.store.DeleteChat(chatID); err != nil {
			return models.Chat{}, false, err
		}
		return models.Chat{}, true, nil
	}

	chat, err = s.saveGroup(chat)
	return chat, false, err
}

// DeleteGroup removes the group and its messages. Owner only.
func (s *Service) DeleteGroup(callerID, chatID string) error {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup {
		return models.ErrNotGroup
	}
	if chat.Owner != callerID {
		return models.ErrNotAdmin
	}
	return s.store.DeleteChat(chatID)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
