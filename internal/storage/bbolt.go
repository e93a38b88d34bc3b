package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"govorilka/internal/models"

	"go.etcd.io/bbolt"
)

var (
	bucketUsers        = []byte("users")
	bucketUsersByEmail = []byte("users_by_email")
	bucketChats        = []byte("chats")
	bucketMessages     = []byte("messages")
	bucketFiles        = []byte("files")
)

type BboltStorage struct {
	db *bbolt.DB
}

func NewBboltStorage(path string) (*BboltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketUsersByEmail, bucketChats, bucketMessages, bucketFiles} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

func userFromDB(dbUser DBUser) models.User {
	return models.User{
		ID:        dbUser.ID,
		Name:      dbUser.Name,
		Email:     dbUser.Email,
		AvatarURL: dbUser.AvatarURL,
		LastSeen:  dbUser.LastSeen,
		CreatedAt: dbUser.CreatedAt,
	}
}

// CreateUser stores a new user and their password hash. Email uniqueness is
// enforced via the email index inside the same transaction.
func (s *BboltStorage) CreateUser(user models.User, passwordHash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(bucketUsersByEmail)
		emailKey := []byte(strings.ToLower(user.Email))
		if idx.Get(emailKey) != nil {
			return models.ErrUserExists
		}

		dbUser := &DBUser{
			ID:           user.ID,
			Name:         user.Name,
			Email:        user.Email,
			AvatarURL:    user.AvatarURL,
			PasswordHash: passwordHash,
			LastSeen:     user.LastSeen,
			CreatedAt:    user.CreatedAt,
		}
		data, err := dbUser.MarshalBinary()
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketUsers).Put(dbUser.Key(), data); err != nil {
			return err
		}
		return idx.Put(emailKey, []byte(user.ID))
	})
}

func (s *BboltStorage) getDBUser(tx *bbolt.Tx, id string) (DBUser, error) {
	var dbUser DBUser
	data := tx.Bucket(bucketUsers).Get([]byte(id))
	if data == nil {
		return dbUser, models.ErrNotFound
	}
	return dbUser, dbUser.UnmarshalBinary(data)
}

func (s *BboltStorage) GetUser(id string) (models.User, error) {
	var user models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		dbUser, err := s.getDBUser(tx, id)
		if err != nil {
			return err
		}
		user = userFromDB(dbUser)
		return nil
	})
	return user, err
}

// GetCredentialsByEmail returns the user and their password hash for login.
func (s *BboltStorage) GetCredentialsByEmail(email string) (models.User, string, error) {
	var (
		user models.User
		hash string
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUsersByEmail).Get([]byte(strings.ToLower(email)))
		if id == nil {
			return models.ErrNotFound
		}
		dbUser, err := s.getDBUser(tx, string(id))
		if err != nil {
			return err
		}
		user = userFromDB(dbUser)
		hash = dbUser.PasswordHash
		return nil
	})
	return user, hash, err
}

// TouchLastSeen updates the user's last-seen timestamp.
func (s *BboltStorage) TouchLastSeen(id string, ts int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbUser, err := s.getDBUser(tx, id)
		if err != nil {
			return err
		}
		dbUser.LastSeen = ts
		data, err := dbUser.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketUsers).Put(dbUser.Key(), data)
	})
}

// SearchUsers returns users whose name contains q (case-insensitive),
// excluding excludeID. An empty q matches everyone.
func (s *BboltStorage) SearchUsers(q, excludeID string) ([]models.User, error) {
	q = strings.ToLower(q)
	var users []models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			var dbUser DBUser
			if err := dbUser.UnmarshalBinary(v); err != nil {
				return err
			}
			if dbUser.ID == excludeID {
				return nil
			}
			if q != "" && !strings.Contains(strings.ToLower(dbUser.Name), q) {
				return nil
			}
			users = append(users, userFromDB(dbUser))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func chatFromDB(dbChat DBChat) models.Chat {
	return models.Chat{
		ID:           dbChat.ID,
		Name:         dbChat.Name,
		IsGroup:      dbChat.IsGroup,
		Participants: dbChat.Participants,
		Owner:        dbChat.Owner,
		Admins:       dbChat.Admins,
		AvatarURL:    dbChat.AvatarURL,
		LastSeq:      dbChat.LastSeq,
		CreatedAt:    dbChat.CreatedAt,
		UpdatedAt:    dbChat.UpdatedAt,
	}
}

func chatToDB(chat models.Chat) DBChat {
	return DBChat{
		ID:           chat.ID,
		Name:         chat.Name,
		IsGroup:      chat.IsGroup,
		Participants: chat.Participants,
		Owner:        chat.Owner,
		Admins:       chat.Admins,
		AvatarURL:    chat.AvatarURL,
		LastSeq:      chat.LastSeq,
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
	}
}

// UpsertChat saves the chat struct to the database.
func (s *BboltStorage) UpsertChat(chat models.Chat) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbChat := chatToDB(chat)
		data, err := dbChat.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketChats).Put(dbChat.Key(), data)
	})
}

func (s *BboltStorage) GetChat(id string) (models.Chat, error) {
	var chat models.Chat
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChats).Get([]byte(id))
		if data == nil {
			return models.ErrNotFound
		}
		var dbChat DBChat
		if err := dbChat.UnmarshalBinary(data); err != nil {
			return err
		}
		chat = chatFromDB(dbChat)
		return nil
	})
	return chat, err
}

// ListChatsForUser returns all chats the user participates in, newest
// activity first, with the latest message attached.
func (s *BboltStorage) ListChatsForUser(userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.db.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketChats).ForEach(func(k, v []byte) error {
			var dbChat DBChat
			if err := dbChat.UnmarshalBinary(v); err != nil {
				return err
			}
			chat := chatFromDB(dbChat)
			if !chat.HasParticipant(userID) {
				return nil
			}
			chats = append(chats, chat)
			return nil
		})
		if err != nil {
			return err
		}

		for i := range chats {
			if chats[i].LastSeq == 0 {
				continue
			}
			msg, err := getMessageTx(tx, chats[i].ID, chats[i].LastSeq)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return err
			}
			chats[i].LatestMessage = &msg
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].UpdatedAt > chats[j].UpdatedAt })
	return chats, nil
}

// FindDirectChat looks for an existing 1-1 chat between the two users.
func (s *BboltStorage) FindDirectChat(userA, userB string) (models.Chat, bool, error) {
	var (
		chat  models.Chat
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChats).ForEach(func(k, v []byte) error {
			if found {
				return nil
			}
			var dbChat DBChat
			if err := dbChat.UnmarshalBinary(v); err != nil {
				return err
			}
			c := chatFromDB(dbChat)
			if !c.IsGroup && c.HasParticipant(userA) && c.HasParticipant(userB) {
				chat = c
				found = true
			}
			return nil
		})
	})
	return chat, found, err
}

// DeleteChat removes the chat and all of its messages.
func (s *BboltStorage) DeleteChat(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketChats).Get([]byte(id)) == nil {
			return models.ErrNotFound
		}
		if err := tx.Bucket(bucketChats).Delete([]byte(id)); err != nil {
			return err
		}
		msgBucket := tx.Bucket(bucketMessages)
		if msgBucket.Bucket([]byte(id)) != nil {
			return msgBucket.DeleteBucket([]byte(id))
		}
		return nil
	})
}

// AppendMessage persists the message and advances the chat's latest-message
// pointer in one transaction. The message Seq is assigned here from the
// chat's sequence counter, so per-chat ordering matches persistence order.
func (s *BboltStorage) AppendMessage(msg *models.Message) error {
	if msg.ChatID == "" {
		return errors.New("message missing chatID")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		chatBucket := tx.Bucket(bucketChats)
		chatKey := []byte(msg.ChatID)
		chatData := chatBucket.Get(chatKey)
		if chatData == nil {
			return fmt.Errorf("chat %s: %w", msg.ChatID, models.ErrNotFound)
		}

		var dbChat DBChat
		if err := dbChat.UnmarshalBinary(chatData); err != nil {
			return fmt.Errorf("failed to unmarshal chat: %w", err)
		}

		dbChat.LastSeq++
		dbChat.UpdatedAt = msg.Timestamp
		msg.Seq = dbChat.LastSeq

		msgChatBucket, err := tx.Bucket(bucketMessages).CreateBucketIfNotExists(chatKey)
		if err != nil {
			return fmt.Errorf("failed to create chat message bucket: %w", err)
		}

		dbMessage := DBMessage{
			ID:        msg.ID,
			Seq:       msg.Seq,
			Timestamp: msg.Timestamp,
			ChatID:    msg.ChatID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
		}
		if len(msg.Attachments) > 0 {
			dbMessage.Attachments = make([]DBAttachment, len(msg.Attachments))
			for i, a := range msg.Attachments {
				dbMessage.Attachments[i] = DBAttachment{
					Name:     a.Name,
					MimeType: a.MimeType,
					FileID:   a.FileID,
				}
			}
		}

		data, err := dbMessage.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if err := msgChatBucket.Put(dbMessage.Key(), data); err != nil {
			return fmt.Errorf("failed to put message: %w", err)
		}

		newChatData, err := dbChat.MarshalBinary()
		if err != nil {
			return err
		}
		return chatBucket.Put(chatKey, newChatData)
	})
}

func messageFromDB(dbMsg DBMessage) models.Message {
	msg := models.Message{
		ID:        dbMsg.ID,
		Seq:       dbMsg.Seq,
		Timestamp: dbMsg.Timestamp,
		ChatID:    dbMsg.ChatID,
		SenderID:  dbMsg.SenderID,
		Content:   dbMsg.Content,
	}
	if len(dbMsg.Attachments) > 0 {
		msg.Attachments = make([]models.Attachment, len(dbMsg.Attachments))
		for i, a := range dbMsg.Attachments {
			msg.Attachments[i] = models.Attachment{
				Name:     a.Name,
				MimeType: a.MimeType,
				FileID:   a.FileID,
			}
		}
	}
	return msg
}

func getMessageTx(tx *bbolt.Tx, chatID string, seq int64) (models.Message, error) {
	chatBucket := tx.Bucket(bucketMessages).Bucket([]byte(chatID))
	if chatBucket == nil {
		return models.Message{}, models.ErrNotFound
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	data := chatBucket.Get(key)
	if data == nil {
		return models.Message{}, models.ErrNotFound
	}
	var dbMsg DBMessage
	if err := dbMsg.UnmarshalBinary(data); err != nil {
		return models.Message{}, err
	}
	return messageFromDB(dbMsg), nil
}

// ListMessages returns messages with seq in [from, to] in ascending order.
func (s *BboltStorage) ListMessages(chatID string, from, to int64) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		chatBucket := tx.Bucket(bucketMessages).Bucket([]byte(chatID))
		if chatBucket == nil {
			return nil // No messages for this chat
		}

		c := chatBucket.Cursor()

		minKey := make([]byte, 8)
		binary.BigEndian.PutUint64(minKey, uint64(from))

		maxKey := make([]byte, 8)
		binary.BigEndian.PutUint64(maxKey, uint64(to))

		for k, v := c.Seek(minKey); k != nil && bytes.Compare(k, maxKey) <= 0; k, v = c.Next() {
			var dbMsg DBMessage
			if err := dbMsg.UnmarshalBinary(v); err != nil {
				return err
			}
			messages = append(messages, messageFromDB(dbMsg))
		}
		return nil
	})
	return messages, err
}
