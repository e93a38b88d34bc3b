package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"govorilka/internal/models"
	"govorilka/internal/storage"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

const maxUploadSize = 20 << 20 // 20 MiB

type createMessageRequest struct {
	ChatID      string              `json:"chatId"`
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

func (a *API) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := a.chats.SendMessage(userIDFrom(r), req.ChatID, req.Content, req.Attachments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (a *API) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := a.chats.ListMessages(userIDFrom(r), r.PathValue("chatId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type uploadResponse struct {
	FileID   string `json:"fileId"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// UploadHandler stores an attachment blob content-addressed by SHA-256 and
// records its metadata. The MIME type is sniffed from the content, never
// trusted from the client.
func (a *API) UploadHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(body) == 0 {
		http.Error(w, "Empty upload", http.StatusBadRequest)
		return
	}

	mimeType := "application/octet-stream"
	if kind, err := filetype.Match(body); err == nil && kind != filetype.Unknown {
		mimeType = kind.MIME.Value
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])

	size, err := a.files.Save(bytes.NewReader(body), hash)
	if err != nil {
		writeError(w, err)
		return
	}

	meta := storage.FileMetadata{
		ID:        uuid.NewString(),
		Hash:      hash,
		Name:      r.URL.Query().Get("name"),
		MimeType:  mimeType,
		Size:      size,
		CreatedAt: time.Now().Unix(),
		UserID:    userIDFrom(r),
	}
	if err := a.storage.UpsertFileMetadata(meta); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		FileID:   meta.ID,
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Size:     meta.Size,
	})
}

func (a *API) GetUploadHandler(w http.ResponseWriter, r *http.Request) {
	meta, err := a.storage.GetFileMetadata(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := a.files.Open(meta.Hash)
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", meta.MimeType)
	if _, err := io.Copy(w, f); err != nil {
		// Headers already sent; nothing left to do but log.
		log.Printf("failed to stream file %s: %v", meta.ID, err)
	}
}
