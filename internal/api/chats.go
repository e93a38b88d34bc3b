package api

import (
	"encoding/json"
	"net/http"

	"govorilka/internal/models"
)

type accessChatRequest struct {
	OtherUserID string `json:"otherUserId"`
}

func (a *API) AccessChatHandler(w http.ResponseWriter, r *http.Request) {
	var req accessChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, created, err := a.chats.AccessDirectChat(userIDFrom(r), req.OtherUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, chat)
}

func (a *API) ChatsHandler(w http.ResponseWriter, r *http.Request) {
	chats, err := a.chats.ListChats(userIDFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

type createGroupRequest struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

func (a *API) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, err := a.chats.CreateGroup(userIDFrom(r), req.Name, req.Users)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

type groupUpdateRequest struct {
	ChatID string `json:"chatId"`
	Name   string `json:"name,omitempty"`
	UserID string `json:"userId,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (a *API) RenameGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req groupUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, err := a.chats.RenameGroup(userIDFrom(r), req.ChatID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (a *API) AddToGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req groupUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, err := a.chats.AddToGroup(userIDFrom(r), req.ChatID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (a *API) RemoveFromGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req groupUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, err := a.chats.RemoveFromGroup(userIDFrom(r), req.ChatID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (a *API) GroupAvatarHandler(w http.ResponseWriter, r *http.Request) {
	var req groupUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, err := a.chats.SetGroupAvatar(userIDFrom(r), req.ChatID, req.Avatar)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (a *API) AddAdminHandler(w http.ResponseWriter, r *http.Request) {
	var req groupUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, err := a.chats.PromoteAdmin(userIDFrom(r), req.ChatID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

type replaceMembersRequest struct {
	Users []string `json:"users"`
}

func (a *API) ReplaceMembersHandler(w http.ResponseWriter, r *http.Request) {
	var req replaceMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, err := a.chats.ReplaceMembers(userIDFrom(r), r.PathValue("chatId"), req.Users)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (a *API) LeaveGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req groupUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, deleted, err := a.chats.LeaveGroup(userIDFrom(r), req.ChatID)
	if err != nil {
		writeError(w, err)
		return
	}
	if deleted {
		writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Message: "Group deleted as last member left"})
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (a *API) DeleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.chats.DeleteGroup(userIDFrom(r), r.PathValue("chatId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Message: "Group deleted"})
}
