package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"chatsync/internal/chat/service"
	"chatsync/internal/common"
	"chatsync/internal/dbmysql"
	"chatsync/internal/feed"
	"chatsync/internal/sync"
	"chatsync/internal/user"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// ChatHandler exposes the conversation API over HTTP and websockets.
type ChatHandler struct {
	chats  service.ChatService
	users  user.UserService
	hub    *feed.Hub
	tokens *common.TokenManager
}

func NewChatHandler(chats service.ChatService, users user.UserService, hub *feed.Hub, tokens *common.TokenManager) *ChatHandler {
	return &ChatHandler{chats: chats, users: users, hub: hub, tokens: tokens}
}

// RegisterRoutes mounts the REST API behind bearer auth and the websocket
// endpoints, which authenticate via a token query parameter because browser
// websocket clients cannot set headers.
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(common.AuthMiddleware(h.tokens))
	api.HandleFunc("/conversations", h.ListConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations", h.CreateConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", h.GetConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", h.GetMessages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", h.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/read", h.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/tags", h.ListTags).Methods(http.MethodGet)
	api.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)

	r.HandleFunc("/ws/feed", h.ServeFeed)
	r.HandleFunc("/ws/conversations", h.ServeListSync)
	r.HandleFunc("/ws/conversations/{id}", h.ServeDetailSync)
}

// ListConversations returns the viewer's display-ready conversation rows,
// most recently active first.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	claims, ok := common.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	overview, err := h.chats.ListConversations(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := sync.BuildViews(overview, claims.UserID, timeNow())
	writeJSON(w, http.StatusOK, map[string]any{"conversations": views})
}

type createConversationBody struct {
	Recipients []*dbmysql.User `json:"recipients"`
	IsGroup    bool            `json:"is_group"`
	GroupName  string          `json:"group_name"`
	TagID      string          `json:"tag_id"`
}

func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	claims, ok := common.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	var body createConversationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.chats.CreateConversation(r.Context(), &service.CreateConversationRequest{
		Creator: &dbmysql.User{
			ID:       claims.UserID,
			Email:    claims.Email,
			FullName: claims.FullName,
		},
		Recipients: body.Recipients,
		IsGroup:    body.IsGroup,
		GroupName:  body.GroupName,
		TagID:      body.TagID,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	record, err := h.chats.GetConversation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// GetMessages returns the full history grouped by day, oldest first.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chats.GetMessageHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": sync.GroupByDate(messages),
	})
}

type sendMessageBody struct {
	Content  string `json:"content"`
	ClientID string `json:"client_id"`
}

// SendMessage stores a message from the authenticated sender. The optional
// client_id is echoed back so optimistic senders can match the stored row.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := common.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	var body sendMessageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := common.ValidateMessageContent(body.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chats.SendMessage(r.Context(), &dbmysql.Message{
		ConversationID: mux.Vars(r)["id"],
		SenderID:       claims.UserID,
		ClientID:       body.ClientID,
		Content:        body.Content,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// MarkRead flips every unread incoming message in the conversation and
// returns the affected ids.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := common.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	ids, err := h.chats.MarkIncomingRead(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message_ids": ids})
}

func (h *ChatHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.chats.ListTags(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// ListUsers returns everyone except the viewer, for the recipient picker.
func (h *ChatHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := common.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	users, err := h.users.ListUsers(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "encoding response failed", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
