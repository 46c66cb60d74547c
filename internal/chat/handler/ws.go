package handler

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"chatsync/internal/feed"
	"chatsync/internal/session"
	"chatsync/internal/sync"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeFeed streams raw change-feed events. Query parameters: token (auth),
// table (conversations or messages, default messages), conversation_id
// (optional scope).
func (h *ChatHandler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tokens.Validate(r.URL.Query().Get("token")); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	table := feed.Table(r.URL.Query().Get("table"))
	if table == "" {
		table = feed.TableMessages
	}
	if table != feed.TableMessages && table != feed.TableConversations {
		writeError(w, http.StatusBadRequest, "unknown table")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(table, r.URL.Query().Get("conversation_id"))
	defer sub.Cancel()

	go discardReads(conn, sub.Cancel)

	for event := range sub.C {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// ServeListSync streams display-ready conversation-list snapshots for the
// token's identity. The session provider provisions the identity row on
// first contact, exactly as a sign-in does.
func (h *ChatHandler) ServeListSync(w http.ResponseWriter, r *http.Request) {
	source := session.NewTokenSource(h.tokens)
	if _, err := source.SignIn(r.URL.Query().Get("token")); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	provider := session.NewProvider(source, h.users)
	if err := provider.Start(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer provider.Close()

	identity := provider.Identity()
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "no identity")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	list := sync.NewListSynchronizer(h.chats, h.hub)
	defer list.Close()

	if err := list.SetIdentity(r.Context(), identity); err != nil {
		log.Printf("list sync for %s failed: %v", identity.ID, err)
		return
	}
	if err := conn.WriteJSON(list.Snapshot()); err != nil {
		return
	}

	done := make(chan struct{})
	go discardReads(conn, func() { close(done) })

	for {
		select {
		case views := <-list.Updates():
			if err := conn.WriteJSON(views); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// ServeDetailSync streams per-day message groups for one conversation,
// marking incoming messages read on open and reconciling live inserts.
func (h *ChatHandler) ServeDetailSync(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Validate(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	conversationID := mux.Vars(r)["id"]

	conn, upgradeErr := upgrader.Upgrade(w, r, nil)
	if upgradeErr != nil {
		return
	}
	defer conn.Close()

	detail := sync.NewDetailSynchronizer(h.chats, h.hub)
	defer detail.Close()

	groups, err := detail.Select(r.Context(), conversationID, claims.UserID)
	if err != nil {
		log.Printf("detail sync for %s failed: %v", conversationID, err)
		return
	}
	if err := conn.WriteJSON(groups); err != nil {
		return
	}

	done := make(chan struct{})
	go discardReads(conn, func() { close(done) })

	for {
		select {
		case groups := <-detail.Updates():
			if err := conn.WriteJSON(groups); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// discardReads drains the connection until the peer goes away, then runs the
// teardown callback.
func discardReads(conn *websocket.Conn, teardown func()) {
	defer teardown()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
