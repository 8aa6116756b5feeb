package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pai-labs/pai/internal/chat"
	"github.com/pai-labs/pai/internal/models"
)

type submitRequest struct {
	Content string `json:"content"`
}

type reactionRequest struct {
	Kind chat.ReactionKind `json:"kind"`
}

// handleCreateSession starts a fresh in-memory chat session for the user and
// opens its persisted conversation mirror. An existing live session is
// discarded, like remounting the chat view.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	gateway, err := h.gateway()
	if err != nil {
		h.logger.Error("failed to build gateway", zap.Error(err))
		httpError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conv, err := h.db.CreateConversation(user.ID, "New Conversation")
	if err != nil {
		h.logger.Error("failed to create conversation", zap.Error(err))
		httpError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	session := chat.NewSession(gateway, h.notifierFor(user.ID), h.logger, h.chatCfg)
	for _, msg := range session.Messages() {
		h.persistMessage(conv.ID, msg)
	}

	h.mu.Lock()
	h.sessions[user.ID] = &userSession{session: session, convID: conv.ID}
	h.mu.Unlock()

	respondJSON(w, http.StatusCreated, map[string]any{
		"conversation": conv,
		"messages":     session.Messages(),
	})
}

func (h *Handler) handleDestroySession(w http.ResponseWriter, r *http.Request) {
	h.dropSession(currentUser(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	us := h.liveSession(currentUser(r).ID)
	if us == nil {
		httpError(w, "No active chat session", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, us.session.Messages())
}

// handleSubmit starts one turn and streams message snapshots as server-sent
// events until the assistant reply reaches a terminal state.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !h.limiterFor(user.ID).Allow() {
		httpError(w, "Too many messages, slow down", http.StatusTooManyRequests)
		return
	}

	us := h.liveSession(user.ID)
	if us == nil {
		httpError(w, "No active chat session", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, unsubscribe := us.session.Subscribe()
	defer unsubscribe()
	persistCh, persistUnsub := us.session.Subscribe()

	if !us.session.Submit(req.Content) {
		persistUnsub()
		if us.session.Busy() {
			httpError(w, "A response is already in progress", http.StatusConflict)
		} else {
			httpError(w, "Message content is required", http.StatusBadRequest)
		}
		return
	}
	turnsStarted.Inc()
	go h.persistTurn(us, persistCh, persistUnsub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-updates:
			if !open {
				return
			}
			writeSSE(w, flusher, msg)
			if msg.Author == models.AuthorAssistant && msg.State.Terminal() {
				return
			}
		}
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	us := h.liveSession(currentUser(r).ID)
	if us == nil {
		httpError(w, "No active chat session", http.StatusNotFound)
		return
	}
	us.session.Cancel()
	cancellations.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReaction(w http.ResponseWriter, r *http.Request) {
	us := h.liveSession(currentUser(r).ID)
	if us == nil {
		httpError(w, "No active chat session", http.StatusNotFound)
		return
	}

	var req reactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, ok := us.session.Store().ToggleReaction(mux.Vars(r)["id"], req.Kind)
	if !ok {
		httpError(w, "Unknown message or reaction kind", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.db.GetConversations(currentUser(r).ID)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		httpError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, conversations)
}

const defaultHistoryLimit = 50

func (h *Handler) handleConversationHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	history, err := h.db.GetConversationHistory(currentUser(r).ID, id, limit)
	if err != nil {
		h.serverError(w, "failed to load conversation history", err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

type renameConversationRequest struct {
	Title string `json:"title"`
}

func (h *Handler) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req renameConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		httpError(w, "Conversation title is required", http.StatusBadRequest)
		return
	}
	err := h.db.UpdateConversationTitle(currentUser(r).ID, id, req.Title)
	if h.respondMutation(w, "failed to rename conversation", err) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.db.DeleteConversation(currentUser(r).ID, id)
	if h.respondMutation(w, "failed to delete conversation", err) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// persistTurn mirrors one turn into storage: the user message as soon as it
// appears and the assistant reply once it reaches a terminal state. Runs
// detached from the SSE stream so a dropped client cannot lose the write.
func (h *Handler) persistTurn(us *userSession, updates <-chan models.Message, unsubscribe func()) {
	defer unsubscribe()

	for msg := range updates {
		switch {
		case msg.Author == models.AuthorUser:
			h.persistMessage(us.convID, msg)
		case msg.State.Terminal():
			if msg.State == models.DeliveryErrored {
				gatewayErrors.Inc()
			}
			h.persistMessage(us.convID, msg)
			return
		}
	}
}

func (h *Handler) persistMessage(convID int64, msg models.Message) {
	stored := &models.StoredMessage{
		ConvID:  convID,
		Author:  msg.Author,
		Content: msg.Content,
	}
	if err := h.db.SaveMessage(stored); err != nil {
		h.logger.Error("failed to persist message",
			zap.Error(err),
			zap.Int64("conversation_id", convID))
	}
}

func (h *Handler) liveSession(userID string) *userSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[userID]
}

func (h *Handler) dropSession(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, userID)
}

func (h *Handler) limiterFor(userID string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	limiter, ok := h.limiters[userID]
	if !ok {
		// One message every two seconds sustained, short bursts allowed.
		limiter = rate.NewLimiter(rate.Limit(0.5), 5)
		h.limiters[userID] = limiter
	}
	return limiter
}

func (h *Handler) notifierFor(userID string) chat.Notifier {
	return &dbNotifier{h: h, userID: userID}
}

// dbNotifier turns session notifications into persisted notification rows so
// the notifications dashboard sees them.
type dbNotifier struct {
	h      *Handler
	userID string
}

func (n *dbNotifier) Success(msg string) { n.save(models.NoticeSuccess, msg) }
func (n *dbNotifier) Error(msg string)   { n.save(models.NoticeError, msg) }

func (n *dbNotifier) save(kind models.NotificationKind, msg string) {
	notice := &models.Notification{
		UserID:  n.userID,
		Title:   "Chat",
		Message: msg,
		Kind:    kind,
	}
	if err := n.h.db.CreateNotification(notice); err != nil {
		n.h.logger.Error("failed to save notification", zap.Error(err))
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, msg models.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
