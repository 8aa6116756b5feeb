package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pai-labs/pai/internal/db"
	"github.com/pai-labs/pai/internal/models"
)

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if !decodeBody(w, r, &task) {
		return
	}
	if task.Title == "" {
		httpError(w, "Task title is required", http.StatusBadRequest)
		return
	}
	if task.Status == "" {
		task.Status = models.TaskTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	task.UserID = currentUser(r).ID
	if err := h.db.CreateTask(&task); err != nil {
		h.serverError(w, "failed to create task", err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.db.ListTasks(currentUser(r).ID)
	if err != nil {
		h.serverError(w, "failed to list tasks", err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var task models.Task
	if !decodeBody(w, r, &task) {
		return
	}
	task.ID = id
	err := h.db.UpdateTask(currentUser(r).ID, &task)
	if h.respondMutation(w, "failed to update task", err) {
		respondJSON(w, http.StatusOK, task)
	}
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.db.DeleteTask(currentUser(r).ID, id)
	if h.respondMutation(w, "failed to delete task", err) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	var item models.MemoryItem
	if !decodeBody(w, r, &item) {
		return
	}
	if item.Title == "" && item.Content == "" {
		httpError(w, "Memory title or content is required", http.StatusBadRequest)
		return
	}
	if item.Type == "" {
		item.Type = models.MemoryNote
	}
	item.UserID = currentUser(r).ID
	if err := h.db.CreateMemoryItem(&item); err != nil {
		h.serverError(w, "failed to create memory item", err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleListMemory(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.ListMemoryItems(currentUser(r).ID)
	if err != nil {
		h.serverError(w, "failed to list memory items", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleSearchMemory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httpError(w, "Query parameter 'q' is required", http.StatusBadRequest)
		return
	}
	items, err := h.db.SearchMemory(currentUser(r).ID, query)
	if err != nil {
		h.serverError(w, "failed to search memory", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var item models.MemoryItem
	if !decodeBody(w, r, &item) {
		return
	}
	item.ID = id
	err := h.db.UpdateMemoryItem(currentUser(r).ID, &item)
	if h.respondMutation(w, "failed to update memory item", err) {
		respondJSON(w, http.StatusOK, item)
	}
}

func (h *Handler) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.db.DeleteMemoryItem(currentUser(r).ID, id)
	if h.respondMutation(w, "failed to delete memory item", err) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.CalendarEvent
	if !decodeBody(w, r, &event) {
		return
	}
	if event.Title == "" {
		httpError(w, "Event title is required", http.StatusBadRequest)
		return
	}
	if event.EndTime.Before(event.StartTime) {
		httpError(w, "Event must end after it starts", http.StatusBadRequest)
		return
	}
	if event.Status == "" {
		event.Status = models.EventConfirmed
	}
	event.UserID = currentUser(r).ID
	if err := h.db.CreateCalendarEvent(&event); err != nil {
		h.serverError(w, "failed to create event", err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.db.ListCalendarEvents(currentUser(r).ID)
	if err != nil {
		h.serverError(w, "failed to list events", err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *Handler) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var event models.CalendarEvent
	if !decodeBody(w, r, &event) {
		return
	}
	event.ID = id
	err := h.db.UpdateCalendarEvent(currentUser(r).ID, &event)
	if h.respondMutation(w, "failed to update event", err) {
		respondJSON(w, http.StatusOK, event)
	}
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.db.DeleteCalendarEvent(currentUser(r).ID, id)
	if h.respondMutation(w, "failed to delete event", err) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var file models.FileRecord
	if !decodeBody(w, r, &file) {
		return
	}
	if file.Name == "" {
		httpError(w, "File name is required", http.StatusBadRequest)
		return
	}
	file.UserID = currentUser(r).ID
	if err := h.db.CreateFileRecord(&file); err != nil {
		h.serverError(w, "failed to create file record", err)
		return
	}
	respondJSON(w, http.StatusCreated, file)
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.db.ListFileRecords(currentUser(r).ID)
	if err != nil {
		h.serverError(w, "failed to list files", err)
		return
	}
	respondJSON(w, http.StatusOK, files)
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.db.DeleteFileRecord(currentUser(r).ID, id)
	if h.respondMutation(w, "failed to delete file", err) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notices, err := h.db.ListNotifications(currentUser(r).ID)
	if err != nil {
		h.serverError(w, "failed to list notifications", err)
		return
	}
	respondJSON(w, http.StatusOK, notices)
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.db.MarkNotificationRead(currentUser(r).ID, id)
	if h.respondMutation(w, "failed to mark notification read", err) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// respondMutation maps update/delete errors onto HTTP statuses and reports
// whether the caller should write its success response.
func (h *Handler) respondMutation(w http.ResponseWriter, logMsg string, err error) bool {
	if errors.Is(err, db.ErrNotFound) {
		httpError(w, "Record not found", http.StatusNotFound)
		return false
	}
	if err != nil {
		h.serverError(w, logMsg, err)
		return false
	}
	return true
}

func (h *Handler) serverError(w http.ResponseWriter, logMsg string, err error) {
	h.logger.Error(logMsg, zap.Error(err))
	httpError(w, "Internal server error", http.StatusInternalServerError)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpError(w, "Invalid record ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
