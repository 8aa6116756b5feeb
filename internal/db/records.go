package db

import (
	"database/sql"
	"fmt"

	"github.com/pai-labs/pai/internal/models"
)

func (db *Database) CreateTask(t *models.Task) error {
	query := `
        INSERT INTO tasks (user_id, title, description, status, priority, due_date, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        RETURNING id, created_at, updated_at`

	return db.db.QueryRow(query,
		t.UserID, t.Title, t.Description, t.Status, t.Priority, t.DueDate,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (db *Database) ListTasks(userID string) ([]models.Task, error) {
	rows, err := db.db.Query(`
        SELECT id, user_id, title, description, status, priority, due_date, created_at, updated_at
        FROM tasks WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status,
			&t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *Database) UpdateTask(userID string, t *models.Task) error {
	res, err := db.db.Exec(`
        UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND user_id = ?`,
		t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.ID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) DeleteTask(userID string, id int64) error {
	res, err := db.db.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) CreateMemoryItem(m *models.MemoryItem) error {
	query := `
        INSERT INTO memory_items (user_id, title, content, type, starred, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        RETURNING id, created_at, updated_at`

	return db.db.QueryRow(query,
		m.UserID, m.Title, m.Content, m.Type, m.Starred,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (db *Database) ListMemoryItems(userID string) ([]models.MemoryItem, error) {
	rows, err := db.db.Query(`
        SELECT id, user_id, title, content, type, starred, created_at, updated_at
        FROM memory_items WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemoryItems(rows)
}

// SearchMemory runs a full-text match over the user's memory items. Matching
// the table rather than a single column searches title and content both.
func (db *Database) SearchMemory(userID, query string) ([]models.MemoryItem, error) {
	rows, err := db.db.Query(`
        SELECT m.id, m.user_id, m.title, m.content, m.type, m.starred, m.created_at, m.updated_at
        FROM memory_items m
        JOIN memory_fts fts ON m.id = fts.docid
        WHERE memory_fts MATCH ? AND m.user_id = ?
        ORDER BY m.updated_at DESC`, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to search memory: %w", err)
	}
	defer rows.Close()
	return scanMemoryItems(rows)
}

func (db *Database) UpdateMemoryItem(userID string, m *models.MemoryItem) error {
	res, err := db.db.Exec(`
        UPDATE memory_items SET title = ?, content = ?, type = ?, starred = ?,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND user_id = ?`,
		m.Title, m.Content, m.Type, m.Starred, m.ID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) DeleteMemoryItem(userID string, id int64) error {
	res, err := db.db.Exec("DELETE FROM memory_items WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) CreateCalendarEvent(e *models.CalendarEvent) error {
	query := `
        INSERT INTO calendar_events (user_id, title, description, location, start_time, end_time, all_day, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	return db.db.QueryRow(query,
		e.UserID, e.Title, e.Description, e.Location, e.StartTime.UTC(), e.EndTime.UTC(), e.AllDay, e.Status,
	).Scan(&e.ID, &e.CreatedAt)
}

func (db *Database) ListCalendarEvents(userID string) ([]models.CalendarEvent, error) {
	rows, err := db.db.Query(`
        SELECT id, user_id, title, description, location, start_time, end_time, all_day, status, created_at
        FROM calendar_events WHERE user_id = ? ORDER BY start_time`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.CalendarEvent, 0)
	for rows.Next() {
		var e models.CalendarEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &e.Location,
			&e.StartTime, &e.EndTime, &e.AllDay, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (db *Database) UpdateCalendarEvent(userID string, e *models.CalendarEvent) error {
	res, err := db.db.Exec(`
        UPDATE calendar_events SET title = ?, description = ?, location = ?, start_time = ?,
            end_time = ?, all_day = ?, status = ?
        WHERE id = ? AND user_id = ?`,
		e.Title, e.Description, e.Location, e.StartTime.UTC(), e.EndTime.UTC(), e.AllDay, e.Status,
		e.ID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) DeleteCalendarEvent(userID string, id int64) error {
	res, err := db.db.Exec("DELETE FROM calendar_events WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) CreateFileRecord(f *models.FileRecord) error {
	query := `
        INSERT INTO files (user_id, name, content_type, size, url, uploaded_at)
        VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING id, uploaded_at`

	return db.db.QueryRow(query,
		f.UserID, f.Name, f.ContentType, f.Size, f.URL,
	).Scan(&f.ID, &f.UploadedAt)
}

func (db *Database) ListFileRecords(userID string) ([]models.FileRecord, error) {
	rows, err := db.db.Query(`
        SELECT id, user_id, name, content_type, size, url, uploaded_at
        FROM files WHERE user_id = ? ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make([]models.FileRecord, 0)
	for rows.Next() {
		var f models.FileRecord
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.ContentType, &f.Size, &f.URL, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (db *Database) DeleteFileRecord(userID string, id int64) error {
	res, err := db.db.Exec("DELETE FROM files WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) CreateNotification(n *models.Notification) error {
	query := `
        INSERT INTO notifications (user_id, title, message, kind, read, created_at)
        VALUES (?, ?, ?, ?, 0, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	return db.db.QueryRow(query,
		n.UserID, n.Title, n.Message, n.Kind,
	).Scan(&n.ID, &n.CreatedAt)
}

func (db *Database) ListNotifications(userID string) ([]models.Notification, error) {
	rows, err := db.db.Query(`
        SELECT id, user_id, title, message, kind, read, created_at
        FROM notifications WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notices := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Kind, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

func (db *Database) MarkNotificationRead(userID string, id int64) error {
	res, err := db.db.Exec(
		"UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanMemoryItems(rows *sql.Rows) ([]models.MemoryItem, error) {
	items := make([]models.MemoryItem, 0)
	for rows.Next() {
		var m models.MemoryItem
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &m.Content, &m.Type, &m.Starred,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
