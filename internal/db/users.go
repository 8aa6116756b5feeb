package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pai-labs/pai/internal/models"
)

func (db *Database) CreateUser(u *models.User) error {
	query := `
        INSERT INTO users (id, email, name, avatar_url, role, plan, password_hash, created_at, last_active)
        VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        RETURNING created_at, last_active`

	return db.db.QueryRow(query,
		u.ID, u.Email, u.Name, u.AvatarURL, u.Role, u.Plan, u.PasswordHash,
	).Scan(&u.CreatedAt, &u.LastActive)
}

func (db *Database) GetUser(id string) (*models.User, error) {
	return db.scanUser(db.db.QueryRow(
		`SELECT id, email, name, avatar_url, role, plan, password_hash, created_at, last_active
         FROM users WHERE id = ?`, id))
}

func (db *Database) GetUserByEmail(email string) (*models.User, error) {
	return db.scanUser(db.db.QueryRow(
		`SELECT id, email, name, avatar_url, role, plan, password_hash, created_at, last_active
         FROM users WHERE email = ?`, email))
}

func (db *Database) ListUsers() ([]models.User, error) {
	rows, err := db.db.Query(
		`SELECT id, email, name, avatar_url, role, plan, password_hash, created_at, last_active
         FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.Plan,
			&u.PasswordHash, &u.CreatedAt, &u.LastActive); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *Database) UpdateUser(id, name string, role models.Role, plan models.Plan) error {
	res, err := db.db.Exec(
		"UPDATE users SET name = ?, role = ?, plan = ? WHERE id = ?", name, role, plan, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) TouchUser(id string) error {
	_, err := db.db.Exec("UPDATE users SET last_active = CURRENT_TIMESTAMP WHERE id = ?", id)
	return err
}

func (db *Database) DeleteUser(id string) error {
	res, err := db.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *Database) CreateAuthSession(token, userID string, expiresAt time.Time) error {
	_, err := db.db.Exec(
		"INSERT INTO auth_sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC())
	return err
}

// GetAuthSession resolves a bearer token to a user id. Expired sessions are
// removed and reported as not found.
func (db *Database) GetAuthSession(token string) (string, error) {
	var userID string
	var expiresAt time.Time
	err := db.db.QueryRow(
		"SELECT user_id, expires_at FROM auth_sessions WHERE token = ?", token,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if time.Now().After(expiresAt) {
		_ = db.DeleteAuthSession(token)
		return "", ErrNotFound
	}
	return userID, nil
}

func (db *Database) DeleteAuthSession(token string) error {
	_, err := db.db.Exec("DELETE FROM auth_sessions WHERE token = ?", token)
	return err
}

func (db *Database) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.Plan,
		&u.PasswordHash, &u.CreatedAt, &u.LastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
