package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

const userColumns = `id, user_code, email, full_name, phone, password_hash, created_at`

// CreateUser persists a new user account, generating its ID, public
// user code and creation timestamp if unset. A duplicate email yields
// storage.ErrConflict.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}

	for attempt := 0; ; attempt++ {
		if user.UserCode == "" {
			user.UserCode = "MU-" + shortCode(6)
		}
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.UserCode, user.Email, user.FullName,
			user.Phone, user.PasswordHash, user.CreatedAt,
		)
		// A code collision is retryable; a duplicate email is not.
		if isUniqueViolation(err) {
			if attempt < 3 {
				if _, lookupErr := s.GetUserByEmail(ctx, user.Email); lookupErr == storage.ErrNotFound {
					user.UserCode = ""
					continue
				}
			}
			return fmt.Errorf("email %s already registered: %w", user.Email, storage.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	}
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.UserCode, &u.Email, &u.FullName, &u.Phone, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// GetUserByCode retrieves a user by public user code.
func (s *SQLiteStore) GetUserByCode(ctx context.Context, code string) (*models.User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_code = ?`, code))
}

// SearchUsers retrieves users whose name, email or code matches the
// query, for the member-search dialog.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	pattern := "%" + query + "%"
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE full_name LIKE ? OR email LIKE ? OR user_code LIKE ?
		 ORDER BY full_name LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.UserCode, &u.Email, &u.FullName, &u.Phone, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
