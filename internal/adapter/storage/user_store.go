// internal/adapter/storage/user_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"shareboard/internal/domain/user"
)

// UserStore looks up users by id or email. Account management itself lives
// elsewhere; the engine only resolves references.
type UserStore struct {
	db *pgxpool.Pool
}

// NewUserStore creates a new user store.
func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{
		db: db,
	}
}

var _ user.Store = (*UserStore)(nil)

// FindUsersByIDs returns the users whose ids are in ids; unknown ids are
// simply absent from the result.
func (s *UserStore) FindUsersByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	return s.find(ctx, `SELECT id, email, name FROM users WHERE id = ANY($1)`, ids)
}

// FindUsersByEmails returns the users whose emails are in emails.
func (s *UserStore) FindUsersByEmails(ctx context.Context, emails []string) ([]user.User, error) {
	return s.find(ctx, `SELECT id, email, name FROM users WHERE email = ANY($1)`, emails)
}

func (s *UserStore) find(ctx context.Context, query string, keys []string) ([]user.User, error) {
	if len(keys) == 0 {
		return []user.User{}, nil
	}

	rows, err := s.db.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
