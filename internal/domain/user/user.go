// internal/domain/user/user.go

package user

import "context"

// User is the minimal identity shape the engine needs. Credential handling
// lives in an external collaborator.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Store looks up users for the entry adapters (resolving removal emails,
// checking transfer targets exist).
type Store interface {
	FindUsersByIDs(ctx context.Context, ids []string) ([]User, error)
	FindUsersByEmails(ctx context.Context, emails []string) ([]User, error)
}
