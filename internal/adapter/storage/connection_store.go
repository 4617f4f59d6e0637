// internal/adapter/storage/connection_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"shareboard/internal/domain/realtime"
)

// ConnectionStore mirrors the in-memory registry into Postgres so operators
// can see who is connected where. The registry never blocks on it.
type ConnectionStore struct {
	db *pgxpool.Pool
}

// NewConnectionStore creates a new connection store.
func NewConnectionStore(db *pgxpool.Pool) *ConnectionStore {
	return &ConnectionStore{
		db: db,
	}
}

var _ realtime.ConnectionStore = (*ConnectionStore)(nil)

// SaveConnection upserts a connection record.
func (s *ConnectionStore) SaveConnection(ctx context.Context, c realtime.Connection) error {
	query := `
		INSERT INTO connections (id, user_id, channel, remote_address, connected_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET user_id = $2, channel = $3, remote_address = $4, connected_at = $5
	`

	_, err := s.db.Exec(ctx, query, c.ID, c.UserID, c.Channel, c.RemoteAddress, c.ConnectedAt)
	if err != nil {
		return fmt.Errorf("error saving connection: %w", err)
	}
	return nil
}

// DeleteConnection removes a connection record; deleting an absent row is
// not an error.
func (s *ConnectionStore) DeleteConnection(ctx context.Context, connectionID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM connections WHERE id = $1`, connectionID)
	if err != nil {
		return fmt.Errorf("error deleting connection: %w", err)
	}
	return nil
}
