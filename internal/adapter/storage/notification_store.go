// internal/adapter/storage/notification_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"shareboard/internal/domain/notify"
)

// NotificationStore persists notifications created outside a post
// transaction. Rows created with a state change go through PostStore in the
// same transaction instead.
type NotificationStore struct {
	db *pgxpool.Pool
}

// NewNotificationStore creates a new notification store.
func NewNotificationStore(db *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{
		db: db,
	}
}

var _ notify.Store = (*NotificationStore)(nil)

// CreateNotification inserts a durable notification row.
func (s *NotificationStore) CreateNotification(ctx context.Context, n notify.Notification) error {
	snapshot, err := json.Marshal(n.Post)
	if err != nil {
		return fmt.Errorf("error marshaling notification snapshot: %w", err)
	}

	_, err = s.db.Exec(
		ctx,
		`INSERT INTO notifications (id, target_user_id, message, post_snapshot, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.TargetUserID, n.Message, snapshot, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting notification: %w", err)
	}
	return nil
}
