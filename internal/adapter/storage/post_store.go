// internal/adapter/storage/post_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shareboard/internal/domain/notify"
	"shareboard/internal/domain/post"
	"shareboard/internal/fault"
)

// PostStore implements the post persistence gateway over Postgres. Post rows
// carry a version column; writes are accepted only against the version the
// caller loaded, which closes the read-then-write race across both entry
// paths.
type PostStore struct {
	db *pgxpool.Pool
}

// NewPostStore creates a new post store.
func NewPostStore(db *pgxpool.Pool) *PostStore {
	return &PostStore{
		db: db,
	}
}

var _ post.Store = (*PostStore)(nil)

// CreatePost inserts a new aggregate at version 1.
func (s *PostStore) CreatePost(ctx context.Context, p *post.Post) error {
	query := `
		INSERT INTO posts (
			id, title, description, price, latitude, longitude,
			max_people, creator_id, created_at, updated_at, version
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, 1
		)
	`

	_, err := s.db.Exec(
		ctx,
		query,
		p.ID,
		p.Title,
		p.Description,
		p.Price,
		p.Latitude,
		p.Longitude,
		p.MaxPeople,
		p.CreatorID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting post: %w", err)
	}

	p.Version = 1
	return nil
}

// GetPost loads an aggregate with its members in canonical order.
func (s *PostStore) GetPost(ctx context.Context, id string) (*post.Post, error) {
	query := `
		SELECT
			id, title, description, price, latitude, longitude,
			max_people, creator_id, created_at, updated_at, version
		FROM posts
		WHERE id = $1
	`

	var p post.Post
	err := s.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.Latitude,
		&p.Longitude,
		&p.MaxPeople,
		&p.CreatorID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
	if err == pgx.ErrNoRows {
		return nil, fault.NotFound("post %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying post: %w", err)
	}

	memberQuery := `
		SELECT user_id, joined_at
		FROM post_members
		WHERE post_id = $1
		ORDER BY joined_at, user_id
	`

	rows, err := s.db.Query(ctx, memberQuery, id)
	if err != nil {
		return nil, fmt.Errorf("error querying post members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m post.Member
		if err := rows.Scan(&m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning post member: %w", err)
		}
		p.Members = append(p.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post members: %w", err)
	}

	p.Normalize()
	return &p, nil
}

// SavePost writes the aggregate and its notifications in one transaction,
// guarded by the version the caller loaded.
func (s *PostStore) SavePost(ctx context.Context, p *post.Post, notes []notify.Notification) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE posts
		SET
			title = $2,
			description = $3,
			price = $4,
			latitude = $5,
			longitude = $6,
			max_people = $7,
			creator_id = $8,
			updated_at = $9,
			version = version + 1
		WHERE id = $1 AND version = $10
	`

	tag, err := tx.Exec(
		ctx,
		query,
		p.ID,
		p.Title,
		p.Description,
		p.Price,
		p.Latitude,
		p.Longitude,
		p.MaxPeople,
		p.CreatorID,
		p.UpdatedAt,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("error updating post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return post.ErrVersionConflict
	}

	// Membership is derived state of the aggregate; rewrite it wholesale.
	if _, err := tx.Exec(ctx, `DELETE FROM post_members WHERE post_id = $1`, p.ID); err != nil {
		return fmt.Errorf("error clearing post members: %w", err)
	}
	for _, m := range p.Members {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO post_members (post_id, user_id, joined_at) VALUES ($1, $2, $3)`,
			p.ID, m.UserID, m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("error inserting post member: %w", err)
		}
	}

	if err := insertNotifications(ctx, tx, notes); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing post update: %w", err)
	}

	p.Version++
	return nil
}

// DeletePost removes the aggregate under the same version check, writing the
// notifications in the same transaction.
func (s *PostStore) DeletePost(ctx context.Context, id string, version int64, notes []notify.Notification) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return post.ErrVersionConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM post_members WHERE post_id = $1`, id); err != nil {
		return fmt.Errorf("error deleting post members: %w", err)
	}

	if err := insertNotifications(ctx, tx, notes); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing post delete: %w", err)
	}
	return nil
}

// FindPosts finds posts matching the filter.
func (s *PostStore) FindPosts(ctx context.Context, filter post.Filter) ([]post.Post, error) {
	// Build dynamic query
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`
		SELECT
			id, title, description, price, latitude, longitude,
			max_people, creator_id, created_at, updated_at, version
		FROM posts
		WHERE 1=1
	`)

	args := []interface{}{}
	argIndex := 1

	if filter.Text != "" {
		queryBuilder.WriteString(fmt.Sprintf(
			" AND (title ILIKE $%d OR description ILIKE $%d)",
			argIndex, argIndex,
		))
		args = append(args, "%"+filter.Text+"%")
		argIndex++
	}

	if !filter.CreatedAfter.IsZero() {
		queryBuilder.WriteString(fmt.Sprintf(" AND created_at >= $%d", argIndex))
		args = append(args, filter.CreatedAfter)
		argIndex++
	}

	if !filter.CreatedBefore.IsZero() {
		queryBuilder.WriteString(fmt.Sprintf(" AND created_at <= $%d", argIndex))
		args = append(args, filter.CreatedBefore)
		argIndex++
	}

	if filter.HasMemberID != "" {
		queryBuilder.WriteString(fmt.Sprintf(
			" AND EXISTS (SELECT 1 FROM post_members m WHERE m.post_id = posts.id AND m.user_id = $%d)",
			argIndex,
		))
		args = append(args, filter.HasMemberID)
		argIndex++
	}

	if filter.MaxPeopleMax > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND max_people <= $%d", argIndex))
		args = append(args, filter.MaxPeopleMax)
		argIndex++
	}

	if filter.OnlyAvailable {
		queryBuilder.WriteString(
			" AND (SELECT COUNT(*) FROM post_members m WHERE m.post_id = posts.id) < max_people",
		)
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC")

	if filter.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, filter.Limit)
		argIndex++
	} else {
		queryBuilder.WriteString(" LIMIT 20") // Default limit
	}

	if filter.Offset > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argIndex))
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var posts []post.Post
	var ids []string
	for rows.Next() {
		var p post.Post
		err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Description,
			&p.Price,
			&p.Latitude,
			&p.Longitude,
			&p.MaxPeople,
			&p.CreatorID,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	if len(posts) == 0 {
		return posts, nil
	}

	memberRows, err := s.db.Query(
		ctx,
		`SELECT post_id, user_id, joined_at FROM post_members WHERE post_id = ANY($1) ORDER BY joined_at, user_id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying members: %w", err)
	}
	defer memberRows.Close()

	byID := make(map[string]*post.Post, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
	}
	for memberRows.Next() {
		var postID string
		var m post.Member
		if err := memberRows.Scan(&postID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning member: %w", err)
		}
		if p, ok := byID[postID]; ok {
			p.Members = append(p.Members, m)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	for i := range posts {
		posts[i].Normalize()
	}
	return posts, nil
}

func insertNotifications(ctx context.Context, tx pgx.Tx, notes []notify.Notification) error {
	for _, n := range notes {
		snapshot, err := json.Marshal(n.Post)
		if err != nil {
			return fmt.Errorf("error marshaling notification snapshot: %w", err)
		}
		_, err = tx.Exec(
			ctx,
			`INSERT INTO notifications (id, target_user_id, message, post_snapshot, is_read, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			n.ID, n.TargetUserID, n.Message, snapshot, n.IsRead, n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("error inserting notification: %w", err)
		}
	}
	return nil
}
