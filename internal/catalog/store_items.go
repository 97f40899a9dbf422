package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediaflow/internal/services"
)

// NewItem holds the ingest facts for a file entering the catalog.
type NewItem struct {
	OwnerID   string
	Title     string
	FilePath  string
	MimeType  string
	SizeBytes int64
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Statuses []Status
	OwnerID  string
	Limit    int
}

// Summary aggregates item counts per status.
type Summary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Create inserts a new item in the pending/queued state.
func (s *Store) Create(ctx context.Context, in NewItem) (*Item, error) {
	if strings.TrimSpace(in.FilePath) == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create", "file path is required", nil)
	}
	if strings.TrimSpace(in.MimeType) == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create", "mime type is required", nil)
	}
	if in.SizeBytes < 0 {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create", "size must not be negative", nil)
	}

	now := formatTime(time.Now())
	id := uuid.NewString()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO media_items (
            id, owner_id, title, file_path, mime_type, size_bytes,
            status, stage, progress, progress_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		id,
		nullableString(in.OwnerID),
		nullableString(in.Title),
		in.FilePath,
		in.MimeType,
		in.SizeBytes,
		StatusPending,
		StageQueued,
		StageQueued.Label(),
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an item by identifier, returning ErrNotFound when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM media_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists the pipeline-owned fields of item. Ingest facts and the view
// counter are never written here.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	sensitivity, err := encodeSensitivity(item.Sensitivity)
	if err != nil {
		return err
	}

	item.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE media_items
         SET title = ?, status = ?, stage = ?, progress = ?, progress_message = ?,
             processing_error = ?, duration_seconds = ?, width = ?, height = ?,
             video_codec = ?, thumbnail_path = ?, sensitivity_json = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.Title),
		item.Status,
		item.Stage,
		item.Progress,
		nullableString(item.ProgressMessage),
		nullableString(item.ProcessingError),
		item.DurationSeconds,
		item.Width,
		item.Height,
		nullableString(item.VideoCodec),
		nullableString(item.ThumbnailPath),
		sensitivity,
		formatTime(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, item.ID)
	}
	return nil
}

// List returns items ordered by creation time, newest last.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if owner := strings.TrimSpace(filter.OwnerID); owner != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, owner)
	}

	query := `SELECT ` + itemColumns + ` FROM media_items`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	return scanItems(rows)
}

// IncrementViews atomically bumps the view counter of a completed item and
// returns the new count.
func (s *Store) IncrementViews(ctx context.Context, id string) (int64, error) {
	var count int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(
			ctx,
			`UPDATE media_items SET view_count = view_count + 1
             WHERE id = ? AND status = ?
             RETURNING view_count`,
			id, StatusCompleted,
		).Scan(&count)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return count, nil
}

// FailAbandoned marks items left pending or processing by a previous process as
// failed. The in-memory queue does not survive restarts, so these items would
// otherwise never progress; reprocess is the recovery path.
func (s *Store) FailAbandoned(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM media_items WHERE status IN (?, ?) ORDER BY created_at`,
		StatusPending, StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("query abandoned items: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.execWithRetry(
		ctx,
		`UPDATE media_items
         SET status = ?, stage = ?, processing_error = ?, progress_message = 'Error',
             progress = MIN(progress, 99), updated_at = ?
         WHERE status IN (?, ?)`,
		StatusFailed,
		StageError,
		DaemonStopReason,
		formatTime(time.Now()),
		StatusPending,
		StatusProcessing,
	); err != nil {
		return nil, fmt.Errorf("fail abandoned items: %w", err)
	}
	return ids, nil
}

// Summarize counts items per status.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM media_items GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize items: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}
