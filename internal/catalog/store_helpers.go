package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mediaflow/internal/analyzer"
)

const itemColumns = "id, owner_id, title, file_path, mime_type, size_bytes, status, stage, progress, progress_message, processing_error, duration_seconds, width, height, video_codec, thumbnail_path, sensitivity_json, view_count, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item            Item
		ownerID         sql.NullString
		title           sql.NullString
		status          string
		stage           string
		progressMessage sql.NullString
		processingError sql.NullString
		videoCodec      sql.NullString
		thumbnailPath   sql.NullString
		sensitivityRaw  sql.NullString
		createdRaw      string
		updatedRaw      string
	)

	if err := scanner.Scan(
		&item.ID,
		&ownerID,
		&title,
		&item.FilePath,
		&item.MimeType,
		&item.SizeBytes,
		&status,
		&stage,
		&item.Progress,
		&progressMessage,
		&processingError,
		&item.DurationSeconds,
		&item.Width,
		&item.Height,
		&videoCodec,
		&thumbnailPath,
		&sensitivityRaw,
		&item.ViewCount,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item.OwnerID = ownerID.String
	item.Title = title.String
	item.Status = Status(status)
	item.Stage = Stage(stage)
	item.ProgressMessage = progressMessage.String
	item.ProcessingError = processingError.String
	item.VideoCodec = videoCodec.String
	item.ThumbnailPath = thumbnailPath.String

	if sensitivityRaw.Valid && sensitivityRaw.String != "" {
		var result analyzer.Result
		if err := json.Unmarshal([]byte(sensitivityRaw.String), &result); err != nil {
			return nil, fmt.Errorf("decode sensitivity for %s: %w", item.ID, err)
		}
		item.Sensitivity = &result
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func encodeSensitivity(result *analyzer.Result) (any, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode sensitivity: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
