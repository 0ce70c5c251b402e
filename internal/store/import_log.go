package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"choma/internal/model"
)

// InsertImportLog 写入一条导入日志，返回 id
func (s *Store) InsertImportLog(ctx context.Context, entry model.ImportLog) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (
			batch_id, operator, filename, total_rows, success_count, failed_count,
			status, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.BatchID, entry.Operator, entry.Filename, entry.TotalRows, entry.SuccessCount,
		entry.FailedCount, string(entry.Status), entry.ErrorMessage, entry.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// ListImportLogs 最近的导入日志
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]model.ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, operator, filename, total_rows, success_count, failed_count,
			status, error_message, created_at
		FROM import_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	out := []model.ImportLog{}
	for rows.Next() {
		var (
			l        model.ImportLog
			operator sql.NullString
			filename sql.NullString
			status   string
			errMsg   sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.BatchID, &operator, &filename, &l.TotalRows, &l.SuccessCount,
			&l.FailedCount, &status, &errMsg, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		l.Operator = operator.String
		l.Filename = filename.String
		l.Status = model.UploadStatus(status)
		l.ErrorMessage = errMsg.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// LastImportLog 最近一次导入，没有时返回 nil
func (s *Store) LastImportLog(ctx context.Context) (*model.ImportLog, error) {
	logs, err := s.ListImportLogs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}
