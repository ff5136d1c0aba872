// Package journal
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"compass-api/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"go.uber.org/zap"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type Handler struct {
	wdb *sql.DB
	rdb *sql.DB
	log *zap.SugaredLogger
}

func NewHandler(wdb, rdb *sql.DB, log *zap.SugaredLogger) *Handler {
	return &Handler{wdb: wdb, rdb: rdb, log: log}
}

func (h *Handler) CreateEntry(ctx context.Context, accountID string, in shared.EntryInput) (*shared.EntrySummary, error) {
	id, err := nanoid.Generate(idAlphabet, 16)
	if err != nil {
		return nil, fmt.Errorf("generating entry id: %w", err)
	}
	entryID := "ent_" + id
	now := time.Now().UTC()

	_, err = h.wdb.ExecContext(ctx, `
	INSERT INTO journal_entry (id, account_id, title, content, mood, created_at)
	VALUES (?, ?, ?, ?, NULLIF(?, ''), ?)
	`, entryID, accountID, in.Title, in.Content, in.Mood, now)
	if err != nil {
		h.log.Errorw("failed inserting journal entry", "error", err)
		return nil, errors.New("could not save entry")
	}

	return &shared.EntrySummary{
		ID:        entryID,
		Title:     in.Title,
		Preview:   shared.Truncate(in.Content, shared.EntryPreviewLength),
		Mood:      in.Mood,
		CreatedAt: shared.FormatTime(now),
	}, nil
}

// ListEntries returns recent entries newest-first. Entry bodies are truncated
// to a preview; full content never travels through the tool surface.
func (h *Handler) ListEntries(ctx context.Context, accountID string, limit int) ([]shared.EntrySummary, error) {
	if limit <= 0 {
		limit = shared.DefaultEntryListLimit
	}

	rows, err := h.rdb.QueryContext(ctx, `
	SELECT id, title, content, COALESCE(mood, ''), created_at
	FROM journal_entry
	WHERE account_id = ?
	ORDER BY created_at DESC
	LIMIT ?
	`, accountID, limit)
	if err != nil {
		h.log.Errorw("failed listing journal entries", "error", err)
		return nil, errors.New("could not load entries")
	}
	defer rows.Close()

	var out []shared.EntrySummary
	for rows.Next() {
		var e shared.EntrySummary
		var content string
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.Title, &content, &e.Mood, &createdAt); err != nil {
			return nil, err
		}
		e.Preview = shared.Truncate(content, shared.EntryPreviewLength)
		e.CreatedAt = shared.FormatTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
