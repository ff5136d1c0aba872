// Package goals
package goals

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

func (h *Handler) Create(ctx context.Context, accountID string, in shared.GoalInput) (*shared.GoalSummary, error) {
	if in.TargetDate != "" {
		if _, err := time.Parse("2006-01-02", in.TargetDate); err != nil {
			return nil, errors.New("target_date must be YYYY-MM-DD")
		}
	}

	id, err := nanoid.Generate(idAlphabet, 16)
	if err != nil {
		return nil, fmt.Errorf("generating goal id: %w", err)
	}
	goalID := "goal_" + id
	now := time.Now().UTC()

	_, err = h.wdb.ExecContext(ctx, `
	INSERT INTO goal (id, account_id, title, category, target_date, description, status, created_at)
	VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, 'active', ?)
	`, goalID, accountID, in.Title, in.Category, in.TargetDate, in.Description, now)
	if err != nil {
		h.log.Errorw("failed inserting goal", "error", err)
		return nil, errors.New("could not save goal")
	}

	return &shared.GoalSummary{
		ID:         goalID,
		Title:      in.Title,
		Category:   in.Category,
		Status:     "active",
		TargetDate: in.TargetDate,
		CreatedAt:  shared.FormatTime(now),
	}, nil
}

func (h *Handler) List(ctx context.Context, accountID, status string) ([]shared.GoalSummary, error) {
	query := `
	SELECT id, title, category, status, COALESCE(target_date, ''), created_at
	FROM goal
	WHERE account_id = ?`
	args := []any{accountID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := h.rdb.QueryContext(ctx, query, args...)
	if err != nil {
		h.log.Errorw("failed listing goals", "error", err)
		return nil, errors.New("could not load goals")
	}
	defer rows.Close()

	var out []shared.GoalSummary
	for rows.Next() {
		var g shared.GoalSummary
		var createdAt time.Time
		if err := rows.Scan(&g.ID, &g.Title, &g.Category, &g.Status, &g.TargetDate, &createdAt); err != nil {
			return nil, err
		}
		g.CreatedAt = shared.FormatTime(createdAt)
		out = append(out, g)
	}
	return out, rows.Err()
}
