// Package categories
package categories

import (
	"context"
	"database/sql"

	"compass-api/internal/shared"
	"compass-api/internal/tools"

	"go.uber.org/zap"
)

type Handler struct {
	rdb *sql.DB
	log *zap.SugaredLogger
}

func NewHandler(rdb *sql.DB, log *zap.SugaredLogger) *Handler {
	return &Handler{rdb: rdb, log: log}
}

// List returns the account's categories: the built-in themes plus any custom
// ones stored for the account. Lookup failures fall back to the built-ins so
// catalog discovery keeps working when the replica is unhappy.
func (h *Handler) List(ctx context.Context, accountID string) ([]shared.Category, error) {
	out := defaults()

	rows, err := h.rdb.QueryContext(ctx, `
	SELECT name, label FROM category WHERE account_id = ? ORDER BY name
	`, accountID)
	if err != nil {
		h.log.Warnw("failed listing custom categories", "error", err)
		return out, nil
	}
	defer rows.Close()

	for rows.Next() {
		var c shared.Category
		if err := rows.Scan(&c.Name, &c.Label); err != nil {
			return out, nil
		}
		out = append(out, c)
	}
	return out, nil
}

func defaults() []shared.Category {
	labels := map[string]string{
		"health":          "Health",
		"career":          "Career",
		"relationships":   "Relationships",
		"personal_growth": "Personal Growth",
		"finance":         "Finance",
	}
	out := make([]shared.Category, 0, len(tools.GoalCategories))
	for _, name := range tools.GoalCategories {
		out = append(out, shared.Category{Name: name, Label: labels[name]})
	}
	return out
}
