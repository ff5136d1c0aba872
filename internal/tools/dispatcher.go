package tools

import (
	"context"
	"fmt"
	"slices"

	"compass-api/internal/metrics"
	"compass-api/internal/shared"

	"go.uber.org/zap"
)

// GoalService, JournalService and CategoryService are the domain
// collaborators the dispatcher forwards to. Every operation is scoped to the
// authenticated account.
type GoalService interface {
	Create(ctx context.Context, accountID string, in shared.GoalInput) (*shared.GoalSummary, error)
	List(ctx context.Context, accountID, status string) ([]shared.GoalSummary, error)
}

type JournalService interface {
	CreateEntry(ctx context.Context, accountID string, in shared.EntryInput) (*shared.EntrySummary, error)
	ListEntries(ctx context.Context, accountID string, limit int) ([]shared.EntrySummary, error)
}

type CategoryService interface {
	List(ctx context.Context, accountID string) ([]shared.Category, error)
}

// ToolError is a tool-level failure: schema violations, unknown tools, or a
// collaborator's own error. It travels inside a tool result payload, never as
// a transport fault, so the calling agent can read it and retry with
// corrected arguments.
type ToolError struct {
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *ToolError) Error() string { return e.Message }

type toolFunc func(ctx context.Context, accountID string, args map[string]any) (any, error)

// Dispatcher resolves named calls against the registry, validates arguments
// against the descriptor contract, and forwards to exactly one collaborator
// operation.
type Dispatcher struct {
	registry   *Registry
	goals      GoalService
	journal    JournalService
	categories CategoryService
	log        *zap.SugaredLogger

	handlers map[string]toolFunc
}

func NewDispatcher(registry *Registry, goals GoalService, journal JournalService, categories CategoryService, log *zap.SugaredLogger) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		goals:      goals,
		journal:    journal,
		categories: categories,
		log:        log,
	}
	d.handlers = map[string]toolFunc{
		"create_goal":          d.createGoal,
		"list_goals":           d.listGoals,
		"create_journal_entry": d.createJournalEntry,
		"list_journal_entries": d.listJournalEntries,
		"list_categories":      d.listCategories,
	}
	return d
}

// Invoke runs one tool call for accountID. The returned value is always a
// JSON-serializable summary, never a raw persisted entity. All failures are
// ToolErrors.
func (d *Dispatcher) Invoke(ctx context.Context, accountID, name string, args map[string]any) (any, *ToolError) {
	desc, ok := d.registry.Describe(name)
	if !ok {
		metrics.ToolInvocations.WithLabelValues(name, "unknown").Inc()
		return nil, &ToolError{Message: fmt.Sprintf("unknown tool: %s", name)}
	}

	if terr := validateArgs(desc, args); terr != nil {
		metrics.ToolInvocations.WithLabelValues(name, "invalid_args").Inc()
		return nil, terr
	}

	handler := d.handlers[name]
	result, err := handler(ctx, accountID, args)
	if err != nil {
		d.log.Warnw("tool invocation failed", "tool", name, "error", err)
		metrics.ToolInvocations.WithLabelValues(name, "error").Inc()
		return nil, &ToolError{Message: err.Error()}
	}
	metrics.ToolInvocations.WithLabelValues(name, "ok").Inc()
	return result, nil
}

// validateArgs checks required fields, enum membership and primitive types
// against the descriptor. Failures name the offending field.
func validateArgs(desc Descriptor, args map[string]any) *ToolError {
	for _, field := range desc.Required {
		val, ok := args[field]
		if !ok || val == nil || val == "" {
			return &ToolError{Message: fmt.Sprintf("missing required argument: %s", field), Field: field}
		}
	}
	for field, val := range args {
		prop, ok := desc.Properties[field]
		if !ok {
			continue
		}
		switch prop.Type {
		case "string":
			s, ok := val.(string)
			if !ok {
				return &ToolError{Message: fmt.Sprintf("argument %s must be a string", field), Field: field}
			}
			if len(prop.Enum) > 0 && !slices.Contains(prop.Enum, s) {
				return &ToolError{
					Message: fmt.Sprintf("argument %s must be one of %v", field, prop.Enum),
					Field:   field,
				}
			}
		case "integer":
			if _, ok := asInt(val); !ok {
				return &ToolError{Message: fmt.Sprintf("argument %s must be an integer", field), Field: field}
			}
		case "boolean":
			if _, ok := val.(bool); !ok {
				return &ToolError{Message: fmt.Sprintf("argument %s must be a boolean", field), Field: field}
			}
		}
	}
	return nil
}

// asInt coerces the number shapes json.Unmarshal produces.
func asInt(val any) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func (d *Dispatcher) createGoal(ctx context.Context, accountID string, args map[string]any) (any, error) {
	summary, err := d.goals.Create(ctx, accountID, shared.GoalInput{
		Title:       shared.GetString(args, "title"),
		Category:    shared.GetString(args, "category"),
		TargetDate:  shared.GetString(args, "target_date"),
		Description: shared.GetString(args, "description"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "goal": summary}, nil
}

func (d *Dispatcher) listGoals(ctx context.Context, accountID string, args map[string]any) (any, error) {
	goals, err := d.goals.List(ctx, accountID, shared.GetString(args, "status"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"goals": goals, "count": len(goals)}, nil
}

func (d *Dispatcher) createJournalEntry(ctx context.Context, accountID string, args map[string]any) (any, error) {
	summary, err := d.journal.CreateEntry(ctx, accountID, shared.EntryInput{
		Title:   shared.GetString(args, "title"),
		Content: shared.GetString(args, "content"),
		Mood:    shared.GetString(args, "mood"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "entry": summary}, nil
}

func (d *Dispatcher) listJournalEntries(ctx context.Context, accountID string, args map[string]any) (any, error) {
	limit := shared.DefaultEntryListLimit
	if raw, ok := args["limit"]; ok {
		if n, ok := asInt(raw); ok && n > 0 {
			limit = min(n, shared.MaxEntryListLimit)
		}
	}
	entries, err := d.journal.ListEntries(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"entries": entries, "count": len(entries)}, nil
}

func (d *Dispatcher) listCategories(ctx context.Context, accountID string, _ map[string]any) (any, error) {
	cats, err := d.categories.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"categories": cats}, nil
}
