package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"compass-api/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGoals struct {
	lastAccount string
	err         error
}

func (f *fakeGoals) Create(_ context.Context, accountID string, in shared.GoalInput) (*shared.GoalSummary, error) {
	f.lastAccount = accountID
	if f.err != nil {
		return nil, f.err
	}
	return &shared.GoalSummary{ID: "goal_1", Title: in.Title, Category: in.Category, Status: "active"}, nil
}

func (f *fakeGoals) List(_ context.Context, accountID, status string) ([]shared.GoalSummary, error) {
	f.lastAccount = accountID
	if f.err != nil {
		return nil, f.err
	}
	return []shared.GoalSummary{{ID: "goal_1", Title: "Run 5k", Status: "active"}}, nil
}

type fakeJournal struct {
	lastLimit int
}

func (f *fakeJournal) CreateEntry(_ context.Context, _ string, in shared.EntryInput) (*shared.EntrySummary, error) {
	return &shared.EntrySummary{ID: "ent_1", Title: in.Title, Preview: shared.Truncate(in.Content, shared.EntryPreviewLength)}, nil
}

func (f *fakeJournal) ListEntries(_ context.Context, _ string, limit int) ([]shared.EntrySummary, error) {
	f.lastLimit = limit
	return nil, nil
}

type fakeCategories struct{}

func (fakeCategories) List(context.Context, string) ([]shared.Category, error) {
	return []shared.Category{{Name: "health", Label: "Health"}}, nil
}

func newTestDispatcher(goals *fakeGoals, journal *fakeJournal) *Dispatcher {
	return NewDispatcher(NewRegistry(), goals, journal, fakeCategories{}, zap.NewNop().Sugar())
}

func TestInvokeCreateGoal(t *testing.T) {
	goals := &fakeGoals{}
	d := newTestDispatcher(goals, &fakeJournal{})

	result, terr := d.Invoke(context.Background(), "acc_1", "create_goal", map[string]any{
		"title":       "Run 5k",
		"category":    "health",
		"target_date": "2025-01-01",
	})
	require.Nil(t, terr)
	assert.Equal(t, "acc_1", goals.lastAccount)

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"success":true`)
	assert.Contains(t, string(raw), "Run 5k")
}

func TestInvokeMissingRequiredField(t *testing.T) {
	d := newTestDispatcher(&fakeGoals{}, &fakeJournal{})

	_, terr := d.Invoke(context.Background(), "acc_1", "create_goal", map[string]any{
		"title": "Run 5k",
	})
	require.NotNil(t, terr)
	assert.Equal(t, "category", terr.Field)
	assert.Contains(t, terr.Message, "category")
}

func TestInvokeEnumViolation(t *testing.T) {
	d := newTestDispatcher(&fakeGoals{}, &fakeJournal{})

	_, terr := d.Invoke(context.Background(), "acc_1", "create_goal", map[string]any{
		"title":    "Run 5k",
		"category": "underwater-basket-weaving",
	})
	require.NotNil(t, terr)
	assert.Equal(t, "category", terr.Field)
}

func TestInvokeUnknownTool(t *testing.T) {
	d := newTestDispatcher(&fakeGoals{}, &fakeJournal{})

	_, terr := d.Invoke(context.Background(), "acc_1", "delete_everything", nil)
	require.NotNil(t, terr)
	assert.Contains(t, terr.Message, "delete_everything")
}

func TestInvokeCollaboratorError(t *testing.T) {
	goals := &fakeGoals{err: errors.New("goal store unavailable")}
	d := newTestDispatcher(goals, &fakeJournal{})

	_, terr := d.Invoke(context.Background(), "acc_1", "list_goals", map[string]any{})
	require.NotNil(t, terr)
	assert.Equal(t, "goal store unavailable", terr.Message)
	assert.Empty(t, terr.Field)
}

func TestInvokeListEntriesLimits(t *testing.T) {
	journal := &fakeJournal{}
	d := newTestDispatcher(&fakeGoals{}, journal)

	// JSON numbers arrive as float64.
	_, terr := d.Invoke(context.Background(), "acc_1", "list_journal_entries", map[string]any{"limit": float64(5)})
	require.Nil(t, terr)
	assert.Equal(t, 5, journal.lastLimit)

	_, terr = d.Invoke(context.Background(), "acc_1", "list_journal_entries", map[string]any{})
	require.Nil(t, terr)
	assert.Equal(t, shared.DefaultEntryListLimit, journal.lastLimit)

	_, terr = d.Invoke(context.Background(), "acc_1", "list_journal_entries", map[string]any{"limit": float64(9000)})
	require.Nil(t, terr)
	assert.Equal(t, shared.MaxEntryListLimit, journal.lastLimit)

	_, terr = d.Invoke(context.Background(), "acc_1", "list_journal_entries", map[string]any{"limit": "ten"})
	require.NotNil(t, terr)
	assert.Equal(t, "limit", terr.Field)
}
