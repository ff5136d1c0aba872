package shared

import "time"

// AccountMetadata is attached to the request context after a tool credential
// or session token has been verified. The account id always comes from the
// verified identity, never from caller-supplied arguments.
type AccountMetadata struct {
	AccountID    string `json:"account_id"`
	CredentialID string `json:"credential_id,omitempty"`
}

type GoalInput struct {
	Title       string
	Category    string
	TargetDate  string
	Description string
}

// GoalSummary is the caller-facing shape of a goal. Raw rows never leave the
// service layer.
type GoalSummary struct {
	ID         string `json:"goal_id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	TargetDate string `json:"target_date,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type EntryInput struct {
	Title   string
	Content string
	Mood    string
}

type EntrySummary struct {
	ID        string `json:"entry_id"`
	Title     string `json:"title,omitempty"`
	Preview   string `json:"preview"`
	Mood      string `json:"mood,omitempty"`
	CreatedAt string `json:"created_at"`
}

type Category struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// FormatTime renders timestamps the way every summary payload expects them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
