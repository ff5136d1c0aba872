// Package tools holds the catalog of operations the conversational agent can
// invoke through the gateway, and the dispatcher that executes them.
package tools

// Property describes one parameter of a tool contract.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Descriptor is one callable operation. Descriptors are immutable for the
// process lifetime and identical across all callers.
type Descriptor struct {
	Name        string
	Description string
	Required    []string
	Properties  map[string]Property
}

// InputSchema renders the parameter contract in the JSON-schema shape the
// wire protocol expects.
func (d Descriptor) InputSchema() map[string]any {
	props := make(map[string]any, len(d.Properties))
	for name, p := range d.Properties {
		props[name] = p
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(d.Required) > 0 {
		schema["required"] = d.Required
	}
	return schema
}

// Registry is the fixed tool catalog, built once at process start and
// injected wherever it is needed. There is no mutation path; adding a tool is
// a deployment-time change.
type Registry struct {
	ordered []Descriptor
	byName  map[string]Descriptor
}

func NewRegistry() *Registry {
	ordered := catalog()
	byName := make(map[string]Descriptor, len(ordered))
	for _, d := range ordered {
		byName[d.Name] = d
	}
	return &Registry{ordered: ordered, byName: byName}
}

// List returns the catalog in stable order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Describe(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// GoalCategories is the closed set of goal themes the product ships with.
var GoalCategories = []string{"health", "career", "relationships", "personal_growth", "finance"}

var goalStatuses = []string{"active", "completed", "archived"}

var moods = []string{"great", "good", "neutral", "low", "rough"}

func catalog() []Descriptor {
	return []Descriptor{
		{
			Name:        "create_goal",
			Description: "Create a new goal for the authenticated account",
			Required:    []string{"title", "category"},
			Properties: map[string]Property{
				"title":       {Type: "string", Description: "Short goal title"},
				"category":    {Type: "string", Description: "Goal theme", Enum: GoalCategories},
				"target_date": {Type: "string", Description: "Target date, YYYY-MM-DD"},
				"description": {Type: "string", Description: "Longer description of the goal"},
			},
		},
		{
			Name:        "list_goals",
			Description: "List the account's goals, optionally filtered by status",
			Properties: map[string]Property{
				"status": {Type: "string", Description: "Filter by goal status", Enum: goalStatuses},
			},
		},
		{
			Name:        "create_journal_entry",
			Description: "Record a new journal entry for the authenticated account",
			Required:    []string{"content"},
			Properties: map[string]Property{
				"content": {Type: "string", Description: "Entry body"},
				"title":   {Type: "string", Description: "Optional entry title"},
				"mood":    {Type: "string", Description: "How the writer feels", Enum: moods},
			},
		},
		{
			Name:        "list_journal_entries",
			Description: "List recent journal entries with truncated previews",
			Properties: map[string]Property{
				"limit": {Type: "integer", Description: "Maximum number of entries to return"},
			},
		},
		{
			Name:        "list_categories",
			Description: "List the goal categories available to this account",
			Properties:  map[string]Property{},
		},
	}
}
