// Package coach generates chat replies and periodic reports with the hosted
// model, re-chunking the token stream into bounded pieces before anything
// reaches the client.
package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compass-api/internal/metrics"
	"compass-api/internal/shared"
	"compass-api/internal/stream"
	"compass-api/internal/tools"

	"go.uber.org/zap"
)

const systemPrompt = "You are a supportive journaling and goal coach. " +
	"Be concrete, warm, and brief. Refer to the user's own goals and entries when useful."

type Handler struct {
	client  *Client
	goals   tools.GoalService
	journal tools.JournalService
	log     *zap.SugaredLogger
}

func NewHandler(client *Client, goals tools.GoalService, journal tools.JournalService, log *zap.SugaredLogger) *Handler {
	return &Handler{client: client, goals: goals, journal: journal, log: log}
}

type ChatInput struct {
	Ctx       context.Context
	AccountID string
	Message   string
	ChunkSize int
	// StreamWriter receives bounded chunks, not raw token deltas.
	StreamWriter func(chunk string) error
}

type ChatOutput struct {
	Reply string
}

func (h *Handler) Chat(in ChatInput) (*ChatOutput, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: in.Message},
	}
	reply, err := h.generate(in.Ctx, "chat", messages, in.ChunkSize, in.StreamWriter)
	if err != nil {
		return nil, err
	}
	return &ChatOutput{Reply: reply}, nil
}

type ReportInput struct {
	Ctx          context.Context
	AccountID    string
	ChunkSize    int
	StreamWriter func(chunk string) error
}

type ReportOutput struct {
	Report string
}

// WeeklyReport assembles the account's recent goals and entries into a prompt
// and streams the generated report back in bounded chunks.
func (h *Handler) WeeklyReport(in ReportInput) (*ReportOutput, error) {
	goals, err := h.goals.List(in.Ctx, in.AccountID, "active")
	if err != nil {
		return nil, err
	}
	entries, err := h.journal.ListEntries(in.Ctx, in.AccountID, shared.DefaultEntryListLimit)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a short weekly reflection report for the week ending %s.\n\n",
		time.Now().UTC().Format("2006-01-02"))
	b.WriteString("Active goals:\n")
	if len(goals) == 0 {
		b.WriteString("- none\n")
	}
	for _, g := range goals {
		fmt.Fprintf(&b, "- %s (%s)\n", g.Title, g.Category)
	}
	b.WriteString("\nRecent journal entries:\n")
	if len(entries) == 0 {
		b.WriteString("- none\n")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %s\n", e.CreatedAt, e.Preview)
	}

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
	report, err := h.generate(in.Ctx, "report", messages, in.ChunkSize, in.StreamWriter)
	if err != nil {
		return nil, err
	}
	return &ReportOutput{Report: report}, nil
}

// generate runs one completion, piping token deltas through a fresh chunker
// so clients always see pieces of at most chunkSize.
func (h *Handler) generate(ctx context.Context, endpoint string, messages []Message, chunkSize int, writer func(string) error) (string, error) {
	if chunkSize <= 0 {
		chunkSize = shared.DefaultChunkSize
	}

	start := time.Now()
	var onDelta func(string) error
	var emitter *stream.Emitter
	if writer != nil {
		emitter = stream.NewEmitter(chunkSize, func(chunk string) error {
			metrics.StreamChunks.WithLabelValues(endpoint).Inc()
			return writer(chunk)
		})
		onDelta = emitter.Write
	}

	full, err := h.client.StreamCompletion(ctx, messages, onDelta)
	if err != nil {
		h.log.Warnw("model request failed", "endpoint", endpoint, "error", err)
		return "", &shared.RequestError{StatusCode: 502, Err: err}
	}
	if emitter != nil {
		if err := emitter.Close(); err != nil {
			h.log.Debugw("client disconnected before final chunk", "endpoint", endpoint)
		}
	}
	metrics.ModelRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	return full, nil
}
