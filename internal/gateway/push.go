package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"compass-api/internal/metrics"
	"compass-api/internal/shared"
)

// PushChannel is one long-lived, server-initiated event stream. After the
// handshake its only job is keep-alive: the capability announcement goes out
// first, then heartbeats until the peer disconnects. Tool calls over this
// transport are a documented future extension and deliberately not carried
// here.
type PushChannel struct {
	handler  *Handler
	interval time.Duration
}

func NewPushChannel(handler *Handler, interval time.Duration) *PushChannel {
	if interval <= 0 {
		interval = shared.HeartbeatInterval
	}
	return &PushChannel{handler: handler, interval: interval}
}

type flusher interface {
	Flush()
}

// Serve owns the connection until ctx is done. The caller authenticates
// before invoking Serve; nothing is written on behalf of an unauthenticated
// peer. A disconnect is normal teardown, not an error: write failures stop
// the loop silently and the heartbeat ticker is always released.
func (p *PushChannel) Serve(ctx context.Context, w io.Writer) error {
	metrics.ActivePushChannels.Inc()
	defer metrics.ActivePushChannels.Dec()

	announcement := map[string]any{
		"jsonrpc": "2.0",
		"method":  "initialize",
		"params":  p.announceParams(),
	}
	if err := writeEvent(w, "message", announcement); err != nil {
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			if err := writeEvent(w, "heartbeat", map[string]any{"ts": t.Unix()}); err != nil {
				return nil
			}
			metrics.Heartbeats.Inc()
		}
	}
}

// announceParams is the initialize result plus the full tool catalog, so a
// push-only consumer never needs the request/response path for discovery.
func (p *PushChannel) announceParams() map[string]any {
	params := p.handler.InitializeResult()
	params["tools"] = p.handler.ToolList()["tools"]
	return params
}

func writeEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
	return nil
}
