package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Event is one message read from the gateway's /events stream.
type Event struct {
	Type string
	Data map[string]string
}

// Watch follows the gateway's event stream until ctx is cancelled, dropping
// the cached queries each creation event makes stale. onEvent, if non-nil,
// sees every event after invalidation.
func (c *Client) Watch(ctx context.Context, onEvent func(Event)) error {
	u := joinPath(*c.base, "events")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("client: build events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// The stream outlives any per-request timeout.
	hc := *c.http
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("client: open events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	sc := bufio.NewScanner(resp.Body)
	var ev Event
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			_ = json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev.Data)
		case line == "" && ev.Type != "":
			c.apply(ctx, ev)
			if onEvent != nil {
				onEvent(ev)
			}
			ev = Event{}
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("client: read events: %w", err)
	}
	return nil
}

func (c *Client) apply(ctx context.Context, ev Event) {
	switch ev.Type {
	case "text.created":
		_ = c.cache.InvalidatePrefix(ctx, "texts")
	case "instance.created":
		if id := ev.Data["text_id"]; id != "" {
			_ = c.cache.InvalidatePrefix(ctx, "textInstance/"+id)
		}
	case "person.created":
		_ = c.cache.InvalidatePrefix(ctx, "persons")
	}
}
