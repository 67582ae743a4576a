package storeclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/starford/bucket/internal/apperr"
)

// Event is one message read from the store's change feed.
type Event struct {
	ID   string
	Type string
	Data string
}

var errStreamEnded = fmt.Errorf("%w: event stream ended", apperr.ErrNetwork)

// Stream reads GET /api/events until ctx ends or the connection drops,
// calling fn for each event. A non-empty lastEventID asks the store to
// replay what came after it. Stream returns the id of the last event seen,
// for the next call.
func (c *Client) Stream(ctx context.Context, lastEventID string, fn func(Event)) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return lastEventID, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "bucket-client/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	// The stream stays open indefinitely, so the request timeout cannot apply.
	hc := *c.httpClient
	hc.Timeout = 0

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return lastEventID, ctx.Err()
		}
		return lastEventID, fmt.Errorf("storeclient: events: %w: %v", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return lastEventID, fmt.Errorf("storeclient: events: %w", statusError(resp))
	}

	var (
		ev   Event
		data []string
	)
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if ev.Type != "" || len(data) > 0 {
				if ev.Type == "" {
					ev.Type = "message"
				}
				ev.ID = lastEventID
				ev.Data = strings.Join(data, "\n")
				fn(ev)
			}
			ev, data = Event{}, data[:0]
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			lastEventID = value
		case "event":
			ev.Type = value
		case "data":
			data = append(data, value)
		}
	}

	if ctx.Err() != nil {
		return lastEventID, ctx.Err()
	}
	if err := sc.Err(); err != nil {
		return lastEventID, fmt.Errorf("storeclient: events: %w: %v", apperr.ErrNetwork, err)
	}
	return lastEventID, errStreamEnded
}

// Follow keeps the change feed open until ctx ends, reconnecting with
// exponential backoff and resuming from the last event seen. onDrop, when
// non-nil, is told why each connection ended. Follow gives up and returns
// the error only when the store has no event endpoint.
func (c *Client) Follow(ctx context.Context, fn func(Event), onDrop func(error)) error {
	delay := c.retryMin
	var lastID string
	for {
		prev := lastID
		var err error
		lastID, err = c.Stream(ctx, lastID, fn)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if onDrop != nil {
			onDrop(err)
		}

		if lastID != prev {
			delay = c.retryMin
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, c.retryMax)
	}
}
