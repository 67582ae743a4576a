package storeclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bucket/internal/api"
	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/noteservice"
	"github.com/starford/bucket/internal/sse"
	"github.com/starford/bucket/internal/testutil"
)

// eventServer runs the store API with its change feed mounted.
func eventServer(t *testing.T, token string) (*httptest.Server, *sse.Broker) {
	t.Helper()
	broker := sse.NewBroker(20*time.Millisecond, sse.WithHeartbeat(0))
	svc := noteservice.NewService(testutil.TestDB(t), broker.PublishNoteEvent)

	r := chi.NewRouter()
	r.Mount("/api", api.NewRouter(svc, token != "", token, broker))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	// Runs before srv.Close so open streams end.
	t.Cleanup(broker.Close)
	return srv, broker
}

func waitClients(t *testing.T, b *sse.Broker, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", b.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestStreamReportsChanges(t *testing.T) {
	srv, broker := eventServer(t, "secret")
	c := New(srv.URL, WithToken("secret"), WithTimeout(250*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 16)
	done := make(chan error, 1)
	go func() {
		_, err := c.Stream(ctx, "", func(ev Event) { events <- ev })
		done <- err
	}()
	waitClients(t, broker, 1)

	// Outlives the request timeout: the stream must not be cut by it.
	time.Sleep(400 * time.Millisecond)
	if err := c.Create(ctx, "from elsewhere"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	created := nextEvent(t, events)
	if created.Type != sse.TypeNoteCreated || !strings.Contains(created.Data, `"id":`) || created.ID == "" {
		t.Errorf("first event = %+v", created)
	}
	if ev := nextEvent(t, events); ev.Type != sse.TypeNotesChanged {
		t.Errorf("second event = %+v, want notes.changed", ev)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Stream err = %v, want canceled", err)
	}
}

func TestStreamNeedsToken(t *testing.T) {
	srv, _ := eventServer(t, "secret")
	_, err := New(srv.URL).Stream(context.Background(), "", func(Event) {
		t.Error("unexpected event")
	})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want 401", err)
	}
}

func TestStreamParsesFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprint(w, "id: 7\nevent: note.updated\ndata: {\"id\":\"a\"}\n\n")
		fmt.Fprint(w, "data: one\ndata: two\n\n")
	}))
	defer srv.Close()

	var got []Event
	lastID, err := New(srv.URL).Stream(context.Background(), "", func(ev Event) {
		got = append(got, ev)
	})
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Errorf("err = %v, want the stream end reported as a network error", err)
	}
	if lastID != "7" {
		t.Errorf("lastID = %q", lastID)
	}

	want := []Event{
		{ID: "7", Type: "note.updated", Data: `{"id":"a"}`},
		{ID: "7", Type: "message", Data: "one\ntwo"},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFollowResumesAfterDrop(t *testing.T) {
	var (
		mu      sync.Mutex
		resumed []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resumed = append(resumed, r.Header.Get("Last-Event-ID"))
		n := len(resumed)
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "id: e-%d\nevent: notes.changed\ndata: {}\n\n", n)
		w.(http.Flusher).Flush()
		if n > 1 {
			<-r.Context().Done()
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetryDelay(10*time.Millisecond, 20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 4)
	var drops []error
	done := make(chan error, 1)
	go func() {
		done <- c.Follow(ctx, func(ev Event) { events <- ev }, func(err error) {
			drops = append(drops, err)
		})
	}()

	nextEvent(t, events)
	if ev := nextEvent(t, events); ev.ID != "e-2" {
		t.Errorf("second event = %+v", ev)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow err = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(resumed) != 2 || resumed[0] != "" || resumed[1] != "e-1" {
		t.Errorf("Last-Event-ID per connection = %q", resumed)
	}
	if len(drops) != 1 || !errors.Is(drops[0], apperr.ErrNetwork) {
		t.Errorf("drops = %v", drops)
	}
}

func TestFollowWithoutEventEndpoint(t *testing.T) {
	c := New(testServer(t, "").URL, WithRetryDelay(time.Millisecond, time.Millisecond))
	err := c.Follow(context.Background(), func(Event) {}, nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
