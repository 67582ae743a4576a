// Package sse streams note change notifications as Server-Sent Events.
//
// Every frame carries an id of the form "<epoch>-<seq>". A client that
// reconnects with Last-Event-ID gets the frames it missed from a bounded
// history, or a single notes.changed when the history no longer reaches back
// that far or the id belongs to an earlier broker.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event is a single SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types emitted by PublishNoteEvent.
const (
	TypeNoteCreated  = "note.created"
	TypeNoteUpdated  = "note.updated"
	TypeNoteDeleted  = "note.deleted"
	TypeNotesChanged = "notes.changed"
)

var noteTypes = map[string]string{
	"created": TypeNoteCreated,
	"updated": TypeNoteUpdated,
	"deleted": TypeNoteDeleted,
}

// clientBuffer is how many frames a slow client may fall behind before
// frames are dropped for it.
const clientBuffer = 64

type frame struct {
	seq uint64
	raw []byte
}

type subscription struct {
	ch     chan []byte
	resume bool
	epoch  string
	after  uint64
}

type noteChange struct {
	kind string
	id   string
}

// Broker fans events out to SSE clients.
//
// The client set, the history and the throttle state belong to one goroutine.
// Public methods reach it over channels and return immediately once the
// broker is closed.
type Broker struct {
	window    time.Duration
	heartbeat time.Duration
	keep      int
	epoch     string

	join    chan subscription
	leave   chan chan []byte
	events  chan Event
	changes chan noteChange
	counts  chan chan int

	quit    chan struct{}
	done    chan struct{}
	closing atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithHeartbeat sets how often an SSE comment is written to idle streams so
// proxies keep them open. Zero disables heartbeats.
func WithHeartbeat(d time.Duration) BrokerOption {
	return func(b *Broker) {
		b.heartbeat = d
	}
}

// WithHistory sets how many frames are kept for Last-Event-ID replay. Zero
// turns replay off, so every resume gets a notes.changed.
func WithHistory(n int) BrokerOption {
	return func(b *Broker) {
		b.keep = max(n, 0)
	}
}

// NewBroker creates a broker that emits at most one notes.changed per window.
// Changes inside the window are folded into one notes.changed at its end.
func NewBroker(window time.Duration, opts ...BrokerOption) *Broker {
	if window <= 0 {
		window = 2 * time.Second
	}

	b := &Broker{
		window:    window,
		heartbeat: 30 * time.Second,
		keep:      clientBuffer,
		epoch:     strconv.FormatInt(time.Now().UnixNano(), 36),
		join:      make(chan subscription),
		leave:     make(chan chan []byte),
		events:    make(chan Event, 256),
		changes:   make(chan noteChange, 256),
		counts:    make(chan chan int),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.loop()
	return b
}

func (b *Broker) encode(seq uint64, typ string, data []byte) []byte {
	return fmt.Appendf(nil, "id: %s-%d\nevent: %s\ndata: %s\n\n", b.epoch, seq, typ, data)
}

func (b *Broker) loop() {
	defer close(b.done)

	var (
		clients     = make(map[chan []byte]struct{})
		history     []frame
		seq         uint64
		lastChanged time.Time
		trailing    *time.Timer
		trailingC   <-chan time.Time
		heartbeat   <-chan time.Time
	)

	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	deliver := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Dropped. The client catches up on the next notes.changed.
			}
		}
	}

	emit := func(ev Event) {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		seq++
		f := frame{seq: seq, raw: b.encode(seq, ev.Type, data)}
		if b.keep > 0 {
			if len(history) == b.keep {
				copy(history, history[1:])
				history = history[:b.keep-1]
			}
			history = append(history, f)
		}
		deliver(f.raw)
	}

	changed := func(now time.Time) {
		lastChanged = now
		emit(Event{Type: TypeNotesChanged, Data: struct{}{}})
	}

	attach := func(s subscription) {
		clients[s.ch] = struct{}{}
		if !s.resume || (s.epoch == b.epoch && s.after == seq) {
			return
		}
		missed, ok := replay(history, s, b.epoch, seq)
		if !ok || len(missed) > cap(s.ch) {
			s.ch <- b.encode(seq, TypeNotesChanged, []byte("{}"))
			return
		}
		for _, f := range missed {
			s.ch <- f.raw
		}
	}

	for {
		select {
		case <-b.quit:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case s := <-b.join:
			attach(s)

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.events:
			emit(ev)

		case c := <-b.changes:
			typ, ok := noteTypes[c.kind]
			if !ok {
				continue
			}
			emit(Event{Type: typ, Data: map[string]string{"id": c.id}})

			now := time.Now()
			if wait := b.window - now.Sub(lastChanged); wait <= 0 {
				changed(now)
			} else if trailingC == nil {
				trailing = time.NewTimer(wait)
				trailingC = trailing.C
			}

		case now := <-trailingC:
			trailing, trailingC = nil, nil
			changed(now)

		case resp := <-b.counts:
			resp <- len(clients)

		case <-heartbeat:
			deliver([]byte(": ping\n\n"))
		}
	}
}

// replay returns the frames after s.after, or false when history cannot
// prove nothing else was missed.
func replay(history []frame, s subscription, epoch string, seq uint64) ([]frame, bool) {
	if s.epoch != epoch || s.after > seq || len(history) == 0 {
		return nil, false
	}
	if history[0].seq > s.after+1 {
		return nil, false
	}
	i := int(s.after + 1 - history[0].seq)
	return history[i:], true
}

// parseEventID splits an id written by encode. Anything else resumes from an
// unknown position.
func parseEventID(id string) (epoch string, seq uint64) {
	epoch, n, ok := strings.Cut(id, "-")
	if !ok {
		return "", 0
	}
	seq, err := strconv.ParseUint(n, 10, 64)
	if err != nil {
		return "", 0
	}
	return epoch, seq
}

// submit hands v to the loop. It reports false once the broker is closed.
func submit[T any](b *Broker, ch chan T, v T) bool {
	if b.closing.Load() {
		return false
	}
	select {
	case ch <- v:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closing.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe adds a client that receives frames from now on.
func (b *Broker) Subscribe() chan []byte {
	return b.subscribe(subscription{})
}

// SubscribeFrom adds a client resuming after lastEventID. An empty id is the
// same as Subscribe.
func (b *Broker) SubscribeFrom(lastEventID string) chan []byte {
	if lastEventID == "" {
		return b.Subscribe()
	}
	epoch, after := parseEventID(lastEventID)
	return b.subscribe(subscription{resume: true, epoch: epoch, after: after})
}

func (b *Broker) subscribe(s subscription) chan []byte {
	s.ch = make(chan []byte, clientBuffer)
	if !submit(b, b.join, s) {
		close(s.ch)
	}
	return s.ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	submit(b, b.leave, ch)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !submit(b, b.counts, resp) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	submit(b, b.events, event)
}

// PublishNoteEvent publishes a note change (kind is "created", "updated" or
// "deleted") and schedules a notes.changed.
func (b *Broker) PublishNoteEvent(kind, id string) {
	submit(b, b.changes, noteChange{kind: kind, id: id})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). It honours the
// Last-Event-ID request header.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeFrom(r.Header.Get("Last-Event-ID"))
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case raw, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(raw); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
