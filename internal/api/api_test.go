package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/bucket/internal/noteservice"
	"github.com/starford/bucket/internal/testutil"
)

// testEnv sets up a temp SQLite store, service, and router for testing.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	svc := noteservice.NewService(testutil.TestDB(t), nil)
	return NewRouter(svc, authToken != "", authToken, nil)
}

func addNote(t *testing.T, router http.Handler, text string) Note {
	t.Helper()
	body, _ := json.Marshal(NoteRequest{Item: text})
	req := httptest.NewRequest(http.MethodPost, "/add", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}
	var n Note
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	return n
}

func fetchNotes(t *testing.T, router http.Handler) []Note {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/fetch", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", w.Code)
	}
	var notes []Note
	if err := json.Unmarshal(w.Body.Bytes(), &notes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return notes
}

func TestAddAndFetch(t *testing.T) {
	router := testEnv(t, "")

	created := addNote(t, router, "  hello world ")
	if created.ID == "" || created.Text != "hello world" {
		t.Fatalf("created = %+v", created)
	}
	addNote(t, router, "second")

	notes := fetchNotes(t, router)
	if len(notes) != 2 || notes[0].ID != created.ID || notes[1].Text != "second" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestFetchEmptyIsArray(t *testing.T) {
	router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/fetch", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestAddBlank(t *testing.T) {
	router := testEnv(t, "")
	body, _ := json.Marshal(NoteRequest{Item: "   "})
	req := httptest.NewRequest(http.MethodPost, "/add", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank add = %d, want 400", w.Code)
	}
}

func TestAddInvalidJSON(t *testing.T) {
	router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/add", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid json = %d, want 400", w.Code)
	}
}

func TestEditNote(t *testing.T) {
	router := testEnv(t, "")
	n := addNote(t, router, "v1")

	body, _ := json.Marshal(NoteRequest{Item: "v2"})
	req := httptest.NewRequest(http.MethodPut, "/edit/"+n.ID, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("edit = %d, body = %s", w.Code, w.Body.String())
	}
	if notes := fetchNotes(t, router); notes[0].Text != "v2" {
		t.Errorf("text = %q, want v2", notes[0].Text)
	}
}

func TestEditNote_NotFound(t *testing.T) {
	router := testEnv(t, "")
	body, _ := json.Marshal(NoteRequest{Item: "x"})
	req := httptest.NewRequest(http.MethodPut, "/edit/ghost", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("edit missing = %d, want 404", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	router := testEnv(t, "")
	n := addNote(t, router, "bye")

	req := httptest.NewRequest(http.MethodDelete, "/delete/"+n.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	// Deleting twice is reported, not swallowed.
	req = httptest.NewRequest(http.MethodDelete, "/delete/"+n.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
	if notes := fetchNotes(t, router); len(notes) != 0 {
		t.Errorf("notes = %+v, want empty", notes)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	body, _ := json.Marshal(NoteRequest{Item: "auth"})
	req := httptest.NewRequest(http.MethodPost, "/add", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed add = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/fetch", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/fetch", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	svc := noteservice.NewService(testutil.TestDB(t), nil)

	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(svc, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_Challenge(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/fetch?access_token=wrong", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong query token = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got == "" {
		t.Error("missing WWW-Authenticate header")
	}
}
