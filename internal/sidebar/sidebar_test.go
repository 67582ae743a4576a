package sidebar

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/bucket/internal/models"
)

const sampleYAML = `
sections:
  - title: Main
    items:
      - {id: home, label: All Notes, icon: home}
  - title: Tags
    items:
      - {id: work, label: Work, icon: tag, color: "#3B82F6"}
`

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestDefaultIsValid(t *testing.T) {
	sections := Default()
	if err := Validate(sections); err != nil {
		t.Fatalf("default sidebar invalid: %v", err)
	}
	items := Items(sections)
	if len(items) != 8 || items[0].ID != HomeID {
		t.Errorf("items = %+v", items)
	}
}

func TestParse(t *testing.T) {
	sections, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sections) != 2 || sections[1].Items[0].Color != "#3B82F6" {
		t.Errorf("sections = %+v", sections)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":        `sections: []`,
		"missing id":   "sections:\n  - title: A\n    items:\n      - {label: x}\n",
		"duplicate id": "sections:\n  - title: A\n    items:\n      - {id: a, label: x}\n      - {id: a, label: y}\n",
		"bad yaml":     "sections: [",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "sidebar: read") {
		t.Errorf("err = %v", err)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sidebar.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []models.Section
	done := make(chan struct{})
	go func() {
		_ = Watch(ctx, path, logger, func(s []models.Section) {
			mu.Lock()
			got = s
			mu.Unlock()
		})
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	updated := "sections:\n  - title: Only\n    items:\n      - {id: solo, label: Solo}\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].Title == "Only"
	}, "sidebar was not reloaded")

	cancel()
	<-done
}
