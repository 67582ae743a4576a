package noteservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/testutil"
)

type recorded struct{ kind, id string }

func testService(t *testing.T) (*Service, *[]recorded) {
	t.Helper()
	var events []recorded
	svc := NewService(testutil.TestDB(t), func(kind, id string) {
		events = append(events, recorded{kind, id})
	})
	return svc, &events
}

func TestCreateTrimsText(t *testing.T) {
	svc, events := testService(t)
	n, err := svc.CreateNote(context.Background(), "  hello\n")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if n.Text != "hello" {
		t.Errorf("text = %q, want hello", n.Text)
	}
	if len(*events) != 1 || (*events)[0] != (recorded{KindCreated, n.ID}) {
		t.Errorf("events = %+v", *events)
	}
}

func TestCreateRejectsBlank(t *testing.T) {
	svc, events := testService(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := svc.CreateNote(context.Background(), text); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("CreateNote(%q) err = %v, want ErrValidation", text, err)
		}
	}
	if len(*events) != 0 {
		t.Errorf("no events expected, got %+v", *events)
	}
}

func TestCreateRejectsOversized(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.CreateNote(context.Background(), strings.Repeat("x", MaxTextLength+1))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, events := testService(t)
	ctx := context.Background()
	n, _ := svc.CreateNote(ctx, "v1")

	if _, err := svc.UpdateNote(ctx, n.ID, " v2 "); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	notes, _ := svc.ListNotes(ctx)
	if len(notes) != 1 || notes[0].Text != "v2" {
		t.Fatalf("notes = %+v", notes)
	}
	if err := svc.DeleteNote(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if len(*events) != 3 || (*events)[2].kind != KindDeleted {
		t.Errorf("events = %+v", *events)
	}
}

func TestUpdateUnknownIsNotFound(t *testing.T) {
	svc, events := testService(t)
	if _, err := svc.UpdateNote(context.Background(), "ghost", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteNote(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete err = %v, want ErrNotFound", err)
	}
	if len(*events) != 0 {
		t.Errorf("no events expected, got %+v", *events)
	}
}
