package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("cursor mismatch %+v vs %+v", got, want)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"!!", "bm9waXBl", "MjAyNnx4"} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
	if c, err := ParseCursor(" "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", c, err)
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, 1000: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

type row struct {
	id uuid.UUID
	at time.Time
}

func TestBuildTrimsLookahead(t *testing.T) {
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Second)}, {uuid.New(), now.Add(-2 * time.Second)}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := Build(rows, 2, key)
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	next, err := ParseCursor(page.NextCursor)
	if err != nil || next.ID != rows[1].id {
		t.Fatalf("next cursor should point at last returned row: %v %v", next, err)
	}

	last := Build(rows[:1], 2, key)
	if last.NextCursor != "" {
		t.Fatalf("final page must not carry a cursor")
	}
	if empty := Build[row](nil, 2, key); empty.Items == nil {
		t.Fatalf("items should be an empty slice, not nil")
	}
}

func TestParseCursorRequiresBothKeys(t *testing.T) {
	noID := EncodeCursor(Cursor{CreatedAt: time.Now()})
	if _, err := ParseCursor(noID); err == nil {
		t.Fatal("cursor without id should be rejected")
	}
	noTime := EncodeCursor(Cursor{ID: uuid.New()})
	if _, err := ParseCursor(noTime); err == nil {
		t.Fatal("cursor without timestamp should be rejected")
	}
}
