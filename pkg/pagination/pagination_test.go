package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, MaxLimit + 50: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffer of one")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 4, 2, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", out, in)
	}

	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", c, err)
	}
	if _, err := ParseCursor("not-base64!"); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
	if _, err := ParseCursor(base64.RawURLEncoding.EncodeToString([]byte("zz.not-a-uuid"))); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor for bad id, got %v", err)
	}
	if enc := EncodeCursor(in); strings.ContainsAny(enc, "+/=") {
		t.Fatalf("cursor must be URL safe, got %q", enc)
	}
}

func TestPage(t *testing.T) {
	type row struct {
		at time.Time
		id uuid.UUID
	}
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	rows := []row{{base, uuid.New()}, {base.Add(-time.Hour), uuid.New()}, {base.Add(-2 * time.Hour), uuid.New()}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Page(rows, 2, key)
	if len(page) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page))
	}
	cursor, err := ParseCursor(next)
	if err != nil || cursor == nil {
		t.Fatalf("expected next cursor, got %v %v", cursor, err)
	}
	if cursor.ID != rows[1].id {
		t.Fatalf("cursor should point at last kept row")
	}

	page, next = Page(rows[:2], 2, key)
	if len(page) != 2 || next != "" {
		t.Fatalf("expected final page without cursor")
	}
}
