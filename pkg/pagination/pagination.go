package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Params carries the raw limit and opaque cursor from a request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the keyset position of the last row served, under the
// (created_at DESC, id DESC) ordering every list endpoint uses.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer asks for one extra row so Page can tell whether another
// page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders c as URL-safe text so it can travel in a query string
// without escaping.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 36) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor reverses EncodeCursor. Blank input means the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	nanos, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 36, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: parsed}, nil
}

// Apply orders query newest first and seeks past cursor. The predicate is
// spelled out instead of a row-value comparison so SQLite accepts it.
func Apply(query *gorm.DB, cursor *Cursor, limit int) *gorm.DB {
	if cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	return query.Order("created_at DESC, id DESC").Limit(LimitWithBuffer(limit))
}

// Page drops the lookahead row fetched by Apply and returns the cursor for
// the next page, or "" on the last one.
func Page[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	n := NormalizeLimit(limit)
	if len(rows) <= n {
		return rows, ""
	}
	rows = rows[:n]
	return rows, EncodeCursor(key(rows[n-1]))
}
