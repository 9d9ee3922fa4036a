// Package pagination implements opaque keyset cursors for list endpoints.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// Cursor is the decoded position of the last item on the previous page.
type Cursor struct {
	LastID    string    `json:"id"`
	Timestamp time.Time `json:"ts"`
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// EncodeCursor creates an opaque cursor from the last item's id and timestamp.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw, err := json.Marshal(Cursor{LastID: lastID, Timestamp: timestamp.UTC()})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor decodes an opaque cursor. An empty cursor decodes to nil,
// meaning "first page".
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.LastID == "" || c.Timestamp.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// CreateNextCursor creates a cursor for the next page based on the last item
// Returns empty string if there are no more items
func CreateNextCursor[T any](items []T, limit int, getID func(T) string, getTimestamp func(T) time.Time) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	lastItem := items[len(items)-1]
	return EncodeCursor(getID(lastItem), getTimestamp(lastItem))
}
