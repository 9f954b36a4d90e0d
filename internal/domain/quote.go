package domain

import (
	"strings"
	"time"
)

// Quote is a quote as served by the remote service. The client only lists and
// creates quotes; it never edits them.
type Quote struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Text      string  `json:"text"`
	MediaURL  *string `json:"mediaUrl"`
	CreatedAt string  `json:"createdAt"`
}

// HasMedia reports whether the quote references an image.
func (q Quote) HasMedia() bool {
	return q.MediaURL != nil && strings.TrimSpace(*q.MediaURL) != ""
}

// Media returns the media URL or "" when absent.
func (q Quote) Media() string {
	if !q.HasMedia() {
		return ""
	}
	return *q.MediaURL
}

// CreatedTime parses CreatedAt as RFC 3339. The zero time is returned when the
// server sent something unparsable.
func (q Quote) CreatedTime() time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, q.CreatedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CreatedDate renders the creation timestamp as a local calendar date.
func (q Quote) CreatedDate(loc *time.Location) string {
	t := q.CreatedTime()
	if t.IsZero() {
		return q.CreatedAt
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("1/2/2006")
}
