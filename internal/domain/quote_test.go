package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuote_Media(t *testing.T) {
	url := "https://cdn.example/a.png"
	blank := "  "

	assert.False(t, Quote{}.HasMedia())
	assert.False(t, Quote{MediaURL: &blank}.HasMedia())
	assert.True(t, Quote{MediaURL: &url}.HasMedia())
	assert.Equal(t, url, Quote{MediaURL: &url}.Media())
	assert.Equal(t, "", Quote{}.Media())
}

func TestQuote_CreatedDate(t *testing.T) {
	q := Quote{CreatedAt: "2024-10-05T23:30:00.000Z"}
	assert.Equal(t, "10/5/2024", q.CreatedDate(time.UTC))

	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, "10/6/2024", q.CreatedDate(tokyo))

	assert.Equal(t, "yesterday", Quote{CreatedAt: "yesterday"}.CreatedDate(time.UTC))
}
