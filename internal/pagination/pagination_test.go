package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/timmy/crafto/internal/domain"
)

func page(ids ...int64) []domain.Quote {
	out := make([]domain.Quote, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Quote{ID: id, Text: "q"})
	}
	return out
}

func TestCursor_FullPageStaysLoadable(t *testing.T) {
	c := NewCursor(10)
	c.Observe(10)

	assert.False(t, c.Exhausted())
	assert.Equal(t, 10, c.Offset())
}

func TestCursor_ShortPageExhausts(t *testing.T) {
	c := NewCursor(10)
	c.Observe(10)
	c.Observe(3)

	assert.True(t, c.Exhausted())
	assert.Equal(t, 10, c.Offset())

	c.Advance()
	c.Observe(10)
	assert.Equal(t, 10, c.Offset(), "exhausted cursor must not move")
}

func TestCursor_EmptyPageExhausts(t *testing.T) {
	c := NewCursor(12)
	c.Observe(0)
	assert.True(t, c.Exhausted())
	assert.Equal(t, 0, c.Offset())
}

func TestCursor_Reset(t *testing.T) {
	c := NewCursor(5)
	c.Observe(5)
	c.Observe(1)
	c.Reset()

	assert.False(t, c.Exhausted())
	assert.Equal(t, 0, c.Offset())
	assert.Equal(t, 5, c.PageSize())
}

func TestNewCursor_ClampsPageSize(t *testing.T) {
	assert.Equal(t, 1, NewCursor(0).PageSize())
}

func TestCollection_AppendPreservesOrderAndDedupes(t *testing.T) {
	c := NewCollection()

	assert.Equal(t, 3, c.Append(page(3, 1, 2)))
	assert.Equal(t, 1, c.Append(page(2, 4)))

	var ids []int64
	for _, q := range c.Items() {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []int64{3, 1, 2, 4}, ids)
	assert.Equal(t, 4, c.Len())
}

func TestCollection_ItemsIsACopy(t *testing.T) {
	c := NewCollection()
	c.Append(page(1))

	items := c.Items()
	items[0].Text = "changed"
	assert.Equal(t, "q", c.Items()[0].Text)
}

func TestCollection_Reset(t *testing.T) {
	c := NewCollection()
	c.Append(page(1, 2))
	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, c.Append(page(1)))
}
