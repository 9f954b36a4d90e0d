// Package pagination tracks offset-based paging over the quote list and the
// records accumulated so far.
package pagination

// Cursor is an offset/limit cursor with two states: loadable and exhausted.
// Once exhausted it never loads again until Reset.
type Cursor struct {
	offset    int
	pageSize  int
	exhausted bool
}

// NewCursor returns a loadable cursor at offset 0. A non-positive page size is
// replaced by 1.
func NewCursor(pageSize int) *Cursor {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &Cursor{pageSize: pageSize}
}

// Offset is the offset of the next page to request.
func (c *Cursor) Offset() int { return c.offset }

// PageSize is the limit sent with each request.
func (c *Cursor) PageSize() int { return c.pageSize }

// Exhausted reports whether the last page came back short.
func (c *Cursor) Exhausted() bool { return c.exhausted }

// Advance moves to the next page. It is a no-op once exhausted.
func (c *Cursor) Advance() {
	if c.exhausted {
		return
	}
	c.offset += c.pageSize
}

// Observe records the size of the page fetched at the current offset: a full
// page advances the cursor, a short one exhausts it.
func (c *Cursor) Observe(n int) {
	if c.exhausted {
		return
	}
	if n < c.pageSize {
		c.exhausted = true
		return
	}
	c.Advance()
}

// Reset rewinds to offset 0 in the loadable state.
func (c *Cursor) Reset() {
	c.offset = 0
	c.exhausted = false
}
