package pagination

import "github.com/timmy/crafto/internal/domain"

// Collection accumulates quotes in server page order, dropping ids it has
// already seen.
type Collection struct {
	items []domain.Quote
	seen  map[int64]struct{}
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{seen: make(map[int64]struct{})}
}

// Append adds a page and returns how many quotes were new.
func (c *Collection) Append(page []domain.Quote) int {
	added := 0
	for _, q := range page {
		if _, dup := c.seen[q.ID]; dup {
			continue
		}
		c.seen[q.ID] = struct{}{}
		c.items = append(c.items, q)
		added++
	}
	return added
}

// Items returns a copy of the accumulated quotes.
func (c *Collection) Items() []domain.Quote {
	out := make([]domain.Quote, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of accumulated quotes.
func (c *Collection) Len() int { return len(c.items) }

// Reset drops everything.
func (c *Collection) Reset() {
	c.items = nil
	c.seen = make(map[int64]struct{})
}
