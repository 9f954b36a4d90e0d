package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/filter"
	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/pagination"
	"github.com/timmy/crafto/internal/session"
)

// ErrLoadInFlight is returned when a page is requested while another is loading.
var ErrLoadInFlight = errors.New("service: a page load is already in progress")

// FeedView is the filtered list ready for rendering.
type FeedView struct {
	Quotes []domain.Quote
	Term   string
	// Total counts every accumulated quote, filtered or not.
	Total int
	// CanLoadMore is true when more pages exist and no filter hides part of the list.
	CanLoadMore bool
}

// Feed accumulates quote pages for one session.
type Feed struct {
	lister QuoteLister
	fields []filter.Field

	// gate admits one fetch at a time; mu guards the state below.
	gate   sync.Mutex
	mu     sync.RWMutex
	cursor *pagination.Cursor
	items  *pagination.Collection
	// resets counts Reset calls; a page fetched across a reset is dropped.
	resets uint64
}

// NewFeed creates a feed requesting pageSize quotes at a time.
func NewFeed(lister QuoteLister, pageSize int, searchAuthor bool) *Feed {
	return &Feed{
		lister: lister,
		fields: filter.Fields(searchAuthor),
		cursor: pagination.NewCursor(pageSize),
		items:  pagination.NewCollection(),
	}
}

// LoadNext fetches the page at the cursor and appends it. It returns the number
// of new quotes, 0 once the feed is exhausted.
//
// Errors:
//   - ErrLoadInFlight when another load has not settled; nothing is sent.
//   - session.ErrSessionMissing when sess holds no credential; nothing is sent.
//   - gateway.ErrInvalidSession when the server rejects the credential, which
//     is then cleared from sess.
//   - *gateway.FetchError for anything else. The cursor does not move.
//
// A page that arrives after Reset is discarded and 0 is returned.
func (f *Feed) LoadNext(ctx context.Context, sess *session.Session) (int, error) {
	if !f.gate.TryLock() {
		return 0, ErrLoadInFlight
	}
	defer f.gate.Unlock()

	f.mu.RLock()
	exhausted, offset, limit := f.cursor.Exhausted(), f.cursor.Offset(), f.cursor.PageSize()
	generation := f.resets
	f.mu.RUnlock()
	if exhausted {
		return 0, nil
	}

	cred, err := sess.Require(ctx)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	page, err := f.lister.ListQuotes(ctx, cred, offset, limit)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSession) {
			if cerr := sess.Clear(ctx); cerr != nil {
				logger.CtxWarn(ctx, "Failed to clear rejected credential: %v", cerr)
			}
		}
		return 0, err
	}

	f.mu.Lock()
	if f.resets != generation {
		f.mu.Unlock()
		logger.CtxDebug(ctx, "Dropped quote page at offset %d fetched before reset", offset)
		return 0, nil
	}
	added := f.items.Append(page)
	f.cursor.Observe(len(page))
	exhausted = f.cursor.Exhausted()
	f.mu.Unlock()

	logger.With(logger.Fields{logger.FieldOffset: offset, "exhausted": exhausted}).
		WithCount(len(page)).
		WithDuration(start).
		Debug(ctx, "Quote page loaded")
	return added, nil
}

// Load fetches up to pages pages, stopping early when the feed is exhausted.
func (f *Feed) Load(ctx context.Context, sess *session.Session, pages int) (int, error) {
	total := 0
	for i := 0; i < pages && !f.Exhausted(); i++ {
		n, err := f.LoadNext(ctx, sess)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// EnsureLoaded loads the first page if nothing has been fetched yet.
func (f *Feed) EnsureLoaded(ctx context.Context, sess *session.Session) error {
	f.mu.RLock()
	fresh := f.items.Len() == 0 && f.cursor.Offset() == 0 && !f.cursor.Exhausted()
	f.mu.RUnlock()
	if !fresh {
		return nil
	}
	_, err := f.LoadNext(ctx, sess)
	return err
}

// Reset drops the accumulated quotes and rewinds the cursor so the next load
// starts from the newest page. A load still in flight is discarded when it lands.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.items.Reset()
	f.cursor.Reset()
}

// Exhausted reports whether the last page came back short.
func (f *Feed) Exhausted() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cursor.Exhausted()
}

// Offset is the offset of the next page.
func (f *Feed) Offset() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cursor.Offset()
}

// View filters the accumulated quotes by term.
func (f *Feed) View(term string) FeedView {
	f.mu.RLock()
	all := f.items.Items()
	exhausted := f.cursor.Exhausted()
	f.mu.RUnlock()

	shown := filter.Apply(all, term, f.fields...)
	return FeedView{
		Quotes:      shown,
		Term:        term,
		Total:       len(all),
		CanLoadMore: !exhausted && len(shown) == len(all),
	}
}
