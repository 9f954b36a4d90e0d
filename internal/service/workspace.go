package service

import (
	"context"
	"sync"

	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/media"
	"github.com/timmy/crafto/internal/session"
)

// Workspace is the per-session state behind the pages: the quote feed and the
// create-quote draft.
type Workspace struct {
	Feed      *Feed
	Submitter *Submitter
}

// Submit runs the draft's submission and, on success, resets the feed so the
// next load starts from the newest quotes.
func (w *Workspace) Submit(ctx context.Context, sess *session.Session) (domain.Quote, error) {
	q, err := w.Submitter.Submit(ctx, sess)
	if err != nil {
		return q, err
	}
	w.Feed.Reset()
	return q, nil
}

// WorkspaceConfig sizes new workspaces.
type WorkspaceConfig struct {
	PageSize     int
	SearchAuthor bool
	Upload       media.Limits
}

// Workspaces keeps one Workspace per session key.
type Workspaces struct {
	lister   QuoteLister
	creator  QuoteCreator
	uploader MediaUploader
	cfg      WorkspaceConfig

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewWorkspaces creates an empty registry.
func NewWorkspaces(lister QuoteLister, creator QuoteCreator, uploader MediaUploader, cfg WorkspaceConfig) *Workspaces {
	return &Workspaces{
		lister:   lister,
		creator:  creator,
		uploader: uploader,
		cfg:      cfg,
		items:    make(map[string]*Workspace),
	}
}

// New builds a workspace that is not tracked by the registry.
func (w *Workspaces) New() *Workspace {
	return &Workspace{
		Feed:      NewFeed(w.lister, w.cfg.PageSize, w.cfg.SearchAuthor),
		Submitter: NewSubmitter(w.uploader, w.creator, w.cfg.Upload),
	}
}

// Get returns the workspace for key, creating it on first use.
func (w *Workspaces) Get(key string) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.items[key]
	if !ok {
		ws = w.New()
		w.items[key] = ws
	}
	return ws
}

// Drop forgets the workspace for key.
func (w *Workspaces) Drop(key string) {
	w.mu.Lock()
	delete(w.items, key)
	w.mu.Unlock()
}

// Len returns the number of tracked workspaces.
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}
