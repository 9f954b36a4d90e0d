package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/media"
	"github.com/timmy/crafto/internal/session"
)

const (
	MessageCreated       = "Quote created successfully!"
	MessageSubmitRunning = "A submission is already in progress"
)

// ErrSubmissionInFlight is returned when Submit is called before the previous
// submission settled.
var ErrSubmissionInFlight = errors.New(MessageSubmitRunning)

// Draft is the create-quote form state.
type Draft struct {
	Text    string
	File    *media.File
	Preview string
}

// HasFile reports whether an image is selected.
func (d Draft) HasFile() bool { return d.File != nil }

type draftInput struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// Submitter runs the upload-then-create workflow for one draft.
type Submitter struct {
	uploader MediaUploader
	creator  QuoteCreator
	limits   media.Limits

	busy   sync.Mutex
	mu     sync.Mutex
	draft  Draft
	status domain.Status
}

// NewSubmitter creates a submitter. limits bound the selected image; zero
// fields use the media package defaults.
func NewSubmitter(uploader MediaUploader, creator QuoteCreator, limits media.Limits) *Submitter {
	return &Submitter{uploader: uploader, creator: creator, limits: limits}
}

// SetText replaces the draft text.
func (s *Submitter) SetText(text string) {
	s.mu.Lock()
	s.draft.Text = text
	s.mu.Unlock()
}

// SelectFile validates file and attaches it with its preview. An invalid file
// leaves the previous selection in place.
func (s *Submitter) SelectFile(file *media.File) error {
	if err := file.Validate(s.limits); err != nil {
		return &gateway.UploadError{Cause: gateway.UploadInvalid, Message: invalidFileMessage(err), Err: err}
	}
	preview, err := file.Preview()
	if err != nil {
		return &gateway.UploadError{Cause: gateway.UploadInvalid, Message: invalidFileMessage(err), Err: err}
	}

	s.mu.Lock()
	s.draft.File = file
	s.draft.Preview = preview
	s.mu.Unlock()
	return nil
}

// ClearFile drops the selected image and its preview.
func (s *Submitter) ClearFile() {
	s.mu.Lock()
	s.draft.File = nil
	s.draft.Preview = ""
	s.mu.Unlock()
}

// Draft returns a snapshot of the form state.
func (s *Submitter) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Status returns the outcome of the last submission.
func (s *Submitter) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// TakeStatus returns the outcome of the last submission and clears it, so a
// message is shown once.
func (s *Submitter) TakeStatus() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	s.status = domain.Status{}
	return st
}

// Busy reports whether a submission is running.
func (s *Submitter) Busy() bool {
	if s.busy.TryLock() {
		s.busy.Unlock()
		return false
	}
	return true
}

// Submit uploads the selected image, if any, then creates the quote. An upload
// failure stops the workflow before create is called. On success the draft is
// emptied and the status reads MessageCreated; on failure the draft is kept
// and the status carries the error message.
func (s *Submitter) Submit(ctx context.Context, sess *session.Session) (domain.Quote, error) {
	if !s.busy.TryLock() {
		return domain.Quote{}, ErrSubmissionInFlight
	}
	defer s.busy.Unlock()

	q, err := s.submit(ctx, sess, s.Draft())

	s.mu.Lock()
	if err != nil {
		s.status = domain.Failure(UserMessage(err))
	} else {
		s.status = domain.Success(MessageCreated)
		s.draft = Draft{}
	}
	s.mu.Unlock()
	return q, err
}

func (s *Submitter) submit(ctx context.Context, sess *session.Session, d Draft) (domain.Quote, error) {
	text := strings.TrimSpace(d.Text)
	if err := validateInput(draftInput{Text: text}); err != nil {
		return domain.Quote{}, err
	}

	cred, err := sess.Require(ctx)
	if err != nil {
		return domain.Quote{}, err
	}

	log := logger.FromContext(ctx).WithField(logger.FieldUsername, cred.Username)
	start := time.Now()

	var mediaURL string
	if d.File != nil {
		if err := d.File.Validate(s.limits); err != nil {
			return domain.Quote{}, &gateway.UploadError{Cause: gateway.UploadInvalid, Message: invalidFileMessage(err), Err: err}
		}
		mediaURL, err = s.uploader.UploadMedia(ctx, d.File)
		if err != nil {
			log.WithError(err).Warn("Media upload failed")
			return domain.Quote{}, err
		}
	}

	q, err := s.creator.CreateQuote(ctx, cred, text, mediaURL)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSession) {
			if cerr := sess.Clear(ctx); cerr != nil {
				log.WithError(cerr).Warn("Failed to clear rejected credential")
			}
		}
		log.WithError(err).Warn("Quote creation failed")
		return domain.Quote{}, err
	}

	logger.With(logger.Fields{"quote_id": q.ID, "has_media": mediaURL != ""}).
		WithDuration(start).
		Info(ctx, "Quote created")
	return q, nil
}

func invalidFileMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return "The selected file is too large"
	case errors.Is(err, media.ErrTooManyPixels):
		return "The selected image dimensions are too large"
	case errors.Is(err, media.ErrEmptyFile):
		return "The selected file is empty"
	case errors.Is(err, media.ErrNoSelection):
		return "No file selected"
	default:
		return "The selected file is not a supported image"
	}
}
