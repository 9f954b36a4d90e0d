package service

import (
	"context"

	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/media"
)

// Authenticator exchanges a username/OTP pair for a credential.
type Authenticator interface {
	Authenticate(ctx context.Context, username, otp string) (domain.Credential, error)
}

// QuoteLister fetches one page of quotes.
type QuoteLister interface {
	ListQuotes(ctx context.Context, cred domain.Credential, offset, limit int) ([]domain.Quote, error)
}

// QuoteCreator publishes a quote. mediaURL may be empty.
type QuoteCreator interface {
	CreateQuote(ctx context.Context, cred domain.Credential, text, mediaURL string) (domain.Quote, error)
}

// MediaUploader hosts an image and returns its public URL. Implemented by the
// remote gateway and by the object-storage media host.
type MediaUploader interface {
	UploadMedia(ctx context.Context, file *media.File) (string, error)
}
