// Package gateway talks to the remote quote service: login, listing, creating
// quotes and hosting media. No call is retried; retrying is the caller's decision.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/media"
)

const (
	loginPath      = "/login"
	listPath       = "/getQuotes"
	createPath     = "/postQuote"
	defaultField   = "file"
	defaultAgent   = "crafto-go/1.0"
	defaultTimeout = 30 * time.Second
)

// Config holds gateway settings.
type Config struct {
	BaseURL        string
	UploadEndpoint string
	UploadField    string
	UploadShape    UploadShape
	Timeout        time.Duration
	UserAgent      string
	// HTTPClient replaces the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client wraps the service endpoints.
type Client struct {
	http           *resty.Client
	uploadEndpoint string
	uploadField    string
	uploadShape    UploadShape
}

type loginRequest struct {
	Username string `json:"username"`
	OTP      string `json:"otp"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type listResponse struct {
	Data []domain.Quote `json:"data"`
}

type createRequest struct {
	Text     string `json:"text"`
	MediaURL string `json:"mediaUrl"`
}

// New creates a gateway client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	shape := cfg.UploadShape
	if shape == "" {
		shape = ShapeMediaURL
	}
	if !shape.Valid() {
		return nil, fmt.Errorf("gateway: unknown upload response shape %q", shape)
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	agent := strings.TrimSpace(cfg.UserAgent)
	if agent == "" {
		agent = defaultAgent
	}
	field := strings.TrimSpace(cfg.UploadField)
	if field == "" {
		field = defaultField
	}

	rc.SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	rc.SetTimeout(timeout)
	rc.SetRetryCount(0)
	rc.SetHeader("User-Agent", agent)
	rc.SetHeader("Accept", "application/json")

	return &Client{
		http:           rc,
		uploadEndpoint: strings.TrimSpace(cfg.UploadEndpoint),
		uploadField:    field,
		uploadShape:    shape,
	}, nil
}

// Authenticate exchanges a username/OTP pair for a credential.
func (c *Client) Authenticate(ctx context.Context, username, otp string) (domain.Credential, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{Username: username, OTP: otp}).
		Post(loginPath)
	if err != nil {
		return domain.Credential{}, &AuthError{Message: defaultAuthMessage, Err: err}
	}

	if !resp.IsSuccess() {
		return domain.Credential{}, &AuthError{
			StatusCode: resp.StatusCode(),
			Message:    messageOr(resp.Body(), defaultAuthMessage),
		}
	}

	var out loginResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return domain.Credential{}, &AuthError{StatusCode: resp.StatusCode(), Message: defaultAuthMessage, Err: err}
	}
	if strings.TrimSpace(out.Token) == "" {
		return domain.Credential{}, &AuthError{StatusCode: resp.StatusCode(), Message: "login response did not include a token"}
	}
	if out.Username == "" {
		out.Username = username
	}
	return domain.Credential{Token: out.Token, Username: out.Username}, nil
}

// ListQuotes fetches one page of quotes. A rejected credential yields an error
// matching ErrInvalidSession; everything else is a *FetchError.
func (c *Client) ListQuotes(ctx context.Context, cred domain.Credential, offset, limit int) ([]domain.Quote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", cred.Token).
		SetQueryParams(map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}).
		Get(listPath)
	if err != nil {
		return nil, &FetchError{Message: defaultFetchMessage, Err: err}
	}

	if !resp.IsSuccess() {
		if invalidToken(resp.StatusCode(), resp.Body()) {
			return nil, fmt.Errorf("list quotes (status=%d): %w", resp.StatusCode(), ErrInvalidSession)
		}
		return nil, &FetchError{StatusCode: resp.StatusCode(), Message: messageOr(resp.Body(), defaultFetchMessage)}
	}

	var out listResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode(), Message: "malformed quote list", Err: err}
	}
	if out.Data == nil {
		return []domain.Quote{}, nil
	}
	return out.Data, nil
}

// UploadMedia posts the file as multipart form data and returns the hosted URL.
func (c *Client) UploadMedia(ctx context.Context, file *media.File) (string, error) {
	if file == nil || len(file.Data) == 0 {
		return "", &UploadError{Cause: UploadInvalid, Message: "no file to upload", Err: media.ErrNoSelection}
	}
	if c.uploadEndpoint == "" {
		return "", &UploadError{Cause: UploadTransport, Message: "upload endpoint is not configured"}
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField(c.uploadField, file.Name, contentType, bytes.NewReader(file.Data)).
		Post(c.uploadEndpoint)
	if err != nil {
		return "", &UploadError{Cause: UploadTransport, Message: defaultUploadMessage, Err: err}
	}

	if !resp.IsSuccess() {
		return "", &UploadError{
			Cause:      UploadStatus,
			StatusCode: resp.StatusCode(),
			Message:    messageOr(resp.Body(), defaultUploadMessage),
		}
	}

	url, err := c.uploadShape.parse(resp.Body())
	if err != nil {
		return "", &UploadError{
			Cause:      UploadMissingURL,
			StatusCode: resp.StatusCode(),
			Message:    c.uploadShape.missingMessage(),
			Err:        err,
		}
	}
	return url, nil
}

// CreateQuote publishes a quote. mediaURL may be empty.
func (c *Client) CreateQuote(ctx context.Context, cred domain.Credential, text, mediaURL string) (domain.Quote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", cred.Token).
		SetHeader("Content-Type", "application/json").
		SetBody(createRequest{Text: text, MediaURL: mediaURL}).
		Post(createPath)
	if err != nil {
		return domain.Quote{}, &CreateError{Message: defaultCreateMessage, Err: err}
	}

	if !resp.IsSuccess() {
		ce := &CreateError{StatusCode: resp.StatusCode(), Message: messageOr(resp.Body(), defaultCreateMessage)}
		if invalidToken(resp.StatusCode(), resp.Body()) {
			ce.Err = ErrInvalidSession
		}
		return domain.Quote{}, ce
	}

	return decodeCreated(resp.Body(), cred, text, mediaURL), nil
}

// decodeCreated reads the created quote, accepting a bare object or one wrapped in
// "data". A body it cannot read still counts as success; the quote is rebuilt from
// the request.
func decodeCreated(body []byte, cred domain.Credential, text, mediaURL string) domain.Quote {
	var q domain.Quote
	if err := json.Unmarshal(body, &q); err == nil && (q.ID != 0 || q.Text != "") {
		return q
	}
	var wrapped struct {
		Data domain.Quote `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && (wrapped.Data.ID != 0 || wrapped.Data.Text != "") {
		return wrapped.Data
	}

	q = domain.Quote{Username: cred.Username, Text: text, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	if mediaURL != "" {
		q.MediaURL = &mediaURL
	}
	return q
}

func messageOr(body []byte, fallback string) string {
	if m := serverMessage(body); m != "" {
		return m
	}
	return fallback
}
