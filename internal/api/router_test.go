package api

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/crafto/internal/config"
	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/media"
	"github.com/timmy/crafto/internal/service"
	"github.com/timmy/crafto/internal/session"
)

const cookieName = "crafto_session"

type fakeRemote struct {
	mu          sync.Mutex
	quotes      []domain.Quote
	listCalls   int
	uploadCalls int
	listErr     error
	uploadErr   error
}

func (f *fakeRemote) Authenticate(ctx context.Context, username, otp string) (domain.Credential, error) {
	if otp != "123456" {
		return domain.Credential{}, &gateway.AuthError{StatusCode: 400, Message: "Invalid OTP"}
	}
	return domain.Credential{Token: "tok1", Username: username}, nil
}

func (f *fakeRemote) ListQuotes(ctx context.Context, cred domain.Credential, offset, limit int) ([]domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.quotes) {
		return nil, nil
	}
	return append([]domain.Quote(nil), f.quotes[offset:min(offset+limit, len(f.quotes))]...), nil
}

func (f *fakeRemote) CreateQuote(ctx context.Context, cred domain.Credential, text, mediaURL string) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := domain.Quote{ID: int64(len(f.quotes) + 1), Username: cred.Username, Text: text, CreatedAt: "2024-10-05T10:00:00Z"}
	if mediaURL != "" {
		q.MediaURL = &mediaURL
	}
	f.quotes = append([]domain.Quote{q}, f.quotes...)
	return q, nil
}

func (f *fakeRemote) UploadMedia(ctx context.Context, file *media.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://cdn.example.com/" + file.Name, nil
}

type testServer struct {
	router *gin.Engine
	remote *fakeRemote
	store  *session.MemoryStore
}

func newTestServer(t *testing.T, remote *fakeRemote) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Mode:                "test",
			CookieName:          cookieName,
			InvalidSessionDelay: 2 * time.Second,
		},
		Upload: config.UploadConfig{MaxBytes: 1 << 20},
		Feed:   config.FeedConfig{PageSize: 12, SearchAuthor: true},
	}
	store := session.NewMemoryStore()
	workspaces := service.NewWorkspaces(remote, remote, remote, service.WorkspaceConfig{
		PageSize:     cfg.Feed.PageSize,
		SearchAuthor: cfg.Feed.SearchAuthor,
		Upload:       media.Limits{MaxBytes: cfg.Upload.MaxBytes},
	})
	router, err := SetupRouter(&Deps{
		Auth:       service.NewAuthService(remote, nil),
		Workspaces: workspaces,
		Store:      store,
	}, cfg)
	require.NoError(t, err)
	return &testServer{router: router, remote: remote, store: store}
}

// login stores a credential under a fresh session key and returns the cookie.
func (s *testServer) login(t *testing.T, token string) *http.Cookie {
	t.Helper()
	key := session.NewKey()
	require.NoError(t, s.store.Save(context.Background(), key, domain.Credential{Token: token, Username: "alice"}))
	return &http.Cookie{Name: cookieName, Value: key}
}

func (s *testServer) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func seedQuotes(n int) []domain.Quote {
	out := make([]domain.Quote, n)
	for i := range out {
		out[i] = domain.Quote{ID: int64(n - i), Username: "bob", Text: fmt.Sprintf("quote %d", n-i), CreatedAt: "2024-10-05T10:00:00Z"}
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeRemote{})
	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","workspaces":0,"sessions":0}`, w.Body.String())

	s.login(t, "tok1")
	w = s.do(httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	assert.JSONEq(t, `{"status":"ok","workspaces":0,"sessions":1}`, w.Body.String())
}

func TestHome(t *testing.T) {
	s := newTestServer(t, &fakeRemote{})
	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome to Crafto")
	assert.Contains(t, w.Header().Get("Set-Cookie"), cookieName+"=")
}

func TestAuthenticatedPagesRedirectWithoutFetching(t *testing.T) {
	s := newTestServer(t, &fakeRemote{quotes: seedQuotes(3)})

	for _, path := range []string{"/quote", "/create-quote"} {
		w := s.do(httptest.NewRequest(http.MethodGet, path, nil), nil)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}
	w := s.do(httptest.NewRequest(http.MethodPost, "/quote/more", nil), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Zero(t, s.remote.listCalls)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, &fakeRemote{})
	key := session.NewKey()
	cookie := &http.Cookie{Name: cookieName, Value: key}

	form := url.Values{"username": {"alice"}, "otp": {"123456"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req, cookie)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/quote", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	renewed := cookies[0]
	assert.Equal(t, cookieName, renewed.Name)
	assert.NotEqual(t, key, renewed.Value, "login issues a new session key")
	assert.True(t, renewed.HttpOnly)

	_, ok := s.store.Read(context.Background(), key)
	assert.False(t, ok, "the key sent before login holds no credential")
	cred, ok := s.store.Read(context.Background(), renewed.Value)
	require.True(t, ok)
	assert.Equal(t, "tok1", cred.Token)

	stale := s.do(httptest.NewRequest(http.MethodGet, "/quote", nil), cookie)
	assert.Equal(t, http.StatusFound, stale.Code)
	fresh := s.do(httptest.NewRequest(http.MethodGet, "/quote", nil), renewed)
	assert.Equal(t, http.StatusOK, fresh.Code)
}

func TestLoginReplacesExistingSession(t *testing.T) {
	s := newTestServer(t, &fakeRemote{})
	old := s.login(t, "stale-token")

	form := url.Values{"username": {"alice"}, "otp": {"123456"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req, old)

	require.Equal(t, http.StatusSeeOther, w.Code)
	_, ok := s.store.Read(context.Background(), old.Value)
	assert.False(t, ok)
	require.Len(t, w.Result().Cookies(), 1)
	assert.NotEqual(t, old.Value, w.Result().Cookies()[0].Value)
}

func TestLoginFailureRendersMessage(t *testing.T) {
	s := newTestServer(t, &fakeRemote{})
	key := session.NewKey()

	form := url.Values{"username": {"alice"}, "otp": {"999999"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req, &http.Cookie{Name: cookieName, Value: key})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid OTP")
	assert.Contains(t, w.Body.String(), `value="alice"`)
	_, ok := s.store.Read(context.Background(), key)
	assert.False(t, ok)
}

func TestQuotesPage(t *testing.T) {
	s := newTestServer(t, &fakeRemote{quotes: seedQuotes(20)})
	cookie := s.login(t, "tok1")

	w := s.do(httptest.NewRequest(http.MethodGet, "/quote", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "quote 20")
	assert.NotContains(t, body, "quote 8")
	assert.Contains(t, body, "Load More")
	assert.Contains(t, body, "Log out (alice)")

	filtered := s.do(httptest.NewRequest(http.MethodGet, "/quote?q=QUOTE+19", nil), cookie)
	assert.Contains(t, filtered.Body.String(), "quote 19")
	assert.NotContains(t, filtered.Body.String(), "quote 20")
	assert.NotContains(t, filtered.Body.String(), "Load More")
	assert.Equal(t, 1, s.remote.listCalls, "filtering does not refetch")

	more := s.do(httptest.NewRequest(http.MethodPost, "/quote/more", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, more.Code)
	assert.Equal(t, 2, s.remote.listCalls)

	all := s.do(httptest.NewRequest(http.MethodGet, "/quote", nil), cookie)
	assert.Contains(t, all.Body.String(), "quote 1&quot;")
	assert.NotContains(t, all.Body.String(), "Load More")
}

func TestQuotesInvalidSessionRedirectsAfterDelay(t *testing.T) {
	remote := &fakeRemote{listErr: fmt.Errorf("list quotes (status=400): %w", gateway.ErrInvalidSession)}
	s := newTestServer(t, remote)
	cookie := s.login(t, "stale")

	w := s.do(httptest.NewRequest(http.MethodGet, "/quote", nil), cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "2; url=/login", w.Header().Get("Refresh"))
	assert.Contains(t, w.Body.String(), `http-equiv="refresh"`)
	assert.Contains(t, w.Body.String(), service.MessageSessionExpired)

	_, ok := s.store.Read(context.Background(), cookie.Value)
	assert.False(t, ok, "rejected credential is cleared")
}

func TestQuotesFetchError(t *testing.T) {
	remote := &fakeRemote{listErr: &gateway.FetchError{StatusCode: 500, Message: "Error fetching quotes"}}
	s := newTestServer(t, remote)

	w := s.do(httptest.NewRequest(http.MethodGet, "/quote", nil), s.login(t, "tok1"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Error fetching quotes")
	assert.Empty(t, w.Header().Get("Refresh"))
	assert.Contains(t, w.Body.String(), "Request ID: "+w.Header().Get("X-Request-ID"))
}

func TestCreateQuoteThenReload(t *testing.T) {
	s := newTestServer(t, &fakeRemote{quotes: seedQuotes(2)})
	cookie := s.login(t, "tok1")

	form := url.Values{"text": {"hello"}}
	req := httptest.NewRequest(http.MethodPost, "/create-quote", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), service.MessageCreated)
	assert.Contains(t, w.Body.String(), `placeholder="Enter your quote here..." required></textarea>`, "text is reset")
	assert.Zero(t, s.remote.uploadCalls)

	list := s.do(httptest.NewRequest(http.MethodGet, "/quote", nil), cookie)
	assert.Contains(t, list.Body.String(), "&quot;hello&quot;")

	again := s.do(httptest.NewRequest(http.MethodGet, "/create-quote", nil), cookie)
	require.Equal(t, http.StatusOK, again.Code)
	assert.NotContains(t, again.Body.String(), service.MessageCreated, "the success message is shown once")
}

func multipartCreate(t *testing.T, text, action string, withImage bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", text))
	require.NoError(t, mw.WriteField("action", action))
	if withImage {
		fw, err := mw.CreateFormFile("file", "cat.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(fw, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/create-quote", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateQuoteWithImage(t *testing.T) {
	s := newTestServer(t, &fakeRemote{})
	cookie := s.login(t, "tok1")

	preview := s.do(multipartCreate(t, "pic", "preview", true), cookie)
	require.Equal(t, http.StatusOK, preview.Code)
	assert.Contains(t, preview.Body.String(), "data:image/jpeg;base64,")
	assert.Zero(t, s.remote.uploadCalls)

	w := s.do(multipartCreate(t, "pic", "submit", false), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), service.MessageCreated)
	assert.Equal(t, 1, s.remote.uploadCalls)
	assert.Equal(t, "https://cdn.example.com/cat.png", s.remote.quotes[0].Media())
	assert.NotContains(t, w.Body.String(), "data:image/jpeg;base64,", "preview is reset")
}

func TestCreateQuoteUploadFailureKeepsDraft(t *testing.T) {
	remote := &fakeRemote{uploadErr: &gateway.UploadError{Cause: gateway.UploadMissingURL, Message: "No mediaUrl returned from upload"}}
	s := newTestServer(t, remote)
	cookie := s.login(t, "tok1")

	w := s.do(multipartCreate(t, "keep me", "submit", true), cookie)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "No mediaUrl returned from upload")
	assert.Contains(t, w.Body.String(), "keep me")
	assert.Empty(t, remote.quotes)
}

func TestCreateQuoteRejectsNonImage(t *testing.T) {
	s := newTestServer(t, &fakeRemote{})
	cookie := s.login(t, "tok1")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "hi"))
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("just text"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/create-quote", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := s.do(req, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not a supported image")
	assert.Zero(t, s.remote.uploadCalls)
}

func TestLogout(t *testing.T) {
	s := newTestServer(t, &fakeRemote{})
	cookie := s.login(t, "tok1")

	w := s.do(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	_, ok := s.store.Read(context.Background(), cookie.Value)
	assert.False(t, ok)
}
