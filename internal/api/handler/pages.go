package handler

import (
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/crafto/internal/api/middleware"
	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/media"
	"github.com/timmy/crafto/internal/service"
	"github.com/timmy/crafto/internal/session"
)

const (
	LoginPath  = "/login"
	QuotesPath = "/quote"
	CreatePath = "/create-quote"
)

// page is the data every template receives.
type page struct {
	Title         string
	Username      string
	Status        domain.Status
	RedirectURL   string
	RequestID     string
	RedirectAfter int

	Form  service.LoginInput
	View  service.FeedView
	Draft service.Draft
	Busy  bool
}

// PageConfig tunes page behavior.
type PageConfig struct {
	// InvalidSessionDelay is how long the expired-session message stays up
	// before the browser moves to the login page.
	InvalidSessionDelay time.Duration
	MaxUploadBytes      int64
}

// PageHandler serves the HTML pages.
type PageHandler struct {
	auth       *service.AuthService
	workspaces *service.Workspaces
	cfg        PageConfig
}

// NewPageHandler creates a new page handler.
// Parameters:
//   - auth: login/logout service.
//   - workspaces: per-session feed and draft registry.
//   - cfg: page settings.
//
// Returns:
//   - *PageHandler: initialized handler.
func NewPageHandler(auth *service.AuthService, workspaces *service.Workspaces, cfg PageConfig) *PageHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = media.DefaultMaxBytes
	}
	return &PageHandler{auth: auth, workspaces: workspaces, cfg: cfg}
}

func (h *PageHandler) newPage(c *gin.Context, title string) page {
	p := page{Title: title}
	if sess := middleware.CurrentSession(c); sess != nil {
		if cred, ok := sess.Read(c.Request.Context()); ok {
			p.Username = cred.Username
		}
	}
	return p
}

// Home handles GET /.
func (h *PageHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", h.newPage(c, "Home"))
}

// LoginForm handles GET /login.
func (h *PageHandler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", h.newPage(c, "Log in"))
}

// Login handles POST /login. The credential is saved under a fresh session key
// and the cookie moves to it; the key the browser arrived with is cleared.
func (h *PageHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	prev := middleware.CurrentSession(c)
	fresh := prev.Renew()

	var in service.LoginInput
	_ = c.ShouldBind(&in)

	if _, err := h.auth.Login(ctx, fresh, in); err != nil {
		p := h.newPage(c, "Log in")
		p.Form = service.LoginInput{Username: in.Username}
		p.Status = domain.Failure(service.UserMessage(err))
		c.HTML(statusFor(err), "login.html", p)
		return
	}

	if err := prev.Clear(ctx); err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Failed to clear previous session")
	}
	h.workspaces.Drop(prev.Key())
	middleware.BindSession(c, fresh)
	c.Redirect(http.StatusSeeOther, QuotesPath)
}

// Logout handles POST /logout.
func (h *PageHandler) Logout(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if err := h.auth.Logout(c.Request.Context(), sess); err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Logout failed")
	}
	h.workspaces.Drop(sess.Key())
	c.Redirect(http.StatusSeeOther, LoginPath)
}

// Quotes handles GET /quote. The first visit loads the first page; later
// visits only re-filter what has been accumulated.
func (h *PageHandler) Quotes(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ws := h.workspaces.Get(sess.Key())

	err := ws.Feed.EnsureLoaded(c.Request.Context(), sess)
	if err != nil && !errors.Is(err, service.ErrLoadInFlight) {
		h.renderFailure(c, sess, err)
		return
	}

	p := h.newPage(c, "Quotes")
	p.View = ws.Feed.View(c.Query("q"))
	c.HTML(http.StatusOK, "quotes.html", p)
}

// LoadMore handles POST /quote/more.
func (h *PageHandler) LoadMore(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ws := h.workspaces.Get(sess.Key())

	_, err := ws.Feed.LoadNext(c.Request.Context(), sess)
	if err != nil && !errors.Is(err, service.ErrLoadInFlight) {
		h.renderFailure(c, sess, err)
		return
	}

	target := QuotesPath
	if term := c.PostForm("q"); term != "" {
		target += "?q=" + url.QueryEscape(term)
	}
	c.Redirect(http.StatusSeeOther, target)
}

// CreateForm handles GET /create-quote.
func (h *PageHandler) CreateForm(c *gin.Context) {
	ws := h.workspaces.Get(middleware.CurrentSession(c).Key())
	h.renderCreate(c, ws, http.StatusOK, ws.Submitter.TakeStatus())
}

// Create handles POST /create-quote. The action field picks between attaching
// a preview, removing the image and submitting.
func (h *PageHandler) Create(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ws := h.workspaces.Get(sess.Key())
	sub := ws.Submitter

	sub.SetText(c.PostForm("text"))

	if fh, err := c.FormFile("file"); err == nil {
		if err := h.attach(sub, fh); err != nil {
			h.renderCreate(c, ws, statusFor(err), domain.Failure(service.UserMessage(err)))
			return
		}
	}

	switch c.DefaultPostForm("action", "submit") {
	case "preview":
		h.renderCreate(c, ws, http.StatusOK, domain.Status{})
		return
	case "remove_file":
		sub.ClearFile()
		h.renderCreate(c, ws, http.StatusOK, domain.Status{})
		return
	}

	_, err := ws.Submit(c.Request.Context(), sess)
	switch {
	case err == nil:
		h.renderCreate(c, ws, http.StatusOK, sub.TakeStatus())
	case isSessionEnd(err):
		h.renderFailure(c, sess, err)
	case errors.Is(err, service.ErrSubmissionInFlight):
		h.renderCreate(c, ws, statusFor(err), domain.Failure(service.UserMessage(err)))
	default:
		h.renderCreate(c, ws, statusFor(err), sub.TakeStatus())
	}
}

func (h *PageHandler) attach(sub *service.Submitter, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return &gateway.UploadError{Cause: gateway.UploadInvalid, Message: "Could not read the selected file", Err: err}
	}
	defer f.Close()

	file, err := media.Read(fh.Filename, f, h.cfg.MaxUploadBytes)
	if err != nil {
		msg := "Could not read the selected file"
		if errors.Is(err, media.ErrTooLarge) {
			msg = "The selected file is too large"
		}
		return &gateway.UploadError{Cause: gateway.UploadInvalid, Message: msg, Err: err}
	}
	return sub.SelectFile(file)
}

func (h *PageHandler) renderCreate(c *gin.Context, ws *service.Workspace, code int, status domain.Status) {
	p := h.newPage(c, "Create Quote")
	p.Draft = ws.Submitter.Draft()
	p.Busy = ws.Submitter.Busy()
	p.Status = status
	c.HTML(code, "create.html", p)
}

// renderFailure shows a workflow error. A rejected credential shows the message
// and sends the browser to the login page after the configured delay; a missing
// one redirects at once.
func (h *PageHandler) renderFailure(c *gin.Context, sess *session.Session, err error) {
	_ = c.Error(err)

	if errors.Is(err, session.ErrSessionMissing) {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	p := h.newPage(c, "Error")
	p.Status = domain.Failure(service.UserMessage(err))
	p.RequestID = logger.GetRequestID(c.Request.Context())
	if errors.Is(err, gateway.ErrInvalidSession) {
		h.workspaces.Drop(sess.Key())
		delay := int(math.Ceil(h.cfg.InvalidSessionDelay.Seconds()))
		p.RedirectURL = LoginPath
		p.RedirectAfter = delay
		c.Header("Refresh", fmt.Sprintf("%d; url=%s", delay, LoginPath))
	}
	c.HTML(statusFor(err), "error.html", p)
}

func isSessionEnd(err error) bool {
	return errors.Is(err, gateway.ErrInvalidSession) || errors.Is(err, session.ErrSessionMissing)
}

// statusFor maps a workflow error to the response code of the page showing it.
func statusFor(err error) int {
	var (
		verr *service.ValidationError
		aerr *gateway.AuthError
		uerr *gateway.UploadError
	)
	switch {
	case errors.Is(err, gateway.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrSubmissionInFlight), errors.Is(err, service.ErrLoadInFlight):
		return http.StatusConflict
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &aerr):
		return http.StatusUnauthorized
	case errors.As(err, &uerr) && uerr.Cause == gateway.UploadInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
