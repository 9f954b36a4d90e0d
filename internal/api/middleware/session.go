package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/session"
)

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string
	Secure     bool
}

const sessionConfigKey = "session_config"

// Session binds the request to the session named by its cookie, issuing a new
// random key when the cookie is missing or malformed. The bound session is
// available through session.FromContext on the request context.
func Session(store session.Store, cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionConfigKey, cfg)

		key, err := c.Cookie(cfg.CookieName)
		if err != nil || uuid.Validate(key) != nil {
			BindSession(c, session.New(store, session.NewKey()))
		} else {
			bind(c, session.New(store, key))
		}
		c.Next()
	}
}

// BindSession makes sess the session of the rest of the request and points the
// cookie at its key. Handlers call it after login so a key chosen before
// authentication never carries a credential.
func BindSession(c *gin.Context, sess *session.Session) {
	cfg, _ := c.Get(sessionConfigKey)
	sc, _ := cfg.(SessionConfig)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.CookieName, sess.Key(), 0, "/", "", sc.Secure, true)
	bind(c, sess)
}

func bind(c *gin.Context, sess *session.Session) {
	ctx := session.WithCurrent(c.Request.Context(), sess)
	ctx = logger.SetSessionKey(ctx, sess.Key())
	c.Request = c.Request.WithContext(ctx)
}

// RequireLogin redirects to loginPath, without running the handler, when the
// session holds no credential.
func RequireLogin(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromContext(c.Request.Context())
		if ok {
			if cred, ok := sess.Read(c.Request.Context()); ok {
				c.Request = c.Request.WithContext(logger.SetUsername(c.Request.Context(), cred.Username))
				c.Next()
				return
			}
		}
		c.Redirect(http.StatusFound, loginPath)
		c.Abort()
	}
}

// CurrentSession returns the session bound by Session.
func CurrentSession(c *gin.Context) *session.Session {
	sess, _ := session.FromContext(c.Request.Context())
	return sess
}
