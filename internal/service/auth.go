package service

import (
	"context"
	"strings"

	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/session"
)

// LoginInput is what the user types on the login form.
type LoginInput struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	OTP      string `json:"otp" form:"otp" validate:"required,alphanum,max=16"`
}

// AuthService logs users in and out of a session.
type AuthService struct {
	gateway Authenticator
	logger  *logger.Logger
}

// NewAuthService creates a new AuthService.
// Parameters:
//   - gateway: remote authenticator.
//   - log: logger instance; nil uses the default logger.
//
// Returns:
//   - *AuthService: initialized service.
func NewAuthService(gateway Authenticator, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &AuthService{
		gateway: gateway,
		logger:  log.WithField(logger.FieldComponent, "auth"),
	}
}

// Login authenticates and persists the credential in sess, replacing any
// previous one. Nothing is saved on failure.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, in LoginInput) (domain.Credential, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.OTP = strings.TrimSpace(in.OTP)
	if err := validateInput(in); err != nil {
		return domain.Credential{}, err
	}

	cred, err := s.gateway.Authenticate(ctx, in.Username, in.OTP)
	if err != nil {
		s.logger.WithError(err).WithField(logger.FieldUsername, in.Username).Warn("Login failed")
		return domain.Credential{}, err
	}
	if err := sess.Save(ctx, cred); err != nil {
		return domain.Credential{}, err
	}

	s.logger.WithFields(logger.Fields{
		logger.FieldUsername:   cred.Username,
		logger.FieldSessionKey: sess.Key(),
	}).Info("Logged in")
	return cred, nil
}

// Logout clears the credential held by sess.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) error {
	if err := sess.Clear(ctx); err != nil {
		return err
	}
	s.logger.WithField(logger.FieldSessionKey, sess.Key()).Info("Logged out")
	return nil
}

// Current returns the logged-in credential, if any.
func (s *AuthService) Current(ctx context.Context, sess *session.Session) (domain.Credential, bool) {
	return sess.Read(ctx)
}
