package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pcsync/internal/logging"
	"pcsync/internal/services"
	"pcsync/internal/tokenstore"
)

const stageName = "auth"

// Store persists the single credential.
type Store interface {
	Load(ctx context.Context) (tokenstore.Credential, error)
	Replace(ctx context.Context, cred tokenstore.Credential) error
}

// LoginClient exchanges account credentials for a bearer token.
type LoginClient interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Credentials is the account used for password login.
type Credentials struct {
	Username string
	Password string
}

// Option customises Authenticator construction.
type Option func(*Authenticator)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logging.NewComponentLogger(logger, "auth")
	}
}

// Authenticator yields a valid bearer token, refreshing it when needed.
type Authenticator struct {
	store    Store
	client   LoginClient
	validity time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// New builds an Authenticator. validity is how long a freshly issued token is
// trusted before the next run logs in again.
func New(store Store, client LoginClient, validity time.Duration, opts ...Option) *Authenticator {
	a := &Authenticator{
		store:    store,
		client:   client,
		validity: validity,
		now:      time.Now,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate returns the stored token when it is still valid, or logs in
// and persists a fresh one. Login failures are marked ErrAuthentication and
// missing account details ErrConfiguration.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	logger := logging.WithContext(services.WithStage(ctx, stageName), a.logger)
	now := a.now()

	if token, ok := a.cachedToken(ctx, logger, now); ok {
		return token, nil
	}

	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return "", services.Wrap(services.ErrConfiguration, stageName, "login",
			"username and password are required (set PC_USERNAME and PC_PASSWORD)", nil)
	}
	if a.client == nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "login", "login client not configured", nil)
	}

	logger.Info("requesting new token")
	token, err := a.client.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", services.Wrap(services.ErrAuthentication, stageName, "login", "pocket casts login failed", err)
	}

	cred := tokenstore.Credential{Token: token, ExpiresAt: now.Add(a.validity)}
	if a.store != nil {
		if err := a.store.Replace(ctx, cred); err != nil {
			logging.ErrorWithContext(logger, "token persistence failed", "token_persist_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions and free disk space"),
				logging.String(logging.FieldImpact, "next run will log in again"),
			)
			return token, nil
		}
	}
	logger.Info("token refreshed", logging.String("expires_at", cred.ExpiresAt.UTC().Format(time.RFC3339)))
	return token, nil
}

func (a *Authenticator) cachedToken(ctx context.Context, logger *slog.Logger, now time.Time) (string, bool) {
	if a.store == nil {
		return "", false
	}
	cred, err := a.store.Load(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "token store read failed", "token_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the token database in state_dir"),
			logging.String(logging.FieldImpact, "logging in with account credentials"),
		)
		return "", false
	}
	if !cred.Present() {
		logger.Info("no stored token")
		return "", false
	}
	if !cred.Valid(now) {
		logger.Info("stored token expired", logging.String("expired_at", cred.ExpiresAt.UTC().Format(time.RFC3339)))
		return "", false
	}
	logger.Info("reusing stored token", logging.String("expires_at", cred.ExpiresAt.UTC().Format(time.RFC3339)))
	return cred.Token, true
}
