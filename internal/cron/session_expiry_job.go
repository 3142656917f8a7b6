package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/session"
)

const sessionExpiredMessage = "Your session has expired. Please sign in again."

type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

type signOuter interface {
	Logout(ctx context.Context) error
}

type notifier interface {
	Show(kind notifications.Kind, message string) notifications.Notification
}

// SessionExpiryJobParams groups the dependencies of a SessionExpiryJob.
type SessionExpiryJobParams struct {
	Tokens   tokenSource
	Auth     signOuter
	Notifier notifier
	Now      func() time.Time
}

// SessionExpiryJob signs the user out once the stored JWT has expired, so an
// idle shell does not keep presenting a dead session.
type SessionExpiryJob struct {
	tokens   tokenSource
	auth     signOuter
	notifier notifier
	now      func() time.Time
}

func NewSessionExpiryJob(params SessionExpiryJobParams) (*SessionExpiryJob, error) {
	if params.Tokens == nil {
		return nil, errors.New("token source required")
	}
	if params.Auth == nil {
		return nil, errors.New("auth service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &SessionExpiryJob{
		tokens:   params.Tokens,
		auth:     params.Auth,
		notifier: params.Notifier,
		now:      now,
	}, nil
}

func (j *SessionExpiryJob) Name() string { return "session_expiry" }

func (j *SessionExpiryJob) Run(ctx context.Context) error {
	token, err := j.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token == "" || !session.TokenExpired(token, j.now()) {
		return nil
	}
	if err := j.auth.Logout(ctx); err != nil {
		return fmt.Errorf("sign out expired session: %w", err)
	}
	if j.notifier != nil {
		j.notifier.Show(notifications.KindInfo, sessionExpiredMessage)
	}
	return nil
}
