package cart

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
)

// Outcome describes what a sync attempt did.
type Outcome string

const (
	OutcomeSynced           Outcome = "synced"
	OutcomeFailed           Outcome = "failed"
	OutcomeSkippedAnonymous Outcome = "skipped_anonymous"
	OutcomeSkippedNotReady  Outcome = "skipped_not_ready"
)

// SyncResult is returned for every mutation so callers can see whether the
// server copy was updated. Err is set only for OutcomeFailed.
type SyncResult struct {
	Outcome Outcome
	Err     error
}

func (r SyncResult) Skipped() bool {
	return r.Outcome == OutcomeSkippedAnonymous || r.Outcome == OutcomeSkippedNotReady
}

// Saver pushes a full cart to the server.
type Saver interface {
	SaveCart(ctx context.Context, lines []types.CartLine) error
}

// Gate reports whether startup reconciliation has finished.
type Gate interface {
	SyncAllowed() bool
}

// UserSource reports the signed-in user, if any.
type UserSource interface {
	User(ctx context.Context) (*types.User, error)
}

type SynchronizerParams struct {
	Saver   Saver
	Gate    Gate
	Users   UserSource
	Logger  *logger.Logger
	Metrics *metrics.ClientMetrics
}

// Synchronizer replaces the server cart with the local one for signed-in
// users once startup reconciliation is done. Failures never touch local state.
type Synchronizer struct {
	saver   Saver
	gate    Gate
	users   UserSource
	logg    *logger.Logger
	metrics *metrics.ClientMetrics
}

func NewSynchronizer(params SynchronizerParams) *Synchronizer {
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Synchronizer{
		saver:   params.Saver,
		gate:    params.Gate,
		users:   params.Users,
		logg:    logg,
		metrics: params.Metrics,
	}
}

func (s *Synchronizer) Sync(ctx context.Context, c Cart) SyncResult {
	ctx = s.logg.WithComponent(ctx, "cart_sync")

	if s.gate == nil || !s.gate.SyncAllowed() {
		return s.record(SyncResult{Outcome: OutcomeSkippedNotReady})
	}
	if s.users == nil {
		return s.record(SyncResult{Outcome: OutcomeSkippedAnonymous})
	}
	user, err := s.users.User(ctx)
	if err != nil {
		s.logg.WarnErr(ctx, "cart sync could not read session", err)
		return s.record(SyncResult{Outcome: OutcomeFailed, Err: err})
	}
	if user == nil {
		return s.record(SyncResult{Outcome: OutcomeSkippedAnonymous})
	}

	if err := s.saver.SaveCart(ctx, c.Lines()); err != nil {
		fields := map[string]any{"lines": c.Len(), "user_id": string(user.ID)}
		s.logg.WarnErr(s.logg.WithFields(ctx, fields), "cart sync failed", err)
		return s.record(SyncResult{Outcome: OutcomeFailed, Err: err})
	}
	return s.record(SyncResult{Outcome: OutcomeSynced})
}

func (s *Synchronizer) record(res SyncResult) SyncResult {
	s.metrics.CartSync(string(res.Outcome))
	return res
}
