package quota

import (
	"context"
	"log/slog"

	"podstudio/internal/logging"
	"podstudio/internal/services"
)

// usageStore is the slice of the relational store the ledger needs.
type usageStore interface {
	AddUsage(ctx context.Context, userID string, delta int64) error
	GetUsage(ctx context.Context, userID string) (int64, error)
}

// Ledger tracks per-user storage usage. Updates are telemetry, not a
// correctness constraint: a failed counter update is logged and swallowed so
// it never rolls back or fails the audio operation that triggered it.
//
// Only recorded-segment audio bytes are counted. Caption sidecars and
// reusable-asset bytes (counted once by the library) are excluded.
type Ledger struct {
	store  usageStore
	logger *slog.Logger
}

// NewLedger builds a ledger. A nil logger disables logging.
func NewLedger(store usageStore, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logging.NewComponentLogger(logger, "quota")}
}

// Credit adds bytes to the user's tracked usage, best-effort.
func (l *Ledger) Credit(ctx context.Context, userID string, bytes int64) {
	if l == nil || bytes <= 0 {
		return
	}
	if err := l.store.AddUsage(ctx, userID, bytes); err != nil {
		logging.WarnBestEffort(l.logger, "storage credit failed", "usage counter drifts low",
			logging.String(logging.FieldUser, userID),
			logging.Int64("bytes", bytes),
			logging.Error(err))
	}
}

// Debit subtracts bytes from the user's tracked usage, best-effort. The
// counter clamps at zero rather than going negative.
func (l *Ledger) Debit(ctx context.Context, userID string, bytes int64) {
	if l == nil || bytes <= 0 {
		return
	}
	if err := l.store.AddUsage(ctx, userID, -bytes); err != nil {
		logging.WarnBestEffort(l.logger, "storage debit failed", "usage counter drifts high",
			logging.String(logging.FieldUser, userID),
			logging.Int64("bytes", bytes),
			logging.Error(err))
	}
}

// Usage returns the tracked byte count for a user.
func (l *Ledger) Usage(ctx context.Context, userID string) (int64, error) {
	return l.store.GetUsage(ctx, userID)
}

// Policy predicts whether an incoming byte count would exceed a user's
// storage limit. Unlike the ledger, policy checks are enforced: they run
// before bytes land on disk.
type Policy struct {
	ledger     *Ledger
	limitBytes int64
}

// NewPolicy builds a policy over the ledger. A zero limit disables the check.
func NewPolicy(ledger *Ledger, limitBytes int64) *Policy {
	return &Policy{ledger: ledger, limitBytes: limitBytes}
}

// Allow returns nil when the user can store incomingBytes more, or an
// ErrQuotaExceeded-tagged error otherwise. Counter read failures fail open:
// quota is bookkeeping, and refusing uploads on a telemetry error would hurt
// more than a temporarily stale count.
func (p *Policy) Allow(ctx context.Context, userID string, incomingBytes int64) error {
	if p == nil || p.limitBytes <= 0 {
		return nil
	}
	used, err := p.ledger.Usage(ctx, userID)
	if err != nil {
		logging.WarnBestEffort(p.ledger.logger, "quota check failed open", "upload admitted without quota check",
			logging.String(logging.FieldUser, userID),
			logging.Error(err))
		return nil
	}
	if used+incomingBytes > p.limitBytes {
		return services.Wrap(services.ErrQuotaExceeded, "quota", "allow",
			"storage limit reached", nil)
	}
	return nil
}
