package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shoplist/adminapi/internal/model"
)

// UsageStore is what the UsageRecorder needs from the config store.
type UsageStore interface {
	InsertUsageRecord(ctx context.Context, rec *model.UsageRecord) error
}

// UsageRecorder appends usage records on a best-effort basis. Failures are
// logged and reported to the failure hook, never returned.
type UsageRecorder struct {
	store     UsageStore
	logger    *slog.Logger
	timeout   time.Duration
	onFailure func()
}

// NewUsageRecorder returns a recorder writing to store. onFailure may be
// nil.
func NewUsageRecorder(store UsageStore, logger *slog.Logger, onFailure func()) *UsageRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageRecorder{
		store:     store,
		logger:    logger,
		timeout:   5 * time.Second,
		onFailure: onFailure,
	}
}

// Record writes rec. It detaches from ctx's cancellation, since the request
// is usually finished by the time Record runs, but keeps its values.
func (u *UsageRecorder) Record(ctx context.Context, rec model.UsageRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
	defer cancel()

	if err := u.store.InsertUsageRecord(ctx, &rec); err != nil {
		u.logger.Error("failed to record api key usage",
			"error", err,
			"api_key_id", rec.APIKeyID,
			"endpoint_id", rec.EndpointID,
			"status", rec.ResponseStatus,
		)
		if u.onFailure != nil {
			u.onFailure()
		}
	}
}
