package data

import (
	"context"
	"time"

	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// ProviderFailure is the GORM model for the provider_failures table.
type ProviderFailure struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	Provider  string    `gorm:"column:provider;type:varchar(64);not null;index"`
	Model     string    `gorm:"column:model;type:varchar(128);not null"`
	Kind      string    `gorm:"column:kind;type:varchar(32);not null;index"`
	Severity  string    `gorm:"column:severity;type:varchar(16);not null"`
	RequestID string    `gorm:"column:request_id;type:varchar(64);not null"`
	Message   string    `gorm:"column:message;type:text"`
	FailedAt  time.Time `gorm:"column:failed_at;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (ProviderFailure) TableName() string {
	return "provider_failures"
}

// FailureAuditor persists classified failures asynchronously through a
// buffered channel; a full buffer drops the event rather than blocking the
// request path. A nil DB degrades to log-only.
type FailureAuditor struct {
	db      *gorm.DB
	logChan chan *ProviderFailure
	logger  *log.Helper
}

// NewFailureAuditor creates the auditor and starts its writer goroutine.
func NewFailureAuditor(db *gorm.DB, logger log.Logger) *FailureAuditor {
	a := &FailureAuditor{
		db:      db,
		logChan: make(chan *ProviderFailure, 1000),
		logger:  log.NewHelper(logger),
	}

	if db != nil {
		go a.start()
	}

	return a
}

// start processes failure events from the channel.
func (a *FailureAuditor) start() {
	for event := range a.logChan {
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(event).Error; err != nil {
			a.logger.Errorw("msg", "failed to write failure audit record",
				"provider", event.Provider,
				"kind", event.Kind,
				"error", err)
		}
	}
}

// RecordFailure queues one classified failure for persistence (non-blocking).
func (a *FailureAuditor) RecordFailure(rec *model.ErrorRecord) {
	if a.db == nil {
		a.logger.Debugw("msg", "failure audit (log-only)",
			"provider", rec.Provider,
			"model", rec.Model,
			"kind", string(rec.Kind))
		return
	}

	event := &ProviderFailure{
		Provider:  rec.Provider,
		Model:     rec.Model,
		Kind:      string(rec.Kind),
		Severity:  string(rec.Severity),
		RequestID: rec.RequestID,
		Message:   rec.Message,
		FailedAt:  rec.Time,
	}

	select {
	case a.logChan <- event:
	default:
		a.logger.Warnw("msg", "failure audit channel full, dropping event",
			"provider", rec.Provider,
			"kind", string(rec.Kind))
	}
}

// PurgeOlderThan deletes audit records failed before the cutoff. Called by
// the daily retention cron.
func (a *FailureAuditor) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if a.db == nil {
		return 0, nil
	}

	result := a.db.WithContext(ctx).
		Where("failed_at < ?", cutoff).
		Delete(&ProviderFailure{})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		a.logger.Infow("msg", "purged old failure audit records",
			"cutoff", cutoff.UTC().Format(time.RFC3339),
			"deleted", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
