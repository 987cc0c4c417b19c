package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-journal-go/internal/flex"
	"trade-journal-go/internal/models"
)

const (
	flexSource          = "ibkr-flex"
	defaultSyncInterval = time.Hour
)

// Syncer periodically downloads broker statements and stores them as
// pending import batches.
type Syncer struct {
	logger    *zap.Logger
	client    flex.ClientInterface
	service   *Service
	accountID uint
	interval  time.Duration
	now       func() time.Time
}

// NewSyncer creates a new statement syncer.
// A non-positive interval falls back to one hour.
func NewSyncer(logger *zap.Logger, client flex.ClientInterface, service *Service, accountID uint, interval time.Duration) *Syncer {
	logger = logger.Named("syncer")
	if interval <= 0 {
		logger.Warn("Invalid sync interval, using default",
			zap.Duration("interval", interval),
			zap.Duration("default", defaultSyncInterval),
		)
		interval = defaultSyncInterval
	}
	return &Syncer{
		logger:    logger,
		client:    client,
		service:   service,
		accountID: accountID,
		interval:  interval,
		now:       time.Now,
	}
}

// Run syncs once immediately and then on every tick until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting statement sync loop", zap.Duration("interval", s.interval))
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping statement syncer...")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	if _, err := s.SyncOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Statement sync failed", zap.Error(err))
	}
}

// SyncOnce downloads one statement and stores it. Reference codes change on
// every request, so a statement whose text is already stored is skipped and
// nil is returned.
func (s *Syncer) SyncOnce(ctx context.Context) (*models.ImportBatch, error) {
	stmt, err := s.client.FetchStatement(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch statement: %w", err)
	}

	existing, err := s.service.FindBatchByContent(ctx, stmt.Body)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Debug("Statement already stored",
			zap.String("reference_code", stmt.ReferenceCode),
			zap.Uint("batch_id", existing.ID),
		)
		return nil, nil
	}

	batch := &models.ImportBatch{
		AccountID:     s.accountID,
		Source:        flexSource,
		ReferenceCode: stmt.ReferenceCode,
		RawText:       stmt.Body,
		Status:        models.ImportBatchPending,
		FetchedAt:     s.now().UTC(),
	}
	if err := s.service.SaveBatch(ctx, batch); err != nil {
		return nil, err
	}

	s.logger.Info("Statement stored",
		zap.Uint("batch_id", batch.ID),
		zap.String("reference_code", batch.ReferenceCode),
	)
	return batch, nil
}
