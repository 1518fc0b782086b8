package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"refundmerge/internal/config"
	"refundmerge/internal/connectors"
	gmailconnector "refundmerge/internal/connectors/gmail"
	imapconnector "refundmerge/internal/connectors/imap"
	"refundmerge/internal/pipeline"
	"refundmerge/internal/storage"
)

const lastCycleKey = "listener.lastCycleAt"

// Service polls a mailbox, stores new messages and merges their refund
// attachments on a fixed interval.
type Service struct {
	db     *storage.DB
	cfg    config.Config
	runner *pipeline.Runner
	logger *zap.Logger

	connector connectors.MailConnector
}

func NewService(db *storage.DB, cfg config.Config, runner *pipeline.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cfg: cfg, runner: runner, logger: logger}
}

// WithConnector replaces the provider connector built from config.
func (s *Service) WithConnector(c connectors.MailConnector) *Service {
	s.connector = c
	return s
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if err := s.RunCycle(ctx); err != nil {
			s.logger.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Records   int
}

func (s *Service) RunCycle(ctx context.Context) error {
	_, err := s.Cycle(ctx)
	return err
}

// Cycle runs one fetch and process pass.
func (s *Service) Cycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector := s.connector
	if mailConnector == nil {
		c, err := NewConnector(ctx, s.cfg, provider)
		if err != nil {
			return CycleResult{}, err
		}
		mailConnector = c
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.logger)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return CycleResult{}, err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.runner, s.logger)
	processedEmails, records, err := processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return CycleResult{}, err
	}

	if err := s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return CycleResult{}, err
	}

	res := CycleResult{Fetched: fetchResult.Fetched, Stored: fetchResult.Stored, Processed: processedEmails, Records: records}
	s.logger.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", res.Fetched),
		zap.Int("stored", res.Stored),
		zap.Int("processed", res.Processed),
		zap.Int("records", res.Records),
	)
	return res, nil
}

// NewConnector builds the mail connector for a provider name.
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
