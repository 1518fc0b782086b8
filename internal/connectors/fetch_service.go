package connectors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"refundmerge/internal"
	"refundmerge/internal/storage"
)

// FetchService pulls messages from a connector and keeps them as raw .eml
// files keyed by content hash, with one emails row per provider message.
type FetchService struct {
	db         *storage.DB
	connector  MailConnector
	rawMailDir string
	logger     *zap.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *zap.Logger) *FetchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchService{db: db, connector: connector, rawMailDir: rawMailDir, logger: logger}
}

func (s *FetchService) FetchAndStore(ctx context.Context, mailbox string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchMessages(ctx, mailbox, max)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		row, err := s.Store(msg)
		if err != nil {
			return FetchResult{}, err
		}
		s.logger.Debug("message stored",
			zap.String("provider", msg.Provider),
			zap.String("messageId", msg.MessageID),
			zap.Int("emailId", row.ID),
			zap.String("status", row.Status),
		)
		stored++
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}

// Store writes one message. A message seen before keeps its processing status.
func (s *FetchService) Store(msg internal.FetchedMailMessage) (internal.EmailRow, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.EmailRow{}, err
	}
	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.EmailRow{}, err
		}
	}

	return s.db.UpsertEmail(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, internal.EmailStatusFetched)
}
