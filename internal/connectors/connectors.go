package connectors

import (
	"context"

	"refundmerge/internal"
)

// MailConnector pulls raw messages that may carry refund exports.
type MailConnector interface {
	FetchMessages(ctx context.Context, mailbox string, max int) ([]internal.FetchedMailMessage, error)
}
