package internal

// RefundRecord is one normalized refund/return line of the merged report.
// PlatformSKU and Reason are nil when the source has no value for them.
type RefundRecord struct {
	OrderID              string
	PlatformSKU          *string
	Reason               *string
	Platform             string
	PlatformRefundReason string
	SourceFile           string
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

const (
	EmailStatusFetched  = "fetched"
	EmailStatusExported = "exported"
	EmailStatusSkipped  = "skipped"
	EmailStatusFailed   = "failed"
)

type RunRow struct {
	ID         int
	TraceID    string
	EmailID    *int
	Files      []string
	Counts     map[string]int
	Records    int
	OutputPath *string
	Error      *string
	DurationMs int64
	CreatedAt  string
}
