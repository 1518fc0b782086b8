package listener

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"refundmerge/internal"
	"refundmerge/internal/config"
	"refundmerge/internal/storage"
)

type stubConnector struct {
	messages []internal.FetchedMailMessage
	calls    int
}

func (s *stubConnector) FetchMessages(_ context.Context, _ string, _ int) ([]internal.FetchedMailMessage, error) {
	s.calls++
	return s.messages, nil
}

func refundMail(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Order ID", "Seller SKU", "Return Reason"},
		{"5761 2345", "TT-1", "Wrong size"},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	xlsx := bytes.NewBuffer(nil)
	if _, err := f.WriteTo(xlsx); err != nil {
		t.Fatal(err)
	}

	part, err := enmime.Builder().
		From("Ops", "ops@example.com").
		To("Refunds", "refunds@example.com").
		Subject("tiktok refunds").
		Text([]byte("attached")).
		AddAttachment(xlsx.Bytes(), "application/octet-stream", "tiktok后台退款表.xlsx").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	buf := bytes.NewBuffer(nil)
	if err := part.Encode(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCycleFetchesAndExports(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := config.Config{
		RawMailDir:               filepath.Join(tmp, "raw"),
		OutputDir:                filepath.Join(tmp, "out"),
		MailListenerProvider:     "imap",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
	}
	conn := &stubConnector{messages: []internal.FetchedMailMessage{
		{Provider: "imap", MessageID: "<r1@x>", Subject: "tiktok refunds", From: "ops@example.com", Raw: refundMail(t)},
	}}
	svc := NewService(db, cfg, nil, nil).WithConnector(conn)

	res, err := svc.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched != 1 || res.Stored != 1 || res.Processed != 1 || res.Records != 1 {
		t.Fatalf("res=%+v", res)
	}

	row, err := db.GetEmailByProviderMessageID("imap", "<r1@x>")
	if err != nil || row == nil {
		t.Fatalf("row=%v err=%v", row, err)
	}
	if row.Status != internal.EmailStatusExported {
		t.Fatalf("status=%s", row.Status)
	}
	records, err := db.GetRefundRecords(row.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].OrderID != "57612345" || records[0].Platform != "Tiktok" {
		t.Fatalf("records=%+v", records)
	}
	if at, err := db.GetMetadata(lastCycleKey); err != nil || at == nil {
		t.Fatalf("lastCycleAt=%v err=%v", at, err)
	}

	res, err = svc.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 0 || conn.calls != 2 {
		t.Fatalf("second cycle res=%+v calls=%d", res, conn.calls)
	}
}

func TestNewConnectorUnknownProvider(t *testing.T) {
	if _, err := NewConnector(context.Background(), config.Config{}, "pop3"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
