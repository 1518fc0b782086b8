package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"refundmerge/internal"
	"refundmerge/internal/config"
	"refundmerge/internal/storage"
	"refundmerge/internal/util"
)

// InputFile is one uploaded export: its original name and raw bytes.
type InputFile struct {
	Name    string
	Content []byte
}

type FileSummary struct {
	Name    string `json:"name"`
	Source  string `json:"source,omitempty"`
	Matched bool   `json:"matched"`
	Records int    `json:"records"`
}

// FinalTable is the merged batch in upload order.
type FinalTable struct {
	Records []internal.RefundRecord
	Files   []FileSummary
}

func (t FinalTable) Len() int { return len(t.Records) }

// Counts tallies records per platform label.
func (t FinalTable) Counts() map[string]int {
	out := map[string]int{}
	for _, rec := range t.Records {
		out[rec.Platform]++
	}
	return out
}

// Runner merges a batch of exports through the source registry.
type Runner struct {
	sources *Registry
	logger  *zap.Logger
}

func NewRunner(sources *Registry, logger *zap.Logger) *Runner {
	if sources == nil {
		sources = DefaultSources()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{sources: sources, logger: logger}
}

func (r *Runner) Sources() *Registry { return r.sources }

// Run processes files in order. Files that match no source are skipped
// without being read; the first unreadable matched file aborts the batch.
func (r *Runner) Run(files []InputFile) (FinalTable, error) {
	result := FinalTable{Records: []internal.RefundRecord{}}
	for _, file := range files {
		summary := FileSummary{Name: file.Name}
		src, ok := r.sources.Match(file.Name)
		if !ok {
			r.logger.Debug("skip unrecognized file", zap.String("file", file.Name))
			result.Files = append(result.Files, summary)
			continue
		}
		summary.Source = src.Name
		summary.Matched = true

		wb, err := LoadWorkbook(file.Name, file.Content)
		if err != nil {
			r.logger.Error("load failed", zap.String("file", file.Name), zap.String("source", src.Name), zap.Error(err))
			return FinalTable{}, err
		}
		records := src.Extract(file.Name, wb)
		summary.Records = len(records)
		result.Records = append(result.Records, records...)
		result.Files = append(result.Files, summary)

		r.logger.Info("file merged",
			zap.String("file", file.Name),
			zap.String("source", src.Name),
			zap.Strings("sheets", wb.SheetNames()),
			zap.Int("records", len(records)),
		)
	}
	return result, nil
}

// ProcessingService runs stored refund emails through the runner.
type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	runner *Runner
	logger *zap.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, runner *Runner, logger *zap.Logger) *ProcessingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = NewRunner(nil, logger)
	}
	return &ProcessingService{db: db, cfg: cfg, runner: runner, logger: logger}
}

type ProcessResult struct {
	EmailID    int
	Status     string
	Records    int
	OutputPath string
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(email)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus(internal.EmailStatusFetched, limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	processedRecords := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(email)
		if err != nil {
			return processedEmails, processedRecords, err
		}
		processedEmails++
		processedRecords += res.Records
	}
	return processedEmails, processedRecords, nil
}

// ProcessEmail merges the attachments of one email as a single batch, in
// attachment order, and exports the result next to the other mail outputs.
func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (ProcessResult, error) {
	start := time.Now()
	trace := uuid.NewString()
	log := s.logger.With(zap.String("traceId", trace), zap.Int("emailId", email.ID))

	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}
	files, err := AttachmentsFromEmailRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}

	run := internal.RunRow{TraceID: trace, EmailID: &email.ID, Files: names, Counts: map[string]int{}}
	finish := func(status string, res ProcessResult) (ProcessResult, error) {
		if err := s.db.UpdateEmailStatus(email.ID, status); err != nil {
			return ProcessResult{}, err
		}
		run.DurationMs = time.Since(start).Milliseconds()
		if err := s.db.InsertRun(run); err != nil {
			return ProcessResult{}, err
		}
		res.EmailID = email.ID
		res.Status = status
		log.Info("email processed", zap.String("status", status), zap.Int("records", res.Records))
		return res, nil
	}

	if !HasRefundExports(s.runner.Sources(), names) {
		return finish(internal.EmailStatusSkipped, ProcessResult{})
	}

	merged, err := s.runner.Run(files)
	if err != nil {
		msg := err.Error()
		run.Error = &msg
		if _, ferr := finish(internal.EmailStatusFailed, ProcessResult{}); ferr != nil {
			log.Error("record failed run", zap.Error(ferr))
		}
		return ProcessResult{}, fmt.Errorf("email %d: %w", email.ID, err)
	}

	run.Counts = merged.Counts()
	run.Records = merged.Len()
	if err := s.db.ReplaceRefundRecords(email.ID, merged.Records); err != nil {
		return ProcessResult{}, err
	}
	if merged.Len() == 0 {
		return finish(internal.EmailStatusSkipped, ProcessResult{})
	}

	outputPath := filepath.Join(s.cfg.MailOutputDir(), fmt.Sprintf("%d_%s_%s", email.ID, util.SafeFileName(email.MessageID), s.outputFilename()))
	if err := ExportRecordsToXLSX(merged.Records, outputPath); err != nil {
		return ProcessResult{}, err
	}
	run.OutputPath = &outputPath
	return finish(internal.EmailStatusExported, ProcessResult{Records: merged.Len(), OutputPath: outputPath})
}

// ExportEmail rewrites the stored records of an email to outputPath.
func (s *ProcessingService) ExportEmail(emailID int, outputPath string) (int, error) {
	records, err := s.db.GetRefundRecords(emailID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := ExportRecordsToXLSX(records, outputPath); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *ProcessingService) outputFilename() string {
	if name := strings.TrimSpace(s.cfg.OutputFilename); name != "" {
		return name
	}
	return OutputFilename
}

// AttachmentsFromEmailRaw returns the attachments of a MIME message in the
// order they appear. Unnamed parts get a placeholder name.
func AttachmentsFromEmailRaw(raw []byte) ([]InputFile, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	out := make([]InputFile, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = "attachment"
		}
		out = append(out, InputFile{Name: name, Content: att.Content})
	}
	return out, nil
}
