package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"refundmerge/internal/config"
	"refundmerge/internal/connectors"
	"refundmerge/internal/listener"
	"refundmerge/internal/logging"
	"refundmerge/internal/pipeline"
	"refundmerge/internal/storage"
	"refundmerge/internal/web"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer logger.Sync()

	sources, err := pipeline.OpenSources(cfg.SourcesPath)
	must(err)
	runner := pipeline.NewRunner(sources, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	switch cmd {
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		output := fs.String("output", filepath.Join(cfg.OutputDir, cfg.OutputFilename), "output xlsx path")
		preview := fs.Int("preview", cfg.PreviewRows, "rows to print")
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() == 0 {
			must(fmt.Errorf("at least one input file is required"))
		}

		files := make([]pipeline.InputFile, 0, fs.NArg())
		for _, path := range fs.Args() {
			content, err := os.ReadFile(path)
			must(err)
			files = append(files, pipeline.InputFile{Name: filepath.Base(path), Content: content})
		}
		merged, err := runner.Run(files)
		must(err)
		if merged.Len() == 0 {
			fmt.Println("no refund records extracted")
			return
		}
		pipeline.RenderPreview(os.Stdout, merged.Records, *preview)
		must(pipeline.ExportRecordsToXLSX(merged.Records, *output))
		fmt.Printf("run done records=%d output=%s\n", merged.Len(), *output)
	case "sources":
		for i, src := range runner.Sources().Sources() {
			fmt.Printf("%d. %-22s match=%-12s platform=%s sheets=%d\n", i+1, src.Name, src.Match, src.Platform, len(src.Sheets))
		}
	case "serve":
		srv := web.NewServer(cfg, runner, logger)
		must(srv.Run(ctx))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		conn, err := listener.NewConnector(ctx, cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, logger)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap, empty for all")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, cfg, runner, logger)
		if strings.TrimSpace(*messageID) != "" {
			if strings.TrimSpace(*provider) == "" {
				must(fmt.Errorf("--provider is required with --messageId"))
			}
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d status=%s records=%d output=%s\n", res.EmailID, res.Status, res.Records, res.OutputPath)
			return
		}
		emails, records, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d records=%d\n", emails, records)
	case "mail:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		emailID := fs.Int("emailId", 0, "internal email id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *emailID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--emailId and --out are required"))
		}
		db := openDB(cfg)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, cfg, runner, logger)
		n, err := processor.ExportEmail(*emailID, *out)
		must(err)
		if n == 0 {
			must(fmt.Errorf("no refund records for emailId=%d", *emailID))
		}
		fmt.Printf("exported %d records to %s\n", n, *out)
	case "mail:listen":
		db := openDB(cfg)
		defer db.Close()
		s := listener.NewService(db, cfg, runner, logger)
		must(s.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func openDB(cfg config.Config) *storage.DB {
	db, err := storage.Open(cfg.DBPath)
	must(err)
	return db
}

func usage() {
	fmt.Println("usage: refundmerge <command>")
	fmt.Println("commands:")
	fmt.Println("  run [--output=out.xlsx] [--preview=20] file...")
	fmt.Println("  sources")
	fmt.Println("  serve")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:export --emailId=1 --out=./out/result.xlsx")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
