// Command scanweave runs the document corpus pipeline and serves its output.
//
// Usage:
//
//	scanweave run -manifest manifest.csv            # process a manifest
//	scanweave serve                                 # HTTP search API
//	scanweave serve -mcp                            # + MCP over stdio
//	scanweave frompdf -pdf scan.pdf -out pages/     # split a PDF into a manifest
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/corvushq/scanweave/manifest"
	"github.com/corvushq/scanweave/pipeline"
	"github.com/corvushq/scanweave/store"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(ctx, os.Args[2:])
	case "serve":
		err = cmdServe(ctx, os.Args[2:])
	case "frompdf":
		err = cmdFromPDF(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("scanweave: fatal", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: scanweave <run|serve|frompdf> [flags]")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to scanweave.yaml config file")
	manifestPath := fs.String("manifest", "", "path to manifest (.csv or .jsonl)")
	noLoad := fs.Bool("no-load", false, "skip loading results into the corpus database")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	logger := newLogger(*logLevel)
	if *manifestPath == "" {
		return fmt.Errorf("run: -manifest is required")
	}
	cfg, err := LoadAppConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.Pipeline.Logger = logger

	rows, err := manifest.Load(*manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	p, err := pipeline.New(ctx, cfg.Pipeline)
	if err != nil {
		return err
	}
	pages, seqs, err := p.Run(ctx, rows)
	if err != nil {
		return err
	}

	if *noLoad {
		return nil
	}
	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.LoadPages(ctx, pages); err != nil {
		return err
	}
	if err := st.LoadSequences(ctx, seqs); err != nil {
		return err
	}
	logger.Info("corpus loaded", "db", cfg.DBPath, "pages", len(pages), "sequences", len(seqs))
	return nil
}

func cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to scanweave.yaml config file")
	listen := fs.String("listen", "", "HTTP listen address (overrides config)")
	mcpStdio := fs.Bool("mcp", false, "serve MCP tools over stdio instead of HTTP")
	loadDir := fs.String("load", "", "load a JSONL export directory before serving")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	logger := newLogger(*logLevel)
	cfg, err := LoadAppConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *mcpStdio {
		cfg.MCP = true
	}

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if *loadDir != "" {
		if err := st.LoadJSONLDir(ctx, *loadDir); err != nil {
			return err
		}
	}

	if cfg.MCP {
		srv := mcp.NewServer(&mcp.Implementation{Name: "scanweave", Version: version}, nil)
		st.RegisterMCP(srv)
		logger.Info("serving MCP over stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	r := chi.NewRouter()
	st.RegisterHTTP(r)
	httpSrv := &http.Server{Addr: cfg.Listen, Handler: r}

	go func() {
		<-ctx.Done()
		httpSrv.Shutdown(context.Background())
	}()

	logger.Info("serving HTTP", "listen", cfg.Listen, "db", cfg.DBPath)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func cmdFromPDF(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("frompdf", flag.ExitOnError)
	pdfPath := fs.String("pdf", "", "path to the source PDF")
	outDir := fs.String("out", "", "directory for the per-page files")
	manifestOut := fs.String("manifest", "", "write the generated manifest here (default <out>/manifest.csv)")
	category := fs.String("category", "documents", "manifest category for generated rows")
	docType := fs.String("doc-type", "page", "manifest doc_type for generated rows")
	sequenceID := fs.String("sequence-id", "", "sequence id for generated rows (default PDF stem)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	logger := newLogger(*logLevel)
	if *pdfPath == "" || *outDir == "" {
		return fmt.Errorf("frompdf: -pdf and -out are required")
	}

	rows, err := manifest.FromPDF(ctx, *pdfPath, *outDir, manifest.PDFOptions{
		Category:   *category,
		DocType:    *docType,
		SequenceID: *sequenceID,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	out := *manifestOut
	if out == "" {
		out = *outDir + "/manifest.csv"
	}
	if err := manifest.WriteCSV(out, rows); err != nil {
		return err
	}
	logger.Info("manifest written", "path", out, "pages", len(rows))
	return nil
}
