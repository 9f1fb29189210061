package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/japaniel/relex/pkg/annotate"
	"github.com/japaniel/relex/pkg/assemble"
	"github.com/japaniel/relex/pkg/config"
	"github.com/japaniel/relex/pkg/db"
	"github.com/japaniel/relex/pkg/document"
	"github.com/japaniel/relex/pkg/pipeline"
)

type extractOptions struct {
	text        string
	metricsAddr string
	progress    bool
}

func (a *app) extractCmd() *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract [url | file | -]...",
		Short: "Extract relation triples from documents",
		Long: `Extract reads each input (an http(s) URL, a local file or - for stdin),
splits it into sentences and writes the triples found.

Local .conllu files are read as already annotated sentences. Other languages
than ja need an annotation service (--annotator).`,
		Example: `  relex extract --language ja notes.txt
  relex extract --annotator http://localhost:8080/annotate https://example.com/article
  relex extract --db relex.db --format none corpus.conllu`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.text == "" {
				return errors.New("no input: pass files, URLs, - or --text")
			}
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			return a.runExtract(cmd, cfg, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.text, "text", "", "Extract from this text instead of inputs")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	f.BoolVar(&opts.progress, "progress", false, "Show a progress bar on stderr")

	f.StringP(config.KeyLanguage, "l", "en", "Language (en, de, fr, es, ja)")
	f.String(config.KeyRules, "", "Rule table variant (default, greedy, semigreedy, samesentence, ja)")
	f.Bool(config.KeyExtended, false, "Append the extended rule set")
	f.String(config.KeyRulesFile, "", "Load rules from a YAML file")
	f.String(config.KeyMarker, "", "Noun-phrase marker (default NP_)")
	f.Int(config.KeyWidth, 0, "Short-relation walk depth (default from language)")
	f.StringSlice(config.KeyDirectLabels, nil, "Keep only these direct relation labels")
	f.String(config.KeyGazetteer, "", "JSON entity list for span widening")
	f.String(config.KeyAnnotatorEndpoint, "", "Annotation service URL")
	f.String(config.KeyAnnotatorModel, "", "Model name passed to the annotation service")
	f.Duration(config.KeyAnnotatorTimeout, 10*time.Second, "Per-sentence annotation timeout")
	f.Int(config.KeyWorkers, 4, "Concurrent sentence workers")
	f.Int(config.KeyBatchSize, 50, "Sentences per database transaction")
	f.String(config.KeyDB, "", "SQLite database to store triples in")
	f.Bool(config.KeyResume, true, "Resume after the last stored sentence of a known source")
	f.String(config.KeyFormat, "tsv", "Output format (tsv, jsonl, none)")
	f.StringP(config.KeyOutput, "o", "", "Output file (default stdout)")

	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, cfg *config.Config, args []string, opts extractOptions) error {
	ctx := cmd.Context()
	logger := a.logger

	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(reg)
	if opts.metricsAddr != "" {
		stop := serveMetrics(opts.metricsAddr, reg, logger)
		defer stop()
	}

	x, err := buildExtractor(cfg, logger, metrics)
	if err != nil {
		return err
	}
	p := pipeline.New(x)
	p.Workers = cfg.Pipeline.Workers
	p.Logger = logger

	var w assemble.Writer
	if !strings.EqualFold(cfg.Output.Format, config.FormatNone) {
		dst := cmd.OutOrStdout()
		if cfg.Output.Path != "" {
			file, err := os.Create(cfg.Output.Path)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer file.Close()
			dst = file
		}
		if w, err = assemble.NewWriter(dst, cfg.Output.Format); err != nil {
			return err
		}
		defer w.Flush()
	}

	var conn *sql.DB
	if cfg.Store.Path != "" {
		if conn, err = db.Open(cfg.Store.Path); err != nil {
			return err
		}
		defer conn.Close()
		logger.Debug("Database initialized", slog.String("path", cfg.Store.Path))
	}

	rules := cfg.Extract.Rules
	if cfg.Extract.RulesFile != "" {
		rules = cfg.Extract.RulesFile
	} else if rules == "" {
		rules = x.Language.Profile.Rules
	}

	inputs := args
	if opts.text != "" {
		inputs = []string{""}
	}
	fetcher := document.NewFetcher()
	for _, in := range inputs {
		var doc *document.Document
		var items []pipeline.Item
		if in == "" {
			doc = &document.Document{Kind: "inline_text", Title: "inline", Text: opts.text}
			items = pipeline.Texts(document.SplitSentences(opts.text))
		} else if doc, items, err = loadInput(ctx, fetcher, in, cmd.InOrStdin()); err != nil {
			return err
		}
		logger.Info("Analyzed document", slog.String("input", doc.Title), slog.Int("sentences", len(items)))

		var bar *uiprogress.Bar
		var progress *uiprogress.Progress
		if opts.progress && len(items) > 0 {
			progress = uiprogress.New()
			progress.SetOut(cmd.ErrOrStderr())
			progress.Start()
			bar = progress.AddBar(len(items)).AppendCompleted().PrependElapsed()
		}
		emit := func(r pipeline.Result) error {
			if bar != nil {
				bar.Incr()
			}
			if w != nil {
				return w.Write(r.Triples)
			}
			return nil
		}

		var sum pipeline.Summary
		if conn != nil {
			sum, err = ingestDocument(ctx, conn, cfg, p, doc, items, rules, emit, logger)
		} else {
			sum, err = p.Run(ctx, items, emit)
		}
		if progress != nil {
			progress.Stop()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", doc.Title, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Processing complete for %s: %d sentences, %d skipped, %d triples.\n",
			doc.Title, sum.Sentences, sum.Skipped, sum.Triples)
	}
	return nil
}

func ingestDocument(ctx context.Context, conn *sql.DB, cfg *config.Config, p *pipeline.Pipeline, doc *document.Document,
	items []pipeline.Item, rules string, emit func(pipeline.Result) error, logger *slog.Logger) (pipeline.Summary, error) {
	sourceID, err := db.CreateOrGetSource(conn, db.Source{
		SourceType: doc.Kind,
		Title:      doc.Title,
		Author:     doc.Byline,
		Website:    doc.SiteName,
		URL:        doc.URL,
		Language:   p.Extractor.Language.Name,
	})
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("failed to persist source: %w", err)
	}
	if !cfg.Store.Resume {
		if err := db.ResetSourceProgress(conn, sourceID); err != nil {
			return pipeline.Summary{}, err
		}
	}

	ig := pipeline.NewIngester(conn, p)
	ig.BatchSize = cfg.Pipeline.BatchSize
	if cfg.Pipeline.FlushInterval > 0 {
		ig.FlushInterval = cfg.Pipeline.FlushInterval
	}
	ig.Logger = logger
	ig.Emit = emit
	ig.Rules = rules
	sum, err := ig.Ingest(ctx, sourceID, items)
	if sum.RunID != "" {
		logger.Info("Run finished", slog.Int64("source", sourceID), slog.String("run", sum.RunID))
	}
	return sum, err
}

// loadInput reads one extract argument into a document and its sentences.
func loadInput(ctx context.Context, fetcher *document.Fetcher, in string, stdin io.Reader) (*document.Document, []pipeline.Item, error) {
	var doc *document.Document
	switch {
	case in == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		doc = &document.Document{Kind: "stdin", Title: "stdin", Text: string(data)}
	case strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://"):
		var err error
		if doc, err = fetcher.Fetch(ctx, in); err != nil {
			return nil, nil, err
		}
	case strings.EqualFold(filepath.Ext(in), ".conllu"):
		f, err := os.Open(in)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		sentences, err := annotate.ReadCoNLLU(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", in, err)
		}
		return &document.Document{Kind: "conllu", Title: filepath.Base(in), URL: in}, pipeline.Annotated(sentences), nil
	default:
		var err error
		if doc, err = document.ReadFile(in); err != nil {
			return nil, nil, err
		}
	}
	return doc, pipeline.Texts(document.SplitSentences(doc.Text)), nil
}

// serveMetrics exposes reg on addr until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("Serving metrics", slog.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
