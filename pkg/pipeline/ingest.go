package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/japaniel/relex/pkg/db"
)

// Ingester persists extraction results for a source, resuming after the
// last checkpointed sentence.
type Ingester struct {
	DB       *sql.DB
	Pipeline *Pipeline
	// BatchSize is the number of sentences per write transaction.
	BatchSize     int
	FlushInterval time.Duration
	// Logger nil means slog.Default().
	Logger *slog.Logger
	// OnProgress is called with the number of sentences done and the total.
	OnProgress func(current, total int)
	// Emit, when set, also receives every result in order.
	Emit func(Result) error
	// Rules names the rule table recorded with the run.
	Rules string
}

// NewIngester creates a new Ingester.
func NewIngester(conn *sql.DB, p *Pipeline) *Ingester {
	return &Ingester{
		DB:            conn,
		Pipeline:      p,
		BatchSize:     50,
		FlushInterval: 100 * time.Millisecond,
	}
}

func (ig *Ingester) logger() *slog.Logger {
	if ig.Logger != nil {
		return ig.Logger
	}
	return slog.Default()
}

// Ingest extracts items for sourceID and stores their triples. Each sentence's
// triples and its checkpoint are written in the same transaction, so an
// interrupted run resumes at the first sentence not yet stored.
func (ig *Ingester) Ingest(ctx context.Context, sourceID int64, items []Item) (Summary, error) {
	lastProcessed, err := db.GetSourceProgress(ig.DB, sourceID)
	if err != nil {
		ig.logger().Warn("failed to retrieve progress", "source", sourceID, "error", err)
		lastProcessed = -1
	}
	start := lastProcessed + 1
	total := len(items)
	if start >= total {
		return Summary{}, nil
	}
	if start > 0 {
		ig.logger().Info("resuming", "source", sourceID, "from", start, "total", total)
	}

	language := ""
	if x := ig.Pipeline.Extractor; x != nil && x.Language != nil {
		language = x.Language.Name
	}
	runID, err := db.StartRun(ig.DB, sourceID, language, ig.Rules)
	if err != nil {
		return Summary{}, err
	}

	bw := NewBatchWriter(ig.DB, ig.BatchSize, ig.FlushInterval)
	var mu sync.Mutex
	done := start
	bw.OnCommit = func(n int) {
		mu.Lock()
		done += n
		current := done
		mu.Unlock()
		if ig.OnProgress != nil {
			ig.OnProgress(current, total)
		}
	}

	emit := func(r Result) error {
		index := start + r.Index
		res := r
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			for _, t := range res.Triples {
				if err := db.UpsertTriple(tx, sourceID, runID, res.Text, t); err != nil {
					return fmt.Errorf("sentence %d: %w", index, err)
				}
			}
			if err := db.UpdateSourceProgress(tx, sourceID, index); err != nil {
				return fmt.Errorf("failed to save progress: %w", err)
			}
			return nil
		}); err != nil {
			return err
		}
		if ig.Emit != nil {
			return ig.Emit(res)
		}
		return nil
	}

	sum, runErr := ig.Pipeline.Run(ctx, items[start:], emit)
	if err := bw.Close(); err != nil && runErr == nil {
		runErr = err
	}
	sum.RunID = runID

	if err := db.FinishRun(ig.DB, runID, sum.Sentences, sum.Skipped, sum.Triples, runErr); err != nil {
		ig.logger().Warn("failed to finish run", "run", runID, "error", err)
	}
	return sum, runErr
}
