// Package pipeline runs relation extraction over whole documents: sentences
// are annotated and extracted on a worker pool, re-ordered, and handed to a
// consumer or persisted through a batch writer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/japaniel/relex/pkg/annotate"
	"github.com/japaniel/relex/pkg/relation"
)

// Item is one sentence to process. When Annotated is set the annotator is
// not called.
type Item struct {
	Text      string
	Annotated *annotate.Sentence
}

// Texts wraps plain sentences as items.
func Texts(sentences []string) []Item {
	items := make([]Item, len(sentences))
	for i, s := range sentences {
		items[i] = Item{Text: s}
	}
	return items
}

// Annotated wraps pre-annotated sentences as items.
func Annotated(sentences []annotate.Sentence) []Item {
	items := make([]Item, len(sentences))
	for i := range sentences {
		s := &sentences[i]
		items[i] = Item{Text: s.Text, Annotated: s}
	}
	return items
}

// Result is the outcome for one sentence.
type Result struct {
	// Index is the position of the sentence in the submitted items.
	Index      int
	Text       string
	Linearized string
	Triples    []relation.Triple
	// Skipped is set when annotation failed; Err holds the cause.
	Skipped bool
	Err     error
}

// Summary counts what a run did.
type Summary struct {
	Sentences int
	Skipped   int
	Triples   int
	RunID     string
}

// Pipeline processes items concurrently and emits results in item order.
type Pipeline struct {
	Extractor *Extractor
	Workers   int
	// Logger nil means slog.Default().
	Logger *slog.Logger
	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) Pool
}

// New returns a pipeline with four workers.
func New(x *Extractor) *Pipeline {
	return &Pipeline{Extractor: x, Workers: 4}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run processes items and calls emit once per item, in order, from a single
// goroutine. Sentences whose annotation fails are emitted as skipped and the
// run continues. An emit error stops the run and is returned.
func (p *Pipeline) Run(parent context.Context, items []Item, emit func(Result) error) (Summary, error) {
	var sum Summary
	if len(items) == 0 {
		return sum, parent.Err()
	}

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp Pool
	if p.PoolFactory != nil {
		wp = p.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	resultCh := make(chan Result, workers*2)
	doneCh := make(chan error, 1)
	wp.Start(ctx)

	go func() {
		doneCh <- p.consume(resultCh, emit, &sum, cancel)
	}()

	var submitErr error
Loop:
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		idx, item := i, items[i]
		job := func(ctx context.Context) error {
			res, ok := p.process(ctx, idx, item)
			if !ok {
				return ctx.Err()
			}
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrPoolClosed) {
				break Loop
			}
			submitErr = fmt.Errorf("submit sentence %d: %w", idx, err)
			cancel()
			break Loop
		}
	}

	// no sends on resultCh once the workers are gone
	wp.Close()
	close(resultCh)
	consumeErr := <-doneCh

	switch {
	case submitErr != nil:
		return sum, submitErr
	case consumeErr != nil:
		return sum, consumeErr
	default:
		return sum, parent.Err()
	}
}

// process returns false when the run was canceled under the sentence, which
// must then not be reported as done.
func (p *Pipeline) process(ctx context.Context, idx int, item Item) (Result, bool) {
	x := p.Extractor
	var res Result
	if item.Annotated != nil {
		res = x.FromAnnotated(ctx, item.Annotated)
	} else {
		var err error
		res, err = x.Extract(ctx, item.Text)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, false
			}
			res.Skipped, res.Err = true, err
			p.logger().Warn("skipping sentence", "index", idx, "sentence", item.Text, "error", err)
		}
	}
	res.Index = idx
	return res, true
}

// consume re-orders results by index before emitting them.
func (p *Pipeline) consume(resultCh <-chan Result, emit func(Result) error, sum *Summary, cancel context.CancelFunc) error {
	buffer := make(map[int]Result)
	next := 0
	var emitErr error
	for res := range resultCh {
		if emitErr != nil {
			// drain so workers are never blocked
			continue
		}
		buffer[res.Index] = res
		for {
			r, ok := buffer[next]
			if !ok {
				break
			}
			delete(buffer, next)
			next++

			sum.Sentences++
			if r.Skipped {
				sum.Skipped++
			}
			sum.Triples += len(r.Triples)
			p.Extractor.Metrics.observeResult(r)

			if emit != nil {
				if err := emit(r); err != nil {
					emitErr = err
					cancel()
					break
				}
			}
		}
	}
	return emitErr
}
