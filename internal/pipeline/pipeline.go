// Package pipeline sequences the deliberation stages that turn market-data
// snapshots into a sealed investment memo.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chimeralabs/chimera/config"
	"github.com/chimeralabs/chimera/internal/memory"
	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
)

// Request carries one ticker's snapshots into a deliberation.
type Request struct {
	Ticker      string
	Fundamental *models.FundamentalSnapshot
	Technical   *models.TechnicalSnapshot
	Sentiment   *models.SentimentSnapshot
}

// Deliberator turns a request into a sealed memo.
type Deliberator interface {
	Deliberate(ctx context.Context, req Request) (*models.Memo, error)
}

// Memory is the slice of the memory system the pipeline consumes.
type Memory interface {
	Insights(ctx context.Context, current models.SimilarityRecord, mode memory.InsightMode) (string, error)
	Store(ctx context.Context, rec models.SimilarityRecord) error
}

// Engine is the production deliberator: it runs the full multi-stage pipeline
// and degrades to the five-persona basic pipeline when any advanced stage
// fails outright.
type Engine struct {
	advanced *Advanced
	basic    *Basic
}

// NewEngine wires the advanced and basic pipelines from config. mem may be nil
// when memory is disabled.
func NewEngine(svc persona.Service, mem Memory, cfg *config.Config) *Engine {
	return &Engine{
		advanced: NewAdvanced(svc, mem, cfg),
		basic:    NewBasic(svc),
	}
}

// Deliberate runs the advanced pipeline and falls back to the basic one on
// failure. Fallback memos are marked so downstream consumers can tell the two
// apart.
func (e *Engine) Deliberate(ctx context.Context, req Request) (*models.Memo, error) {
	memo, err := e.runAdvanced(ctx, req)
	if err == nil {
		return memo, nil
	}

	log.Printf("advanced pipeline failed for %s, falling back to basic: %v", req.Ticker, err)
	memo, err = e.basic.Deliberate(ctx, req)
	if err != nil {
		return nil, err
	}
	memo.Workflow = models.WorkflowFallback
	return memo, nil
}

// runAdvanced converts panics in the advanced stages into errors so the
// fallback path still runs.
func (e *Engine) runAdvanced(ctx context.Context, req Request) (memo *models.Memo, err error) {
	defer func() {
		if r := recover(); r != nil {
			memo = nil
			err = fmt.Errorf("advanced pipeline panic: %v", r)
		}
	}()
	return e.advanced.Deliberate(ctx, req)
}

// memoID builds the ticker-and-timestamp identifier recorded on every memo.
func memoID(ticker string) string {
	return fmt.Sprintf("%s_%s", ticker, time.Now().Format("20060102_150405"))
}
