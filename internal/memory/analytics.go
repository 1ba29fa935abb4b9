package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chimeralabs/chimera/internal/models"
)

// OutcomeStats aggregates one outcome label inside PerformanceAnalytics.
type OutcomeStats struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	AvgReturn  float64 `json:"avg_return"`
}

// Analytics is the per-ticker, per-window performance view over labeled
// outcomes.
type Analytics struct {
	TotalDecisions   int                     `json:"total_decisions"`
	SuccessRate      float64                 `json:"success_rate"`
	AvgReturn        float64                 `json:"avg_return"`
	OutcomeBreakdown map[string]OutcomeStats `json:"outcome_breakdown"`
}

func windowStart(window string) time.Time {
	days := 30
	switch window {
	case "7d":
		days = 7
	case "90d":
		days = 90
	}
	return time.Now().AddDate(0, 0, -days)
}

// PerformanceAnalytics aggregates outcome counts and average return_pct over
// the window ("7d", "30d", "90d"; anything else means 30d). An empty ticker
// spans all tickers. Returns are parsed out of the stored metrics JSON here
// rather than in SQL.
func (s *System) PerformanceAnalytics(ctx context.Context, ticker, window string) (*Analytics, error) {
	query := `
SELECT outcome, COALESCE(performance_metrics, '{}')
FROM memory
WHERE outcome IS NOT NULL AND TRIM(outcome) != ''
AND created_at >= ?
`
	args := []any{windowStart(window).UTC().Format(time.RFC3339)}
	if ticker != "" {
		query += " AND ticker = ?"
		args = append(args, ticker)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analytics: %w", err)
	}
	defer rows.Close()

	type bucket struct {
		count       int
		returnSum   float64
		returnCount int
	}
	buckets := make(map[string]*bucket)

	for rows.Next() {
		var outcome, metricsJSON string
		if err := rows.Scan(&outcome, &metricsJSON); err != nil {
			return nil, err
		}
		b := buckets[outcome]
		if b == nil {
			b = &bucket{}
			buckets[outcome] = b
		}
		b.count++

		var metrics map[string]float64
		if err := json.Unmarshal([]byte(metricsJSON), &metrics); err == nil {
			if ret, ok := metrics["return_pct"]; ok {
				b.returnSum += ret
				b.returnCount++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	analytics := &Analytics{OutcomeBreakdown: make(map[string]OutcomeStats, len(buckets))}
	var totalReturn float64
	var totalReturnWeight int

	for outcome, b := range buckets {
		analytics.TotalDecisions += b.count
		avg := 0.0
		if b.returnCount > 0 {
			avg = b.returnSum / float64(b.returnCount)
		}
		analytics.OutcomeBreakdown[outcome] = OutcomeStats{Count: b.count, AvgReturn: avg}

		if outcome == models.OutcomeSuccess || outcome == models.OutcomeFailure {
			totalReturn += avg * float64(b.count)
			totalReturnWeight += b.count
		}
	}

	if analytics.TotalDecisions > 0 {
		if b, ok := buckets[models.OutcomeSuccess]; ok {
			analytics.SuccessRate = float64(b.count) / float64(analytics.TotalDecisions)
		}
		if totalReturnWeight > 0 {
			analytics.AvgReturn = totalReturn / float64(totalReturnWeight)
		}
		for outcome, stats := range analytics.OutcomeBreakdown {
			stats.Percentage = float64(stats.Count) / float64(analytics.TotalDecisions)
			analytics.OutcomeBreakdown[outcome] = stats
		}
	}

	return analytics, nil
}
