// Package memory indexes finalized deliberations and retrieves lexically
// similar precedents to augment new ones.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
)

// Retrieval defaults.
const (
	DefaultLimit         = 10
	DefaultMinSimilarity = 0.3
)

// System is the sqlite-backed memory index plus the insight-synthesis persona.
type System struct {
	db      *sql.DB
	svc     persona.Service
	analyst persona.Persona
}

// Open opens (creating if needed) the memory database at dbPath.
func Open(dbPath string, svc persona.Service) (*System, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &System{db: db, svc: svc, analyst: persona.MustLoad(persona.MemoryAnalyst)}, nil
}

func (s *System) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS memory (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    memo_id TEXT UNIQUE,
    ticker TEXT,
    investment_thesis TEXT,
    risk_assessment TEXT,
    decision TEXT,
    outcome TEXT,
    outcome_date TEXT,
    performance_metrics TEXT,
    tags TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memory_ticker ON memory(ticker);
CREATE INDEX IF NOT EXISTS idx_memory_outcome ON memory(outcome);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init memory schema: %w", err)
	}
	return nil
}

// Store writes a record for a finalized memo. Re-storing the same memo_id
// replaces the previous row.
func (s *System) Store(ctx context.Context, rec models.SimilarityRecord) error {
	if strings.TrimSpace(rec.MemoID) == "" {
		return fmt.Errorf("memo id is required")
	}
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO memory (memo_id, ticker, investment_thesis, risk_assessment, decision,
    outcome, outcome_date, performance_metrics, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(memo_id) DO UPDATE SET
    ticker = excluded.ticker,
    investment_thesis = excluded.investment_thesis,
    risk_assessment = excluded.risk_assessment,
    decision = excluded.decision,
    updated_at = CURRENT_TIMESTAMP
`, rec.MemoID, rec.Ticker, rec.InvestmentThesis, rec.RiskAssessment, rec.Decision,
		rec.Outcome, rec.OutcomeDate, string(metrics), string(tags),
		createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store memo %s: %w", rec.MemoID, err)
	}
	return nil
}

// AttachOutcome labels a stored record with its terminal outcome and
// performance metrics. The operation is idempotent by memo id.
func (s *System) AttachOutcome(ctx context.Context, memoID, outcome string, metrics map[string]float64) error {
	if outcome != models.OutcomeSuccess && outcome != models.OutcomeFailure {
		return fmt.Errorf("invalid outcome %q", outcome)
	}
	encoded, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE memory
SET outcome = ?, outcome_date = ?, performance_metrics = ?, updated_at = CURRENT_TIMESTAMP
WHERE memo_id = ?
`, outcome, time.Now().UTC().Format(time.RFC3339), string(encoded), memoID)
	if err != nil {
		return fmt.Errorf("attach outcome for %s: %w", memoID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("memo %s not found", memoID)
	}
	return nil
}

// FindSimilar retrieves historical records lexically similar to the candidate
// thesis+risk text. Records without a recorded outcome are excluded from the
// pool entirely. limit <= 0 and minSimilarity <= 0 select the defaults.
func (s *System) FindSimilar(ctx context.Context, thesis, riskAssessment string, limit int, minSimilarity float64) ([]models.SimilarityRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT memo_id, ticker, investment_thesis, risk_assessment, decision,
       COALESCE(outcome, ''), COALESCE(outcome_date, ''),
       COALESCE(performance_metrics, '{}'), COALESCE(tags, '[]'), created_at
FROM memory
WHERE outcome IS NOT NULL AND TRIM(outcome) != ''
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}
	defer rows.Close()

	var records []models.SimilarityRecord
	for rows.Next() {
		var rec models.SimilarityRecord
		var metricsJSON, tagsJSON, createdAt string
		if err := rows.Scan(&rec.MemoID, &rec.Ticker, &rec.InvestmentThesis, &rec.RiskAssessment,
			&rec.Decision, &rec.Outcome, &rec.OutcomeDate, &metricsJSON, &tagsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		_ = json.Unmarshal([]byte(metricsJSON), &rec.Metrics)
		_ = json.Unmarshal([]byte(tagsJSON), &rec.Tags)
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = ts
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	docs := make([]string, 0, len(records)+1)
	docs = append(docs, thesis+" "+riskAssessment)
	for _, rec := range records {
		docs = append(docs, rec.InvestmentThesis+" "+rec.RiskAssessment)
	}
	vectors := tfidfVectors(docs)

	similar := make([]models.SimilarityRecord, 0, len(records))
	for i := range records {
		score := cosine(vectors[0], vectors[i+1])
		if score >= minSimilarity {
			rec := records[i]
			rec.Similarity = score
			similar = append(similar, rec)
		}
	}
	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Similarity > similar[j].Similarity
	})
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}
