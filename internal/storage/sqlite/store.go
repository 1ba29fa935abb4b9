// Package sqlite persists sealed memos. The memory index lives in its own
// database; this store is the durable record of every deliberation run.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chimeralabs/chimera/internal/models"
)

type Store struct {
	db *sql.DB
}

// MemoWithMeta is a stored memo plus its row metadata.
type MemoWithMeta struct {
	models.Memo
	RowID     int64
	UpdatedAt string
}

func Open(dbPath string) (*Store, error) {
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

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS memos (
    id TEXT PRIMARY KEY,
    ticker TEXT NOT NULL,
    created_at TEXT NOT NULL,
    fundamental_analysis TEXT NOT NULL DEFAULT '',
    technical_analysis TEXT NOT NULL DEFAULT '',
    sentiment_analysis TEXT NOT NULL DEFAULT '',
    chief_analysis TEXT NOT NULL DEFAULT '',
    risk_assessment TEXT NOT NULL DEFAULT '',
    research_debate TEXT,
    risk_debate TEXT,
    signal TEXT NOT NULL DEFAULT '{}',
    status TEXT NOT NULL,
    error_message TEXT,
    workflow TEXT NOT NULL,
    memory_stored INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memos_ticker_created ON memos(ticker, created_at);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveMemo persists a sealed memo. Re-saving the same id replaces the row.
func (s *Store) SaveMemo(ctx context.Context, memo *models.Memo) error {
	if memo == nil || strings.TrimSpace(memo.ID) == "" {
		return fmt.Errorf("memo id is required")
	}

	signalJSON, err := json.Marshal(memo.Signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	researchJSON, err := marshalNullable(memo.ResearchDebate)
	if err != nil {
		return fmt.Errorf("marshal research debate: %w", err)
	}
	riskJSON, err := marshalNullable(memo.RiskDebate)
	if err != nil {
		return fmt.Errorf("marshal risk debate: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO memos (id, ticker, created_at, fundamental_analysis, technical_analysis,
    sentiment_analysis, chief_analysis, risk_assessment, research_debate, risk_debate,
    signal, status, error_message, workflow, memory_stored)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    ticker=excluded.ticker,
    fundamental_analysis=excluded.fundamental_analysis,
    technical_analysis=excluded.technical_analysis,
    sentiment_analysis=excluded.sentiment_analysis,
    chief_analysis=excluded.chief_analysis,
    risk_assessment=excluded.risk_assessment,
    research_debate=excluded.research_debate,
    risk_debate=excluded.risk_debate,
    signal=excluded.signal,
    status=excluded.status,
    error_message=excluded.error_message,
    workflow=excluded.workflow,
    memory_stored=excluded.memory_stored,
    updated_at=CURRENT_TIMESTAMP
`, memo.ID, memo.Ticker, memo.CreatedAt.UTC().Format(time.RFC3339),
		memo.FundamentalAnalysis, memo.TechnicalAnalysis, memo.SentimentAnalysis,
		memo.ChiefAnalysis, memo.RiskAssessment, researchJSON, riskJSON,
		string(signalJSON), memo.Status, memo.ErrorMessage, memo.Workflow, memo.MemoryStored)
	if err != nil {
		return fmt.Errorf("insert memo: %w", err)
	}
	return nil
}

// GetMemo returns the memo by id, or nil when absent.
func (s *Store) GetMemo(ctx context.Context, id string) (*MemoWithMeta, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("memo id is required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT rowid, id, ticker, created_at, fundamental_analysis, technical_analysis,
       sentiment_analysis, chief_analysis, risk_assessment,
       COALESCE(research_debate, ''), COALESCE(risk_debate, ''),
       signal, status, COALESCE(error_message, ''), workflow, memory_stored, updated_at
FROM memos
WHERE id = ?
LIMIT 1
`, id)

	rec, err := scanMemo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get memo: %w", err)
	}
	return rec, nil
}

// ListMemos pages memos newest-first, optionally filtered by ticker. cursor 0
// starts from the newest row.
func (s *Store) ListMemos(ctx context.Context, ticker string, cursor int64, limit int) ([]MemoWithMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT rowid, id, ticker, created_at, fundamental_analysis, technical_analysis,
       sentiment_analysis, chief_analysis, risk_assessment,
       COALESCE(research_debate, ''), COALESCE(risk_debate, ''),
       signal, status, COALESCE(error_message, ''), workflow, memory_stored, updated_at
FROM memos
WHERE (? = '' OR ticker = ?)
AND (? = 0 OR rowid < ?)
ORDER BY rowid DESC
LIMIT ?
`, ticker, ticker, cursor, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}
	defer rows.Close()

	var memos []MemoWithMeta
	for rows.Next() {
		rec, err := scanMemo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memo: %w", err)
		}
		memos = append(memos, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memos rows: %w", err)
	}
	return memos, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemo(row rowScanner) (*MemoWithMeta, error) {
	var rec MemoWithMeta
	var createdAt, researchJSON, riskJSON, signalJSON string
	if err := row.Scan(&rec.RowID, &rec.ID, &rec.Ticker, &createdAt,
		&rec.FundamentalAnalysis, &rec.TechnicalAnalysis, &rec.SentimentAnalysis,
		&rec.ChiefAnalysis, &rec.RiskAssessment, &researchJSON, &riskJSON,
		&signalJSON, &rec.Status, &rec.ErrorMessage, &rec.Workflow,
		&rec.MemoryStored, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = ts
	}
	if researchJSON != "" {
		rec.ResearchDebate = &models.ResearchDebate{}
		if err := json.Unmarshal([]byte(researchJSON), rec.ResearchDebate); err != nil {
			return nil, fmt.Errorf("decode research debate: %w", err)
		}
	}
	if riskJSON != "" {
		rec.RiskDebate = &models.RiskDebate{}
		if err := json.Unmarshal([]byte(riskJSON), rec.RiskDebate); err != nil {
			return nil, fmt.Errorf("decode risk debate: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(signalJSON), &rec.Signal); err != nil {
		return nil, fmt.Errorf("decode signal: %w", err)
	}
	return &rec, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *models.ResearchDebate:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *models.RiskDebate:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
