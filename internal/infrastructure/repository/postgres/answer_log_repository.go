package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

// AnswerLogRepository persists one row per answered question. It records
// shape and timing, not the answer text itself.
type AnswerLogRepository struct {
	db *sql.DB
}

func NewAnswerLogRepository(db *sql.DB) *AnswerLogRepository {
	return &AnswerLogRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AnswerLogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS answer_log (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	mode TEXT NOT NULL,
	answer_chars INTEGER NOT NULL,
	citation_count INTEGER NOT NULL,
	faithfulness DOUBLE PRECISION,
	answer_relevance DOUBLE PRECISION,
	context_precision DOUBLE PRECISION,
	duration_ms DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answer_log_mode ON answer_log(mode);
CREATE INDEX IF NOT EXISTS idx_answer_log_created_at ON answer_log(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AnswerLogRepository) Record(ctx context.Context, rec domain.AnswerRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO answer_log (
	id, question, mode, answer_chars, citation_count, faithfulness, answer_relevance, context_precision, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		rec.ID, rec.Question, string(rec.Mode), rec.AnswerChars, rec.CitationCount,
		nullableScore(rec.Scores, domain.MetricFaithfulness),
		nullableScore(rec.Scores, domain.MetricAnswerRelevance),
		nullableScore(rec.Scores, domain.MetricContextPrecision),
		rec.DurationMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer log: %w", err)
	}
	return nil
}

// RecentByMode supports operational inspection of answer quality over time.
func (r *AnswerLogRepository) RecentByMode(ctx context.Context, mode domain.Mode, limit int) ([]domain.AnswerRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, question, mode, answer_chars, citation_count, faithfulness, answer_relevance, context_precision, duration_ms, created_at
FROM answer_log
WHERE mode = $1
ORDER BY created_at DESC
LIMIT $2
`, string(mode), limit)
	if err != nil {
		return nil, fmt.Errorf("query answer log: %w", err)
	}
	defer rows.Close()

	var records []domain.AnswerRecord
	for rows.Next() {
		var rec domain.AnswerRecord
		var modeText string
		var faithfulness, answerRelevance, contextPrec sql.NullFloat64
		if err := rows.Scan(
			&rec.ID, &rec.Question, &modeText, &rec.AnswerChars, &rec.CitationCount,
			&faithfulness, &answerRelevance, &contextPrec, &rec.DurationMS, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan answer log row: %w", err)
		}
		rec.Mode = domain.Mode(modeText)
		rec.Scores = scoresFromNullable(faithfulness, answerRelevance, contextPrec)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer log rows: %w", err)
	}
	return records, nil
}

func nullableScore(scores domain.EvaluationScore, metric string) sql.NullFloat64 {
	if scores == nil {
		return sql.NullFloat64{}
	}
	value, ok := scores[metric]
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: value, Valid: true}
}

func scoresFromNullable(faithfulness, answerRelevance, contextPrecision sql.NullFloat64) domain.EvaluationScore {
	scores := domain.EvaluationScore{}
	if faithfulness.Valid {
		scores[domain.MetricFaithfulness] = faithfulness.Float64
	}
	if answerRelevance.Valid {
		scores[domain.MetricAnswerRelevance] = answerRelevance.Float64
	}
	if contextPrecision.Valid {
		scores[domain.MetricContextPrecision] = contextPrecision.Float64
	}
	if len(scores) == 0 {
		return nil
	}
	return scores
}
