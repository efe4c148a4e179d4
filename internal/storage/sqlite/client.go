package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/internal/storage/models"
	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
)

// Client stores evaluation history. The scoring pipeline works without it;
// a nil client simply records nothing.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		session_id TEXT,
		answer_text TEXT NOT NULL,
		semantic_similarity REAL NOT NULL,
		keyword_coverage REAL NOT NULL,
		combined_score REAL NOT NULL,
		band TEXT NOT NULL,
		is_correct INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluations_question ON evaluations(question_id);
	CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session_id);
	CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertEvaluation(record *models.EvaluationRecord) error {
	query := `
		INSERT INTO evaluations (id, question_id, session_id, answer_text,
			semantic_similarity, keyword_coverage, combined_score, band, is_correct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	isCorrect := 0
	if record.IsCorrect {
		isCorrect = 1
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.QuestionID,
		record.SessionID,
		record.AnswerText,
		record.SemanticSimilarity,
		record.KeywordCoverage,
		record.CombinedScore,
		record.Band,
		isCorrect,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}

	logger.Debug("Evaluation recorded",
		zap.String("id", record.ID),
		zap.String("question_id", record.QuestionID),
		zap.Float64("score", record.CombinedScore),
	)

	return nil
}

func (c *Client) GetRecentEvaluations(sessionID string, limit int) ([]models.EvaluationRecord, error) {
	query := `
		SELECT id, question_id, session_id, answer_text,
			semantic_similarity, keyword_coverage, combined_score, band, is_correct, created_at
		FROM evaluations
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var records []models.EvaluationRecord
	for rows.Next() {
		var r models.EvaluationRecord
		var isCorrect int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.QuestionID, &r.SessionID, &r.AnswerText,
			&r.SemanticSimilarity, &r.KeywordCoverage, &r.CombinedScore, &r.Band,
			&isCorrect, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.IsCorrect = isCorrect == 1
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) GetQuestionAggregates() ([]models.QuestionAggregate, error) {
	query := `
		SELECT question_id, COUNT(*), AVG(combined_score), SUM(is_correct), MAX(created_at)
		FROM evaluations
		GROUP BY question_id
		ORDER BY question_id
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []models.QuestionAggregate
	for rows.Next() {
		var a models.QuestionAggregate
		var lastEvaluated int64

		if err := rows.Scan(&a.QuestionID, &a.Evaluations, &a.AvgScore, &a.CorrectCount, &lastEvaluated); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.LastEvaluated = time.Unix(lastEvaluated, 0)
		aggregates = append(aggregates, a)
	}

	return aggregates, rows.Err()
}
