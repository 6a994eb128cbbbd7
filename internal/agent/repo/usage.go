package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS token_usage (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    user_query        TEXT NOT NULL,
    agent_name        TEXT NOT NULL,
    node              TEXT NOT NULL,
    model             TEXT NOT NULL,
    prompt_tokens     INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    total_tokens      INTEGER NOT NULL,
    cost_usd          REAL NOT NULL,
    created_at        TIMESTAMP NOT NULL
)`

// SQLiteUsageRecorder appends one row per model call to the token_usage
// table, sharing the showroom database handle.
type SQLiteUsageRecorder struct {
	db *sql.DB
}

func NewSQLiteUsageRecorder(ctx context.Context, db *sql.DB) (*SQLiteUsageRecorder, error) {
	if _, err := db.ExecContext(ctx, usageSchema); err != nil {
		return nil, fmt.Errorf("create token_usage table: %w", err)
	}
	return &SQLiteUsageRecorder{db: db}, nil
}

func (r *SQLiteUsageRecorder) Record(ctx context.Context, rec model.UsageRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO token_usage
		 (user_query, agent_name, node, model, prompt_tokens, completion_tokens, total_tokens, cost_usd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserQuery, rec.AgentName, rec.Node, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.CostUSD, rec.CreatedAt,
	)
	if err != nil {
		logx.Error().Err(err).Str("agent", rec.AgentName).Str("node", rec.Node).Msg("failed to record token usage")
		return fmt.Errorf("insert token usage: %w", err)
	}
	return nil
}

var _ model.UsageRecorder = (*SQLiteUsageRecorder)(nil)
