package tools

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/parsers"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/prompts"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"

	_ "modernc.org/sqlite"
)

const (
	ToolListTables     = "list_tables"
	ToolDescribeSchema = "describe_schema"
	ToolValidateQuery  = "validate_query"
	ToolRunQuery       = "run_query"
)

const sampleRowLimit = 3

var sqlVerbs = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER"}

var (
	rightJoinRe = regexp.MustCompile(`\bRIGHT\s+JOIN\b`)
	dropColRe   = regexp.MustCompile(`\bALTER\s+TABLE\b.*\bDROP\s+COLUMN\b`)
)

// SQLToolset owns the showroom database handle and exposes the four SQL
// tools the database agent drives. The toolset is constructed once per
// process and shared read-only across threads; a missing database file is an
// initialization error, never a per-query one.
//
// Tool methods return error strings rather than errors: their output is fed
// back to the model as conversational content so it can self-correct.
type SQLToolset struct {
	db      *sql.DB
	dialect string

	// checker, when bound, performs checklist-based query review;
	// without it validate_query falls back to a structural check.
	checker einomodel.BaseChatModel
}

// NewSQLToolset opens the database at cfg.Path and verifies connectivity.
// A nil checker disables model-backed query review.
func NewSQLToolset(ctx context.Context, cfg model.DatabaseConfig, checker einomodel.BaseChatModel) (*SQLToolset, error) {
	if cfg.Path != ":memory:" {
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, errx.WrapInit("showroom database", fmt.Errorf("database file %q: %w", cfg.Path, err))
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, errx.WrapInit("showroom database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errx.WrapInit("showroom database", err)
	}

	dialect := cfg.Dialect
	if dialect == "" {
		dialect = "sqlite"
	}

	return &SQLToolset{db: db, dialect: dialect, checker: checker}, nil
}

// NewSQLToolsetFromDB wraps an existing handle; used by tests and by callers
// that share the handle with the usage recorder.
func NewSQLToolsetFromDB(db *sql.DB, dialect string, checker einomodel.BaseChatModel) *SQLToolset {
	if dialect == "" {
		dialect = "sqlite"
	}
	return &SQLToolset{db: db, dialect: dialect, checker: checker}
}

// DB exposes the underlying handle for co-located stores (token usage).
func (s *SQLToolset) DB() *sql.DB {
	return s.db
}

func (s *SQLToolset) Dialect() string {
	return s.dialect
}

// SetChecker attaches the review model after construction. The toolset is
// opened before the chat models exist, so the checker arrives late.
func (s *SQLToolset) SetChecker(checker einomodel.BaseChatModel) {
	s.checker = checker
}

func (s *SQLToolset) Close() error {
	return s.db.Close()
}

// ListTables returns the comma-joined table names, or an error string.
func (s *SQLToolset) ListTables(ctx context.Context) string {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return fmt.Sprintf("Error listing tables: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Sprintf("Error listing tables: %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Sprintf("Error listing tables: %v", err)
	}
	return strings.Join(names, ", ")
}

// DescribeSchema returns the CREATE statement plus sample rows for each of
// the comma-separated table names.
func (s *SQLToolset) DescribeSchema(ctx context.Context, tableNames string) string {
	var parts []string
	for _, raw := range strings.Split(tableNames, ",") {
		table := strings.TrimSpace(raw)
		if table == "" {
			continue
		}

		var ddl sql.NullString
		err := s.db.QueryRowContext(ctx,
			`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&ddl)
		if err == sql.ErrNoRows {
			parts = append(parts, fmt.Sprintf("Error getting schema: table %q not found", table))
			continue
		}
		if err != nil {
			parts = append(parts, fmt.Sprintf("Error getting schema for %q: %v", table, err))
			continue
		}

		section := ddl.String
		if sample := s.sampleRows(ctx, table); sample != "" {
			section += "\n" + sample
		}
		parts = append(parts, section)
	}
	if len(parts) == 0 {
		return "Error getting schema: no table names provided"
	}
	return strings.Join(parts, "\n\n")
}

func (s *SQLToolset) sampleRows(ctx context.Context, table string) string {
	// Table names come from sqlite_master lookups above, but quote anyway.
	query := fmt.Sprintf(`SELECT * FROM %q LIMIT %d`, table, sampleRowLimit)
	header, rendered, err := s.queryRows(ctx, query)
	if err != nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "/*\n%d rows from %s table:\n", len(rendered), table)
	b.WriteString(strings.Join(header, "\t") + "\n")
	for _, row := range rendered {
		b.WriteString(strings.Join(row, "\t") + "\n")
	}
	b.WriteString("*/")
	return b.String()
}

// ValidateQuery returns the corrected-or-original query, or an error string.
// With a checker model bound it runs the checklist review; otherwise it
// applies the deterministic structural check. It never returns an error:
// malformed input yields a descriptive string for the model to act on.
func (s *SQLToolset) ValidateQuery(ctx context.Context, query string) string {
	if s.checker == nil {
		return validateStructurally(query, s.dialect)
	}

	resp, err := s.checker.Generate(ctx, []*schema.Message{
		schema.UserMessage(prompts.RenderQueryChecker(s.dialect, query)),
	})
	if err != nil {
		logx.Error().Err(err).Msg("query checker model failed; falling back to structural validation")
		return validateStructurally(query, s.dialect)
	}

	_, content := parsers.SplitThinking(resp.Content)
	content = strings.TrimSpace(content)

	// Prefer the first line that reads as SQL in case the model added prose.
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if hasSQLVerb(line) {
			return line
		}
	}
	if content != "" {
		return content
	}
	return validateStructurally(query, s.dialect)
}

// RunQuery executes the query and stringifies the result set. Database
// errors are converted to error strings so the model can rewrite and retry.
func (s *SQLToolset) RunQuery(ctx context.Context, query string) string {
	_, rendered, err := s.queryRows(ctx, query)
	if err != nil {
		return fmt.Sprintf("Error executing query: %v", err)
	}
	if len(rendered) == 0 {
		return ""
	}
	tuples := make([]string, 0, len(rendered))
	for _, row := range rendered {
		tuples = append(tuples, "("+strings.Join(row, ", ")+")")
	}
	return "[" + strings.Join(tuples, ", ") + "]"
}

func (s *SQLToolset) queryRows(ctx context.Context, query string) (header []string, rendered [][]string, err error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	header, err = rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	for rows.Next() {
		values := make([]any, len(header))
		ptrs := make([]any, len(header))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = renderValue(v)
		}
		rendered = append(rendered, row)
	}
	return header, rendered, rows.Err()
}

func renderValue(v any) string {
	switch vv := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "'" + string(vv) + "'"
	case string:
		return "'" + vv + "'"
	default:
		return fmt.Sprint(vv)
	}
}

// validateStructurally is the deterministic fallback check: non-empty,
// recognized leading verb, balanced parentheses and quotes, plus
// dialect-specific rejections.
func validateStructurally(query, dialect string) string {
	query = strings.TrimSpace(query)

	if query == "" {
		return "Error: Empty query"
	}
	if !hasSQLVerb(query) {
		return "Error: Query should start with a valid SQL command"
	}
	if strings.Count(query, "(") != strings.Count(query, ")") {
		return "Error: Unbalanced parentheses in query"
	}
	if strings.Count(query, "'")%2 != 0 {
		return "Error: Unbalanced single quotes in query"
	}
	if strings.Count(query, `"`)%2 != 0 {
		return "Error: Unbalanced double quotes in query"
	}

	if strings.EqualFold(dialect, "sqlite") {
		upper := strings.ToUpper(query)
		if rightJoinRe.MatchString(upper) {
			return "Error: SQLite does not support RIGHT JOIN. Use LEFT JOIN instead"
		}
		if dropColRe.MatchString(upper) {
			return "Error: SQLite does not support DROP COLUMN in ALTER TABLE"
		}
	}

	return query
}

func hasSQLVerb(s string) bool {
	upper := strings.ToUpper(s)
	for _, verb := range sqlVerbs {
		if strings.HasPrefix(upper, verb) {
			return true
		}
	}
	return false
}

// ===================================
// Tool registration
// ===================================

type ListTablesInput struct {
	ToolInput string `json:"tool_input,omitempty"`
}

type DescribeSchemaInput struct {
	TableNames string `json:"table_names"`
}

type QueryInput struct {
	Query string `json:"query"`
}

// Tools returns the four SQL tools for binding to the database agent's model.
func (s *SQLToolset) Tools() []tool.BaseTool {
	listTables := utils.NewTool(
		&schema.ToolInfo{
			Name: ToolListTables,
			Desc: "List all tables in the database. Input is ignored; output is a comma-separated list of table names.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"tool_input": {
					Type: "string",
					Desc: "Unused. Pass an empty string.",
				},
			}),
		},
		func(ctx context.Context, in *ListTablesInput) (string, error) {
			out := s.ListTables(ctx)
			logx.Debug().Str("tool", ToolListTables).Str("result", out).Msg("sql tool executed")
			return out, nil
		},
	)

	describeSchema := utils.NewTool(
		&schema.ToolInfo{
			Name: ToolDescribeSchema,
			Desc: "Get the schema and sample rows for the specified SQL tables. Example input: 'customers, sales'.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"table_names": {
					Type:     "string",
					Desc:     "A comma-separated list of the table names for which to return the schema.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *DescribeSchemaInput) (string, error) {
			out := s.DescribeSchema(ctx, in.TableNames)
			logx.Debug().Str("tool", ToolDescribeSchema).Str("tables", in.TableNames).Msg("sql tool executed")
			return out, nil
		},
	)

	validateQuery := utils.NewTool(
		&schema.ToolInfo{
			Name: ToolValidateQuery,
			Desc: "Double check if your SQL query is correct before executing it. Always use this tool before run_query! Returns the corrected query, or the original query if no issues were found.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "A detailed SQL query to be checked.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *QueryInput) (string, error) {
			out := s.ValidateQuery(ctx, in.Query)
			logx.Debug().Str("tool", ToolValidateQuery).Str("result", out).Msg("sql tool executed")
			return out, nil
		},
	)

	runQuery := utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRunQuery,
			Desc: "Execute a SQL query against the database and get back the result. If an error is returned, rewrite the query, check it, and try again.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "A detailed and correct SQL query.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *QueryInput) (string, error) {
			out := s.RunQuery(ctx, in.Query)
			logx.Debug().Str("tool", ToolRunQuery).Str("query", in.Query).Msg("sql tool executed")
			return out, nil
		},
	)

	return []tool.BaseTool{listTables, describeSchema, validateQuery, runQuery}
}
