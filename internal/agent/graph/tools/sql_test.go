package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
)

func newTestToolset(t *testing.T) *SQLToolset {
	t.Helper()
	ctx := context.Background()

	ts, err := NewSQLToolset(ctx, model.DatabaseConfig{Path: ":memory:", Dialect: "sqlite"}, nil)
	if err != nil {
		t.Fatalf("open toolset: %v", err)
	}
	t.Cleanup(func() { ts.Close() })

	stmts := []string{
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE sales (id INTEGER PRIMARY KEY, customer_id INTEGER, amount REAL)`,
		`INSERT INTO customers (id, name) VALUES (1, 'Alice'), (2, 'Bob')`,
		`INSERT INTO sales (id, customer_id, amount) VALUES (1, 1, 199.5)`,
	}
	for _, stmt := range stmts {
		if _, err := ts.DB().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed database: %v", err)
		}
	}
	return ts
}

func TestListTables(t *testing.T) {
	ts := newTestToolset(t)

	got := ts.ListTables(context.Background())
	if got != "customers, sales" {
		t.Errorf("got %q, want %q", got, "customers, sales")
	}
}

func TestDescribeSchema(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	got := ts.DescribeSchema(ctx, "customers")
	if !strings.Contains(got, "CREATE TABLE customers") {
		t.Errorf("missing DDL in %q", got)
	}
	if !strings.Contains(got, "Alice") {
		t.Errorf("missing sample rows in %q", got)
	}

	got = ts.DescribeSchema(ctx, "customers, nope")
	if !strings.Contains(got, "CREATE TABLE customers") {
		t.Errorf("missing DDL for known table in %q", got)
	}
	if !strings.Contains(got, `table "nope" not found`) {
		t.Errorf("missing not-found error in %q", got)
	}

	got = ts.DescribeSchema(ctx, "  ")
	if !strings.HasPrefix(got, "Error getting schema") {
		t.Errorf("expected error string for empty input, got %q", got)
	}
}

func TestRunQuery(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	got := ts.RunQuery(ctx, "SELECT name FROM customers ORDER BY id")
	want := "[('Alice'), ('Bob')]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := ts.RunQuery(ctx, "SELECT id FROM customers WHERE id > 99"); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}

	got = ts.RunQuery(ctx, "SELECT nope FROM customers")
	if !strings.HasPrefix(got, "Error executing query:") {
		t.Errorf("expected error string, got %q", got)
	}
}

func TestValidateQueryStructuralFallback(t *testing.T) {
	ts := newTestToolset(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "valid query unchanged",
			query: "SELECT * FROM customers WHERE id = 1",
			want:  "SELECT * FROM customers WHERE id = 1",
		},
		{
			name:  "empty query",
			query: "   ",
			want:  "Error: Empty query",
		},
		{
			name:  "no sql verb",
			query: "show me the customers",
			want:  "Error: Query should start with a valid SQL command",
		},
		{
			name:  "unbalanced parentheses",
			query: "SELECT count(* FROM customers",
			want:  "Error: Unbalanced parentheses in query",
		},
		{
			name:  "unbalanced single quotes",
			query: "SELECT * FROM customers WHERE name = 'Alice",
			want:  "Error: Unbalanced single quotes in query",
		},
		{
			name:  "unbalanced double quotes",
			query: `SELECT * FROM "customers`,
			want:  "Error: Unbalanced double quotes in query",
		},
		{
			name:  "right join rejected",
			query: "SELECT * FROM sales RIGHT JOIN customers ON sales.customer_id = customers.id",
			want:  "Error: SQLite does not support RIGHT JOIN. Use LEFT JOIN instead",
		},
		{
			name:  "alter drop column rejected",
			query: "ALTER TABLE customers DROP COLUMN name",
			want:  "Error: SQLite does not support DROP COLUMN in ALTER TABLE",
		},
		{
			name:  "lowercase verb accepted",
			query: "select id from customers",
			want:  "select id from customers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ts.ValidateQuery(ctx, tt.query)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSQLToolsetMissingFile(t *testing.T) {
	_, err := NewSQLToolset(context.Background(), model.DatabaseConfig{Path: "testdata/does_not_exist.db"}, nil)
	if err == nil {
		t.Fatal("expected error for missing database file")
	}
}
