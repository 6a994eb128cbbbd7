package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/supervisor_system.txt
var supervisorSystemPrompt string

//go:embed template/supervisor_user.txt
var supervisorUserPrompt string

//go:embed template/text_to_sql_system.txt
var textToSQLSystemPrompt string

//go:embed template/text_to_sql_user.txt
var textToSQLUserPrompt string

//go:embed template/rag_system.txt
var ragSystemPrompt string

//go:embed template/rag_user.txt
var ragUserPrompt string

//go:embed template/misleading_system.txt
var misleadingSystemPrompt string

//go:embed template/misleading_user.txt
var misleadingUserPrompt string

//go:embed template/query_checker.txt
var queryCheckerPrompt string

// RenderSupervisorSystem renders the routing system prompt, prepending the
// trailing conversation context when one exists. Rendering goes through the
// Eino prompt component so prompt callbacks fire.
func RenderSupervisorSystem(ctx context.Context, recentContext string) (string, error) {
	content := supervisorSystemPrompt
	if strings.TrimSpace(recentContext) != "" {
		content = "Recent conversation context:\n" + recentContext + "\n\n" + content
	}
	return renderSystem(ctx, "supervisor_system", content)
}

// RenderSupervisorUser wraps the user's query for the routing call.
func RenderSupervisorUser(userQuery string) string {
	return replaceTokens(supervisorUserPrompt, map[string]string{"{user_query}": userQuery})
}

// RenderTextToSQLSystem renders the database agent's system prompt for the
// configured SQL dialect.
func RenderTextToSQLSystem(ctx context.Context, dialect string) (string, error) {
	content := replaceTokens(textToSQLSystemPrompt, map[string]string{"{dialect}": dialect})
	return renderSystem(ctx, "text_to_sql_system", content)
}

func RenderTextToSQLUser(userQuery string) string {
	return replaceTokens(textToSQLUserPrompt, map[string]string{"{user_query}": userQuery})
}

func RenderRAGSystem(ctx context.Context) (string, error) {
	return renderSystem(ctx, "rag_system", ragSystemPrompt)
}

func RenderRAGUser(userQuery string) string {
	return replaceTokens(ragUserPrompt, map[string]string{"{user_query}": userQuery})
}

func RenderMisleadingSystem(ctx context.Context) (string, error) {
	return renderSystem(ctx, "misleading_system", misleadingSystemPrompt)
}

func RenderMisleadingUser(userQuery string) string {
	return replaceTokens(misleadingUserPrompt, map[string]string{"{user_query}": userQuery})
}

// RenderQueryChecker builds the secondary-model checklist prompt used by the
// validate_query tool.
func RenderQueryChecker(dialect, query string) string {
	return replaceTokens(queryCheckerPrompt, map[string]string{
		"{dialect}": dialect,
		"{query}":   query,
	})
}

// replaceTokens substitutes known tokens only, so literal braces elsewhere in
// the templates (e.g. JSON examples) survive untouched.
func replaceTokens(tpl string, tokens map[string]string) string {
	pairs := make([]string, 0, len(tokens)*2)
	for k, v := range tokens {
		pairs = append(pairs, k, v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(tpl))
}

// renderSystem wraps a pre-rendered system prompt in the Eino prompt
// component using a messages placeholder, emitting prompt callbacks without
// re-interpreting braces in the content.
func renderSystem(ctx context.Context, name, content string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("%s prompt callbacks: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt callbacks: empty result", name)
	}
	return msgs[0].Content, nil
}
