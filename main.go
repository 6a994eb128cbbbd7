package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"google.golang.org/genai"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/parsers"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/tools"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/repo"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/threads"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"
	pkgredis "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey string `envconfig:"GEMINI_API_KEY" required:"true"`

	// Agent configs
	Supervisor   model.SupervisorModelConfig
	Agent        model.AgentModelConfig
	Conversation model.ConversationConfig
	Database     model.DatabaseConfig
	Retrieval    model.RetrievalConfig
	Usage        model.UsageConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	// Checkpoint store: Redis when configured, in-memory otherwise.
	var conversationRepo model.ConversationRepository
	if envCfg.Redis.Enabled() {
		rdb, err := envCfg.Redis.New()
		if err != nil {
			log.Fatalf("Failed to initialise Redis client: %v", err)
		}
		defer rdb.Close()
		conversationRepo = repo.NewRedisConversationRepository(rdb, ttl)
		logx.Info().Msg("using Redis checkpoints")
	} else {
		conversationRepo = repo.NewMemoryConversationRepository()
		logx.Info().Msg("no Redis URL configured, using in-memory checkpoints")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  envCfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("Failed to create genai client: %v", err)
	}

	sqlToolset, err := tools.NewSQLToolset(ctx, envCfg.Database, nil)
	if err != nil {
		log.Fatalf("Failed to open showroom database: %v", err)
	}
	defer sqlToolset.Close()

	var usageRecorder model.UsageRecorder
	if envCfg.Usage.Enabled {
		usageRecorder, err = repo.NewSQLiteUsageRecorder(ctx, sqlToolset.DB())
		if err != nil {
			log.Fatalf("Failed to initialise usage recorder: %v", err)
		}
	}

	embedder := tools.NewGenAIEmbedder(client, envCfg.Retrieval.EmbeddingModel)
	documentStore, err := tools.NewDocumentStore(ctx, envCfg.Retrieval, embedder)
	if err != nil {
		log.Fatalf("Failed to load document store: %v", err)
	}

	factory := func(ctx context.Context) (graph.Runner, error) {
		return graph.BuildSupervisorGraph(ctx, graph.Config{
			Client:           client,
			Supervisor:       envCfg.Supervisor,
			Agent:            envCfg.Agent,
			Conversation:     envCfg.Conversation,
			ConversationRepo: conversationRepo,
			SQLToolset:       sqlToolset,
			DocumentStore:    documentStore,
			UsageRecorder:    usageRecorder,
		})
	}

	registry := threads.NewRegistry(factory, conversationRepo)

	fmt.Println("Showroom assistant ready. Type a question, or /help for commands.")
	runCLI(ctx, registry)
}

// runCLI reads lines from stdin until EOF or /quit. Lines starting with '/'
// are thread commands; everything else is a conversation turn on the active
// thread.
func runCLI(ctx context.Context, registry *threads.Registry) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		active := registry.ActiveThread()
		fmt.Printf("[%s] > ", shortID(active.ID))
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleCommand(ctx, registry, line); quit {
				return
			}
			continue
		}

		result, err := registry.Invoke(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		_, answer := parsers.SplitThinking(result.AgentOutput)
		if result.AgentName != "" {
			fmt.Printf("(%s)\n", result.AgentName)
		}
		fmt.Println(answer)
	}
}

func handleCommand(ctx context.Context, registry *threads.Registry, line string) (quit bool) {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`commands:
  /new            create a new thread and switch to it
  /threads        list threads
  /switch <id>    switch to a thread (prefix match)
  /delete <id>    delete a thread and its history
  /clear          clear the active thread's history
  /history        show the active thread's message count
  /quit           exit`)

	case "/new":
		info := registry.CreateThread()
		fmt.Printf("created thread %s\n", shortID(info.ID))

	case "/threads":
		for _, info := range registry.Threads() {
			marker := " "
			if info.Active {
				marker = "*"
			}
			title := info.Title
			if title == "" {
				title = "(empty)"
			}
			fmt.Printf("%s %s  %s  %s\n", marker, shortID(info.ID), info.CreatedAt.Format(time.RFC3339), title)
		}

	case "/switch":
		if len(fields) < 2 {
			fmt.Println("usage: /switch <id>")
			return false
		}
		id, err := resolveThreadID(registry, fields[1])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		if err := registry.SelectThread(id); err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Printf("switched to thread %s\n", shortID(id))

	case "/delete":
		if len(fields) < 2 {
			fmt.Println("usage: /delete <id>")
			return false
		}
		id, err := resolveThreadID(registry, fields[1])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		if err := registry.DeleteThread(ctx, id); err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Printf("deleted thread %s\n", shortID(id))

	case "/clear":
		active := registry.ActiveThread()
		if err := registry.ClearThread(ctx, active.ID); err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Println("history cleared")

	case "/history":
		result, err := registry.Invoke(ctx, model.HistorySentinel)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Println(result.AgentOutput)

	default:
		fmt.Printf("unknown command %s, try /help\n", cmd)
	}
	return false
}

// resolveThreadID accepts a full thread id or an unambiguous prefix.
func resolveThreadID(registry *threads.Registry, ref string) (string, error) {
	var match string
	for _, info := range registry.Threads() {
		if info.ID == ref {
			return info.ID, nil
		}
		if strings.HasPrefix(info.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("thread id prefix %q is ambiguous", ref)
			}
			match = info.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("thread %q not found", ref)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
