// Package graph composes the supervisor workflow: one routing node fanning
// out to the three specialist handlers plus the history report node, compiled
// into an Eino runnable.
package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"google.golang.org/genai"

	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/agents"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/conversations"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/nodes"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/observers"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/tools"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
)

// Runner executes the compiled graph for one user turn.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error)
}

// Config holds everything needed to compose the full supervisor graph
// end-to-end. This is a convenience layer over GraphConfig that also
// constructs ChatModels and MessagesManager.
type Config struct {
	Client           *genai.Client
	Supervisor       model.SupervisorModelConfig
	Agent            model.AgentModelConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
	SQLToolset       *tools.SQLToolset
	DocumentStore    *tools.DocumentStore
	UsageRecorder    model.UsageRecorder
}

// GraphConfig holds all configuration needed to build the graph.
type GraphConfig struct {
	ChatModels        *nodes.ChatModels
	MessagesManager   *conversations.MessagesManager
	SQLToolset        *tools.SQLToolset
	DocumentStore     *tools.DocumentStore
	Supervisor        model.SupervisorModelConfig
	Agent             model.AgentModelConfig
	ToolMaxIterations int
	UsageRecorder     model.UsageRecorder
}

// GraphBuilder handles the construction of the supervisor graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.QueryInput, *model.TurnResult]
}

type graphRunner struct {
	runnable compose.Runnable[*model.QueryInput, *model.TurnResult]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error) {
	return r.runnable.Invoke(ctx, &in, compose.WithCallbacks(observers.NewAllCallbacks()))
}

// BuildSupervisorGraph composes ChatModels, MessagesManager, builds the
// graph, and returns a Runner.
func BuildSupervisorGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.SQLToolset == nil || cfg.DocumentStore == nil {
		return nil, fmt.Errorf("toolsets are not initialized")
	}

	sqlInfos, err := tools.GetToolInfos(ctx, cfg.SQLToolset.Tools())
	if err != nil {
		return nil, fmt.Errorf("sql tool infos: %w", err)
	}
	ragInfos, err := tools.GetToolInfos(ctx, cfg.DocumentStore.Tools())
	if err != nil {
		return nil, fmt.Errorf("retrieval tool infos: %w", err)
	}

	cms, err := nodes.NewChatModels(ctx, cfg.Client, cfg.Supervisor, cfg.Agent, sqlInfos, ragInfos)
	if err != nil {
		return nil, err
	}

	// The toolset predates the chat models; wire the review model in now.
	cfg.SQLToolset.SetChecker(cms.Checker)

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:        cms,
		MessagesManager:   mm,
		SQLToolset:        cfg.SQLToolset,
		DocumentStore:     cfg.DocumentStore,
		Supervisor:        cfg.Supervisor,
		Agent:             cfg.Agent,
		ToolMaxIterations: cfg.Conversation.Tools.MaxIterations,
		UsageRecorder:     cfg.UsageRecorder,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Supervisor graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled supervisor graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.QueryInput, *model.TurnResult], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Supervisor == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.QueryInput, *model.TurnResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.addNodes(ctx); err != nil {
		return nil, err
	}
	builder.addEdges()
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes builds the agents and registers all processing nodes.
func (b *GraphBuilder) addNodes(ctx context.Context) error {
	cfg := b.config

	textToSQL, err := agents.NewTextToSQLAgent(ctx, cfg.ChatModels.TextToSQL, cfg.SQLToolset, cfg.Agent, cfg.ToolMaxIterations, cfg.UsageRecorder)
	if err != nil {
		return err
	}
	rag, err := agents.NewRAGAgent(ctx, cfg.ChatModels.RAG, cfg.DocumentStore, cfg.Agent, cfg.ToolMaxIterations, cfg.UsageRecorder)
	if err != nil {
		return err
	}
	misleading := agents.NewMisleadingAgent(cfg.ChatModels.Misleading, cfg.Agent, cfg.UsageRecorder)

	supervisor := nodes.NewSupervisor(cfg.ChatModels.Supervisor, cfg.MessagesManager, cfg.Supervisor, cfg.UsageRecorder)

	b.graph.AddLambdaNode(nodes.NodeSupervisor,
		compose.InvokableLambda(supervisor.Route))
	b.graph.AddLambdaNode(nodes.NodeTextToSQL,
		compose.InvokableLambda(nodes.NewHandler(textToSQL, cfg.MessagesManager).Handle))
	b.graph.AddLambdaNode(nodes.NodeRAG,
		compose.InvokableLambda(nodes.NewHandler(rag, cfg.MessagesManager).Handle))
	b.graph.AddLambdaNode(nodes.NodeMisleading,
		compose.InvokableLambda(nodes.NewHandler(misleading, cfg.MessagesManager).Handle))
	b.graph.AddLambdaNode(nodes.NodeHistoryReport,
		compose.InvokableLambda(nodes.NewHistoryReporter().Report))

	return nil
}

// addEdges creates the main flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeSupervisor},
		{nodes.NodeTextToSQL, compose.END},
		{nodes.NodeRAG, compose.END},
		{nodes.NodeMisleading, compose.END},
		{nodes.NodeHistoryReport, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches routes the supervisor decision to its terminal handler. The
// decision's agent name is already validated; anything unexpected still lands
// on the misleading handler rather than failing the turn.
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		func(ctx context.Context, decision *model.SupervisorDecision) (string, error) {
			if decision.HistoryOnly {
				return nodes.NodeHistoryReport, nil
			}
			switch decision.AgentName {
			case model.AgentTextToSQL:
				return nodes.NodeTextToSQL, nil
			case model.AgentRAG:
				return nodes.NodeRAG, nil
			default:
				return nodes.NodeMisleading, nil
			}
		},
		map[string]bool{
			nodes.NodeTextToSQL:     true,
			nodes.NodeRAG:           true,
			nodes.NodeMisleading:    true,
			nodes.NodeHistoryReport: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeSupervisor, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.QueryInput, *model.TurnResult], error) {
	// The tool loop runs inside the handler nodes, so the graph itself only
	// ever takes a handful of steps; keep headroom anyway.
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(20))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
