package model

// ================ Config ================

type SupervisorModelConfig struct {
	Model       string  `envconfig:"SUPERVISOR_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"SUPERVISOR_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"SUPERVISOR_TEMPERATURE" default:"0.0"`
}

type AgentModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.0"`
}

type ConversationConfig struct {
	TTL     string `envconfig:"CONVERSATION_TTL" default:"15m"`
	Context struct {
		// MaxMessages bounds the trailing window rendered into the
		// supervisor prompt (6 messages = last 3 exchanges).
		MaxMessages int `envconfig:"CONVERSATION_CONTEXT_MAX_MESSAGES" default:"6"`
	}
	Tools struct {
		MaxIterations int `envconfig:"CONVERSATION_TOOL_MAX_ITERATIONS" default:"10"`
	}
}

type DatabaseConfig struct {
	Path    string `envconfig:"SHOWROOM_DB_PATH" default:"db/showroom_management.db"`
	Dialect string `envconfig:"SHOWROOM_DB_DIALECT" default:"sqlite"`
}

type RetrievalConfig struct {
	Directory      string  `envconfig:"RETRIEVAL_DB_DIRECTORY" default:"db"`
	Collection     string  `envconfig:"RETRIEVAL_COLLECTION_NAME" default:"vehicle_manuals"`
	EmbeddingModel string  `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	TopK           int     `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	FetchK         int     `envconfig:"RETRIEVAL_FETCH_K" default:"50"`
	Lambda         float64 `envconfig:"RETRIEVAL_MMR_LAMBDA" default:"0.5"`
}

type UsageConfig struct {
	Enabled bool `envconfig:"USAGE_TRACKING_ENABLED" default:"true"`
}
