package model

import "time"

// ================ Config ================

// ModelParams is the vendor-neutral shape every model config resolves to.
type ModelParams struct {
	Model          string
	MaxTokens      int
	Temperature    float32
	ThinkingBudget int32
}

type RouterModelConfig struct {
	Model          string  `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens      int     `envconfig:"ROUTER_MAX_TOKENS" default:"512"`
	Temperature    float32 `envconfig:"ROUTER_TEMPERATURE" default:"0"`
	ThinkingBudget int32   `envconfig:"ROUTER_THINKING_BUDGET" default:"0"`
}

func (c RouterModelConfig) Params() ModelParams {
	return ModelParams{c.Model, c.MaxTokens, c.Temperature, c.ThinkingBudget}
}

type AnalysisModelConfig struct {
	Model          string  `envconfig:"ANALYSIS_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"ANALYSIS_MAX_TOKENS" default:"4096"`
	Temperature    float32 `envconfig:"ANALYSIS_TEMPERATURE" default:"0.1"`
	ThinkingBudget int32   `envconfig:"ANALYSIS_THINKING_BUDGET" default:"2000"`
}

func (c AnalysisModelConfig) Params() ModelParams {
	return ModelParams{c.Model, c.MaxTokens, c.Temperature, c.ThinkingBudget}
}

type ResponseModelConfig struct {
	Model          string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"RESPONSE_MAX_TOKENS" default:"4096"`
	Temperature    float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
	ThinkingBudget int32   `envconfig:"RESPONSE_THINKING_BUDGET" default:"0"`
}

func (c ResponseModelConfig) Params() ModelParams {
	return ModelParams{c.Model, c.MaxTokens, c.Temperature, c.ThinkingBudget}
}

type CacheConfig struct {
	LLMCapacity int `envconfig:"CACHE_LLM_CAPACITY" default:"100"`
	RAGCapacity int `envconfig:"CACHE_RAG_CAPACITY" default:"50"`
}

type ConversationConfig struct {
	RouterMaxTurns int `envconfig:"CONVERSATION_ROUTER_MAX_TURNS" default:"10"`
	RewriteTurns   int `envconfig:"CONVERSATION_REWRITE_TURNS" default:"6"`
	HistoryTurns   int `envconfig:"CONVERSATION_HISTORY_TURNS" default:"10"`
	Tools          struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type TimeoutConfig struct {
	Model     time.Duration `envconfig:"TIMEOUT_MODEL" default:"60s"`
	Tool      time.Duration `envconfig:"TIMEOUT_TOOL" default:"15s"`
	Retrieval time.Duration `envconfig:"TIMEOUT_RETRIEVAL" default:"20s"`
	Store     time.Duration `envconfig:"TIMEOUT_STORE" default:"5s"`
}

type StoreBackend string

const (
	StoreMemory   StoreBackend = "memory"
	StoreRedis    StoreBackend = "redis"
	StoreSQLite   StoreBackend = "sqlite"
	StorePostgres StoreBackend = "postgres"
)

type StoreConfig struct {
	Backend StoreBackend `envconfig:"STORE_BACKEND" default:"memory"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string        `envconfig:"STORE_DSN" default:"jan_sahayak.db"`
	TTL time.Duration `envconfig:"STORE_TTL" default:"0"`
}

type RetrievalConfig struct {
	CorpusDir string `envconfig:"CORPUS_DIR" default:"corpus"`
	TopK      int    `envconfig:"RETRIEVAL_TOP_K" default:"3"`
}

type ServerConfig struct {
	Addr string `envconfig:"SERVER_ADDR" default:":8080"`
}
