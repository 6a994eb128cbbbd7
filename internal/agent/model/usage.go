package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// UsageRecord captures token consumption of a single model call.
type UsageRecord struct {
	UserQuery        string
	AgentName        string
	Node             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
	CreatedAt        time.Time
}

// UsageRecorder persists per-call token usage.
type UsageRecorder interface {
	Record(ctx context.Context, rec UsageRecord) error
}

// NewUsageRecord builds a UsageRecord from a model response, computing the
// USD cost from the model's pricing. Returns false when the response carries
// no usage metadata.
func NewUsageRecord(userQuery, agent, node, modelName string, msg *schema.Message) (UsageRecord, bool) {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return UsageRecord{}, false
	}
	usage := msg.ResponseMeta.Usage
	_, _, total := ComputeCost(usage, ResolvePricing(modelName))
	return UsageRecord{
		UserQuery:        userQuery,
		AgentName:        agent,
		Node:             node,
		Model:            modelName,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CostUSD:          total,
		CreatedAt:        time.Now().UTC(),
	}, true
}
