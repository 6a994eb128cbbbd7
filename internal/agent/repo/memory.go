package repo

import (
	"context"
	"sync"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	"github.com/cloudwego/eino/schema"
)

// MemoryConversationRepository keeps thread checkpoints in process memory.
// It backs redis-less local runs and tests; semantics match the Redis
// repository (append-only log per thread, empty history for unknown threads).
type MemoryConversationRepository struct {
	mu   sync.RWMutex
	logs map[string][]*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{logs: make(map[string][]*schema.Message)}
}

func (r *MemoryConversationRepository) AddMessage(ctx context.Context, threadID string, message *schema.Message) error {
	return r.AddMessages(ctx, threadID, message)
}

func (r *MemoryConversationRepository) AddMessages(ctx context.Context, threadID string, messages ...*schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[threadID] = append(r.logs[threadID], messages...)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(ctx context.Context, threadID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.logs[threadID]
	msgs := make([]*schema.Message, len(src))
	copy(msgs, src)
	return &model.ConversationHistory{ThreadID: threadID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(ctx context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.logs, threadID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(ctx context.Context, threadID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.logs[threadID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
