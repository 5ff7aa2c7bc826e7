package dao

import (
	"context"
	"sync"

	"dormscout-backend/model"
)

type MessageRepository struct {
	store KVStore
	mu    sync.Mutex
}

func NewMessageRepository(store KVStore) *MessageRepository {
	return &MessageRepository{store: store}
}

func (r *MessageRepository) GetMessagesByThreadID(ctx context.Context, threadID string) ([]model.Message, error) {
	var msgs []model.Message
	if _, err := readJSON(ctx, r.store, ThreadKey(threadID), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateMessage appends msg to its thread and moves the conversation summary along.
func (r *MessageRepository) CreateMessage(ctx context.Context, msg model.Message, participantName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs, err := r.GetMessagesByThreadID(ctx, msg.ThreadID)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)
	if err := writeJSON(ctx, r.store, ThreadKey(msg.ThreadID), msgs); err != nil {
		return err
	}

	convs, err := r.GetConversations(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range convs {
		if convs[i].ID == msg.ThreadID {
			convs[i].LastMessage = msg.Content
			convs[i].Timestamp = msg.CreatedAt
			found = true
			break
		}
	}
	if !found {
		convs = append(convs, model.Conversation{
			ID:              msg.ThreadID,
			ParticipantName: participantName,
			LastMessage:     msg.Content,
			Timestamp:       msg.CreatedAt,
		})
	}
	return writeJSON(ctx, r.store, KeyConversations, convs)
}

func (r *MessageRepository) GetConversations(ctx context.Context) ([]model.Conversation, error) {
	var convs []model.Conversation
	if _, err := readJSON(ctx, r.store, KeyConversations, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}
