package usecase

import (
	"context"
	"strings"
	"time"

	"dormscout-backend/dao"
	"dormscout-backend/model"
)

// ChatUsecase covers plain user-to-user threads; no agent is involved.
type ChatUsecase struct {
	msgRepo *dao.MessageRepository
}

func NewChatUsecase(msgRepo *dao.MessageRepository) *ChatUsecase {
	return &ChatUsecase{msgRepo: msgRepo}
}

func (u *ChatUsecase) Conversations(ctx context.Context) ([]model.Conversation, error) {
	return u.msgRepo.GetConversations(ctx)
}

func (u *ChatUsecase) Messages(ctx context.Context, threadID string) ([]model.Message, error) {
	if err := checkThreadID(threadID); err != nil {
		return nil, err
	}
	return u.msgRepo.GetMessagesByThreadID(ctx, threadID)
}

func (u *ChatUsecase) SendDirectMessage(ctx context.Context, threadID, senderID, senderName, participantName, text string) (*model.Message, error) {
	if err := checkThreadID(threadID); err != nil {
		return nil, err
	}
	switch {
	case strings.TrimSpace(senderID) == "":
		return nil, invalid("sender_id", "must not be empty")
	case strings.TrimSpace(text) == "":
		return nil, invalid("text", "must not be empty")
	}
	msg := model.Message{
		ID:         newID(),
		ThreadID:   threadID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    strings.TrimSpace(text),
		CreatedAt:  time.Now(),
	}
	if participantName == "" {
		participantName = senderName
	}
	if err := u.msgRepo.CreateMessage(ctx, msg, participantName); err != nil {
		return nil, err
	}
	return &msg, nil
}

func checkThreadID(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("thread_id", "must not be empty")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return invalid("thread_id", "contains path characters")
	}
	return nil
}
