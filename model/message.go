package model

import "time"

// Message is one entry of a direct chat thread.
type Message struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"text"`
	CreatedAt  time.Time `json:"timestamp"`
}

type Conversation struct {
	ID              string    `json:"id"`
	ParticipantName string    `json:"participant_name"`
	LastMessage     string    `json:"last_message"`
	Timestamp       time.Time `json:"timestamp"`
}

type TurnSender string

const (
	SenderAgent        TurnSender = "agent"
	SenderCounterparty TurnSender = "counterparty"
)

// Turn is one line of a negotiation transcript.
type Turn struct {
	ID        string     `json:"id"`
	Sender    TurnSender `json:"sender"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
}

type NegotiationPhase string

const (
	PhaseChatting NegotiationPhase = "chatting"
	PhaseAgreed   NegotiationPhase = "agreed"
	PhasePayment  NegotiationPhase = "payment"
)
