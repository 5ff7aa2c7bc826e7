package usecase

import (
	"context"
	"errors"
	"sync"

	"dormscout-backend/model"
	"dormscout-backend/pkg/gemini"
)

type scriptedReply struct {
	text string
	err  error
}

// scriptedSession answers Send from a fixed script. When gate is set, Send
// announces itself on started and blocks until gate is closed.
type scriptedSession struct {
	mu       sync.Mutex
	replies  []scriptedReply
	received []string
	started  chan string
	gate     chan struct{}
}

func script(texts ...string) *scriptedSession {
	s := &scriptedSession{}
	for _, t := range texts {
		s.replies = append(s.replies, scriptedReply{text: t})
	}
	return s
}

func (s *scriptedSession) then(text string, err error) *scriptedSession {
	s.replies = append(s.replies, scriptedReply{text: text, err: err})
	return s
}

func (s *scriptedSession) hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = make(chan string, 1)
	s.gate = make(chan struct{})
}

func (s *scriptedSession) Send(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	s.received = append(s.received, text)
	started, gate := s.started, s.gate
	s.mu.Unlock()

	if started != nil {
		started <- text
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func (s *scriptedSession) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.received...)
}

type scriptedAgent struct {
	mu       sync.Mutex
	sessions []*scriptedSession
	prompts  []string
	tools    [][]gemini.Tool
	err      error
}

func (a *scriptedAgent) StartChat(_ context.Context, systemPrompt string, tools []gemini.Tool) (gemini.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	if len(a.sessions) == 0 {
		return nil, errors.New("no scripted session left")
	}
	s := a.sessions[0]
	a.sessions = a.sessions[1:]
	a.prompts = append(a.prompts, systemPrompt)
	a.tools = append(a.tools, tools)
	return s, nil
}

type stubAnalyzer struct {
	verdict string
	err     error
	calls   int
	lastDoc string
}

func (a *stubAnalyzer) AnalyzeImage(_ context.Context, _ model.Image, description string) (string, error) {
	a.calls++
	a.lastDoc = description
	return a.verdict, a.err
}

type stubClassifier struct {
	class model.MessageClass
	err   error
}

func (c stubClassifier) ClassifyMessage(context.Context, string) (model.MessageClass, error) {
	return c.class, c.err
}

type recordingNotifier struct {
	mu      sync.Mutex
	matches []model.WishlistMatch
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, m model.WishlistMatch) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.matches = append(n.matches, m)
	return n.err
}
