package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"dormscout-backend/model"
	"dormscout-backend/pkg/metrics"
)

const (
	DefaultChatModel   = "gemini-1.5-pro"
	DefaultVisionModel = "gemini-1.5-flash"

	// maxToolRounds bounds how many function-call round trips one Send may take.
	maxToolRounds = 4
)

// Tool is a single-argument function the agent may call during a chat.
// Results are advisory; a failing tool answers with an "error" field instead of aborting the turn.
type Tool struct {
	Name             string
	Description      string
	Param            string
	ParamDescription string
	Call             func(ctx context.Context, arg string) (map[string]any, error)
}

// Session is a chat with server-side memory of earlier turns.
type Session interface {
	Send(ctx context.Context, text string) (string, error)
}

type Client struct {
	client      *genai.Client
	chatModel   string
	visionModel string
	timeout     time.Duration
	logger      *zap.Logger
}

type ClientOption func(*Client)

func WithChatModel(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.chatModel = name
		}
	}
}

func WithVisionModel(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.visionModel = name
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	c := &Client{
		client:      client,
		chatModel:   DefaultChatModel,
		visionModel: DefaultVisionModel,
		timeout:     60 * time.Second,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// StartChat opens a chat bound to systemPrompt with the given tools declared.
// No network call is made until the first Send.
func (c *Client) StartChat(_ context.Context, systemPrompt string, tools []Tool) (Session, error) {
	m := c.client.GenerativeModel(c.chatModel)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	if decls := FunctionDeclarations(tools); len(decls) > 0 {
		m.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}
	return &chatSession{
		cs:      m.StartChat(),
		tools:   byName,
		timeout: c.timeout,
		logger:  c.logger,
	}, nil
}

func FunctionDeclarations(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					t.Param: {Type: genai.TypeString, Description: t.ParamDescription},
				},
				Required: []string{t.Param},
			},
		})
	}
	return decls
}

type chatSession struct {
	cs      *genai.ChatSession
	tools   map[string]Tool
	timeout time.Duration
	logger  *zap.Logger
}

func (s *chatSession) Send(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.cs.SendMessage(ctx, genai.Text(text))
	for round := 0; err == nil && round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}
		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			replies = append(replies, s.runTool(ctx, call))
		}
		resp, err = s.cs.SendMessage(ctx, replies...)
	}
	metrics.ObserveAgentCall("chat", start, err)
	if err != nil {
		return "", classify(err)
	}
	return responseText(resp), nil
}

func (s *chatSession) runTool(ctx context.Context, call genai.FunctionCall) genai.FunctionResponse {
	tool, ok := s.tools[call.Name]
	if !ok {
		return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"error": "unknown tool"}}
	}
	arg, _ := call.Args[tool.Param].(string)
	out, err := tool.Call(ctx, arg)
	if err != nil {
		s.logger.Warn("tool call failed", zap.String("tool", call.Name), zap.Error(err))
		out = map[string]any{"error": err.Error()}
	}
	s.logger.Debug("tool call", zap.String("tool", call.Name), zap.String("arg", arg))
	return genai.FunctionResponse{Name: call.Name, Response: out}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

// AnalyzeImage asks the vision model to compare an item photo against its description.
func (c *Client) AnalyzeImage(ctx context.Context, img model.Image, description string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	prompt := fmt.Sprintf(`Analyze this item image compared to the description: "%s". Detect brand, model, and any visible damage or wear. Flag if it looks like a scam or fake image.`, description)

	start := time.Now()
	resp, err := c.client.GenerativeModel(c.visionModel).GenerateContent(ctx,
		genai.Blob{MIMEType: mime, Data: img.Data},
		genai.Text(prompt),
	)
	metrics.ObserveAgentCall("vision", start, err)
	if err != nil {
		return "", classify(err)
	}
	return responseText(resp), nil
}

var errEmptyResponse = errors.New("empty response from Gemini")

// ClassifyMessage sorts a free-text campus post into WTS, WTB or NOISE.
func (c *Client) ClassifyMessage(ctx context.Context, message string) (model.MessageClass, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Classify the following message into one of three categories: WTS (Want to Sell), WTB (Want to Buy), or NOISE (everything else like memes, questions, event invites).
Message: "%s"
Return only the category name.`, message)

	start := time.Now()
	resp, err := c.client.GenerativeModel(c.chatModel).GenerateContent(ctx, genai.Text(prompt))
	metrics.ObserveAgentCall("classify", start, err)
	if err != nil {
		return model.MessageNoise, classify(err)
	}
	txt := responseText(resp)
	if txt == "" {
		return model.MessageNoise, errEmptyResponse
	}
	return ParseMessageClass(txt), nil
}

func ParseMessageClass(txt string) model.MessageClass {
	switch {
	case strings.Contains(txt, "WTS"):
		return model.MessageWTS
	case strings.Contains(txt, "WTB"):
		return model.MessageWTB
	default:
		return model.MessageNoise
	}
}
