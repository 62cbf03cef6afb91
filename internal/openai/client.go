package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the OpenAI SDK and keeps a chat history per user.
type Client struct {
	apiKey string
	client *openai.Client
	model  openai.ChatModel

	mu       sync.Mutex
	sessions map[string][]openai.ChatCompletionMessageParamUnion
}

// ErrClientNotInitialised is returned when attempting to call the API without a configured client.
var ErrClientNotInitialised = errors.New("openai client not initialised")

// RefusalReply is returned verbatim when the model refuses a message for
// content-policy reasons.
const RefusalReply = "您的訊息可能含有騷擾、仇恨言論、煽情露骨或危險的內容，模型無法回應。"

const systemPrompt = "You are a friendly assistant inside a payment-reminder chat bot. Answer in the language the user writes in and keep replies short."

// New returns an OpenAI client when apiKey is provided, otherwise nil is returned.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{sessions: make(map[string][]openai.ChatCompletionMessageParamUnion)}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		apiKey:   apiKey,
		client:   &client,
		model:    openai.ChatModelGPT4oMini,
		sessions: make(map[string][]openai.ChatCompletionMessageParamUnion),
	}
}

// SendMessage forwards a user's message to the model together with that
// user's chat history and returns the reply. A content-filtered completion
// yields RefusalReply and leaves the history untouched.
func (c *Client) SendMessage(ctx context.Context, userID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message cannot be empty")
	}
	if c.client == nil {
		return "", ErrClientNotInitialised
	}

	history := c.historyFor(userID)
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessageParamUnion{
		OfSystem: &openai.ChatCompletionSystemMessageParam{
			Content: openai.ChatCompletionSystemMessageParamContentUnion{
				OfString: openai.String(systemPrompt),
			},
		},
	})
	messages = append(messages, history...)
	userMessage := openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(message),
			},
		},
	}
	messages = append(messages, userMessage)

	req := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		Temperature:         openai.Float(0.7),
		MaxCompletionTokens: openai.Int(400),
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion received")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return RefusalReply, nil
	}

	reply := strings.TrimSpace(choice.Message.Content)
	c.append(userID, userMessage, openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: openai.String(reply),
			},
		},
	})
	return reply, nil
}

// ResetSession drops a user's chat history.
func (c *Client) ResetSession(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, userID)
}

func (c *Client) historyFor(userID string) []openai.ChatCompletionMessageParamUnion {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := c.sessions[userID]
	out := make([]openai.ChatCompletionMessageParamUnion, len(history))
	copy(out, history)
	return out
}

func (c *Client) append(userID string, turns ...openai.ChatCompletionMessageParamUnion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[userID] = append(c.sessions[userID], turns...)
}
