// Package llm provides generative-model clients for paper summarization
// and analysis.
//
// The package defines a provider-neutral chat completion interface plus the
// prompt engineering used by the summarize and analytics services. Models
// are instructed to answer with JSON objects; parsing helpers turn that
// content back into typed results.
//
// Example usage:
//
//	client := llm.NewOpenAIClient(cfg, 30*time.Second, 3)
//	result, err := client.Complete(ctx, []llm.ChatMessage{
//		{Role: llm.RoleUser, Content: llm.BuildSummaryPrompt(text)},
//	}, llm.ChatOptions{Temperature: 0.3, MaxTokens: 1000})
package llm

import "context"

// Message roles understood by chat completion APIs.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is a single role-tagged message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions controls a single chat completion call.
type ChatOptions struct {
	// Temperature controls output randomness; 0 is deterministic.
	Temperature float64

	// MaxTokens bounds the completion length. Zero means no explicit bound.
	MaxTokens int
}

// ChatResult contains the model's completion and usage metadata.
type ChatResult struct {
	// Content is the raw text content of the first completion choice.
	// It is expected, but not guaranteed, to be JSON when the prompt
	// asks for it.
	Content string

	// Model is the model identifier that produced the completion.
	Model string

	// InputTokens is the number of prompt tokens consumed.
	InputTokens int

	// OutputTokens is the number of completion tokens produced.
	OutputTokens int
}

// ChatCompleter defines the interface for chat-based generative models.
//
// Implementations should handle provider-specific API calls, retries on
// transient failures, and error handling while conforming to this
// unified interface.
type ChatCompleter interface {
	// Complete sends the messages to the model and returns the completion.
	// The context should be used for cancellation and deadline propagation.
	Complete(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResult, error)

	// Provider returns the name of the LLM provider (e.g., "openai").
	Provider() string

	// Model returns the model identifier being used (e.g., "gpt-4o").
	Model() string
}
