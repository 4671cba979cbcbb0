package chat

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/bull/pdfchat-server/internal/embedding"
)

// CompletionModel is the chat model answering questions.
const CompletionModel = openai.ChatModelGPT4oMini

// OpenAICompleter streams chat completions from OpenAI.
type OpenAICompleter struct {
	client *openai.Client
}

// NewOpenAICompleter reuses the embedding client's underlying connection.
func NewOpenAICompleter(client *embedding.Client) *OpenAICompleter {
	return &OpenAICompleter{client: client.Client()}
}

// Complete opens a streaming completion call with deterministic sampling
// (temperature 0).
func (c *OpenAICompleter) Complete(ctx context.Context, prompt Prompt) (TokenStream, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:       CompletionModel,
		Temperature: openai.Float(0),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User()),
		},
	})
	return &openaiStream{stream: stream}, nil
}

// openaiStream adapts the SSE stream to the TokenStream contract, skipping
// chunks that carry no content delta (role headers, finish markers).
type openaiStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	current string
}

func (s *openaiStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		s.current = delta
		return true
	}
	return false
}

func (s *openaiStream) Current() string {
	return s.current
}

func (s *openaiStream) Err() error {
	return s.stream.Err()
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
