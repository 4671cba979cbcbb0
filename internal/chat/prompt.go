package chat

import (
	"fmt"
	"strings"

	"github.com/bull/pdfchat-server/internal/store"
	"github.com/bull/pdfchat-server/internal/vectordb"
)

// systemInstruction pins the model to the retrieved material. The
// "say you don't know" clause is what keeps answers grounded instead of
// fabricated.
const systemInstruction = "Use the following pieces of context (or previous conversation if needed) to answer the user's question in markdown format. If you don't know the answer, just say that you don't know, don't try to make up an answer."

// Prompt is the assembled input for one completion call.
type Prompt struct {
	System   string
	History  []store.Message
	Context  []string
	Question string
}

// BuildPrompt assembles the four-section prompt: conversation history, then
// retrieved context, then the literal question. Section order matters for
// grounding and is fixed.
func BuildPrompt(history []store.Message, hits []vectordb.ScoredChunk, question string) Prompt {
	contexts := make([]string, len(hits))
	for i, hit := range hits {
		contexts[i] = hit.Chunk.Text
	}
	return Prompt{
		System:   systemInstruction,
		History:  history,
		Context:  contexts,
		Question: question,
	}
}

// User renders the user-role message body.
func (p Prompt) User() string {
	var b strings.Builder

	b.WriteString(p.System)
	b.WriteString("\n\n----------------\n\nPREVIOUS CONVERSATION:\n")
	for _, msg := range p.History {
		role := "Assistant"
		if msg.IsUserMessage {
			role = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, msg.Text)
	}

	b.WriteString("\n----------------\n\nCONTEXT:\n")
	b.WriteString(strings.Join(p.Context, "\n\n"))

	b.WriteString("\n\nUSER INPUT: ")
	b.WriteString(p.Question)

	return b.String()
}
