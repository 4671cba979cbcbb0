package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/pdfchat-server/internal/store"
	"github.com/bull/pdfchat-server/internal/vectordb"
)

// fakeStream yields a fixed token slice, then terminates with err (nil for
// natural completion).
type fakeStream struct {
	tokens  []string
	i       int
	current string
	err     error
}

func (s *fakeStream) Next() bool {
	if s.i < len(s.tokens) {
		s.current = s.tokens[s.i]
		s.i++
		return true
	}
	return false
}

func (s *fakeStream) Current() string { return s.current }
func (s *fakeStream) Err() error      { return s.err }
func (s *fakeStream) Close() error    { return nil }

type stubDocs struct {
	doc *store.Document
	err error
}

func (d *stubDocs) GetOwned(_ context.Context, _, _ string) (*store.Document, error) {
	return d.doc, d.err
}

type memMessages struct {
	created []*store.Message
}

func (m *memMessages) Create(_ context.Context, msg *store.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	m.created = append(m.created, msg)
	return nil
}

func (m *memMessages) RecentWindow(_ context.Context, _ string, limit int) ([]store.Message, error) {
	start := max(len(m.created)-limit, 0)
	var out []store.Message
	for _, msg := range m.created[start:] {
		out = append(out, *msg)
	}
	return out, nil
}

type stubQueryEmbedder struct {
	err error
}

func (e *stubQueryEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return make([]float32, vectordb.VectorDimension), nil
}

type stubSearcher struct {
	hits       []vectordb.ScoredChunk
	err        error
	lastDocID  string
	lastLimit  int
	wasQueried bool
}

func (s *stubSearcher) SearchChunks(_ context.Context, documentID string, _ []float32, limit int) ([]vectordb.ScoredChunk, error) {
	s.wasQueried = true
	s.lastDocID = documentID
	s.lastLimit = limit
	return s.hits, s.err
}

type stubCompleter struct {
	stream     TokenStream
	err        error
	lastPrompt Prompt
}

func (c *stubCompleter) Complete(_ context.Context, prompt Prompt) (TokenStream, error) {
	c.lastPrompt = prompt
	return c.stream, c.err
}

func readyDoc() *store.Document {
	return &store.Document{ID: "doc-1", UserID: "alice", Status: store.StatusSuccess}
}

func drain(stream TokenStream) string {
	var out string
	for stream.Next() {
		out += stream.Current()
	}
	return out
}

func TestGenerator_Answer_HappyPath(t *testing.T) {
	msgs := &memMessages{}
	searcher := &stubSearcher{hits: []vectordb.ScoredChunk{
		{Chunk: vectordb.Chunk{Page: 1, Text: "chunk one"}},
		{Chunk: vectordb.Chunk{Page: 2, Text: "chunk two"}},
	}}
	completer := &stubCompleter{stream: &fakeStream{tokens: []string{"It is ", "a guide."}}}

	g := NewGenerator(&stubDocs{doc: readyDoc()}, msgs, &stubQueryEmbedder{}, searcher, completer, nil)

	stream, err := g.Answer(context.Background(), "doc-1", "alice", "What is this about?")
	require.NoError(t, err)

	// The question is persisted before any token is read.
	require.Len(t, msgs.created, 1)
	assert.True(t, msgs.created[0].IsUserMessage)
	assert.Equal(t, "What is this about?", msgs.created[0].Text)

	assert.Equal(t, "It is a guide.", drain(stream))
	assert.NoError(t, stream.Err())

	// Natural completion persisted the full assistant reply, once.
	require.Len(t, msgs.created, 2)
	assert.False(t, msgs.created[1].IsUserMessage)
	assert.Equal(t, "It is a guide.", msgs.created[1].Text)

	// Retrieval was scoped to the document's namespace with K=4.
	assert.Equal(t, "doc-1", searcher.lastDocID)
	assert.Equal(t, RetrievalK, searcher.lastLimit)

	// The prompt saw the retrieved chunks and the literal question.
	assert.Equal(t, []string{"chunk one", "chunk two"}, completer.lastPrompt.Context)
	assert.Equal(t, "What is this about?", completer.lastPrompt.Question)
}

func TestGenerator_Answer_OwnershipGateBeforeAnyCall(t *testing.T) {
	msgs := &memMessages{}
	searcher := &stubSearcher{}
	g := NewGenerator(&stubDocs{err: store.ErrNotFound}, msgs, &stubQueryEmbedder{}, searcher, &stubCompleter{}, nil)

	_, err := g.Answer(context.Background(), "doc-1", "mallory", "q")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Nothing was persisted and no external call was made.
	assert.Empty(t, msgs.created)
	assert.False(t, searcher.wasQueried)
}

func TestGenerator_Answer_NotReadyStatuses(t *testing.T) {
	for _, status := range []store.UploadStatus{store.StatusProcessing, store.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			doc := readyDoc()
			doc.Status = status
			msgs := &memMessages{}
			g := NewGenerator(&stubDocs{doc: doc}, msgs, &stubQueryEmbedder{}, &stubSearcher{}, &stubCompleter{}, nil)

			_, err := g.Answer(context.Background(), "doc-1", "alice", "q")
			assert.ErrorIs(t, err, ErrNotReady)
			assert.Empty(t, msgs.created)
		})
	}
}

func TestGenerator_Answer_EmbedFailureKeepsQuestion(t *testing.T) {
	msgs := &memMessages{}
	g := NewGenerator(&stubDocs{doc: readyDoc()}, msgs,
		&stubQueryEmbedder{err: errors.New("embed down")}, &stubSearcher{}, &stubCompleter{}, nil)

	_, err := g.Answer(context.Background(), "doc-1", "alice", "q")
	require.Error(t, err)

	// The question survives a generation failure; only the user message row
	// exists.
	require.Len(t, msgs.created, 1)
	assert.True(t, msgs.created[0].IsUserMessage)
}

func TestGenerator_Answer_HistoryExcludesOwnQuestion(t *testing.T) {
	msgs := &memMessages{}
	// Two prior turns.
	require.NoError(t, msgs.Create(context.Background(), &store.Message{Text: "earlier q", IsUserMessage: true}))
	require.NoError(t, msgs.Create(context.Background(), &store.Message{Text: "earlier a", IsUserMessage: false}))

	completer := &stubCompleter{stream: &fakeStream{tokens: []string{"ok"}}}
	g := NewGenerator(&stubDocs{doc: readyDoc()}, msgs, &stubQueryEmbedder{}, &stubSearcher{}, completer, nil)

	_, err := g.Answer(context.Background(), "doc-1", "alice", "new question")
	require.NoError(t, err)

	history := completer.lastPrompt.History
	require.Len(t, history, 2)
	assert.Equal(t, "earlier q", history[0].Text)
	assert.Equal(t, "earlier a", history[1].Text)
	for _, msg := range history {
		assert.NotEqual(t, "new question", msg.Text)
	}
}

func TestPriorWindow_TrimsToMostRecent(t *testing.T) {
	var window []store.Message
	for i := 0; i < 8; i++ {
		window = append(window, store.Message{ID: string(rune('a' + i))})
	}

	got := priorWindow(window, "zz", 6)
	require.Len(t, got, 6)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "h", got[5].ID)
}
