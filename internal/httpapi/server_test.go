package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/pdfchat-server/internal/auth"
	"github.com/bull/pdfchat-server/internal/chat"
	"github.com/bull/pdfchat-server/internal/store"
	"github.com/bull/pdfchat-server/internal/vectordb"
)

// fakeStream yields fixed tokens then completes naturally.
type fakeStream struct {
	tokens  []string
	i       int
	current string
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
func (s *fakeStream) Err() error      { return nil }
func (s *fakeStream) Close() error    { return nil }

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, vectordb.VectorDimension), nil
}

type stubSearcher struct{}

func (stubSearcher) SearchChunks(_ context.Context, documentID string, _ []float32, _ int) ([]vectordb.ScoredChunk, error) {
	return []vectordb.ScoredChunk{
		{Chunk: vectordb.Chunk{DocumentID: documentID, Page: 1, Text: "page one text"}},
	}, nil
}

// stubCompleter records each prompt and answers with a fixed token stream.
type stubCompleter struct {
	tokens  []string
	prompts []chat.Prompt
}

func (c *stubCompleter) Complete(_ context.Context, prompt chat.Prompt) (chat.TokenStream, error) {
	c.prompts = append(c.prompts, prompt)
	return &fakeStream{tokens: append([]string(nil), c.tokens...)}, nil
}

// stubIngestor flips the document to a fixed terminal status, standing in
// for the full pipeline.
type stubIngestor struct {
	docs    *store.DocumentRepo
	outcome store.UploadStatus
	calls   int
}

func (i *stubIngestor) Ingest(ctx context.Context, doc *store.Document) error {
	i.calls++
	return i.docs.SetStatus(ctx, doc.ID, i.outcome)
}

type stubHealth struct{ err error }

func (h stubHealth) Health(context.Context) error { return h.err }

type testEnv struct {
	server    *Server
	docs      *store.DocumentRepo
	msgs      *store.MessageRepo
	ingestor  *stubIngestor
	completer *stubCompleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(":memory:")
	require.NoError(t, err)

	users := store.NewUserRepo(db)
	docs := store.NewDocumentRepo(db)
	msgs := store.NewMessageRepo(db)

	mgr, err := auth.NewManager("test-secret")
	require.NoError(t, err)

	completer := &stubCompleter{tokens: []string{"It is ", "about Go."}}
	generator := chat.NewGenerator(docs, msgs, stubEmbedder{}, stubSearcher{}, completer, nil)
	ingestor := &stubIngestor{docs: docs, outcome: store.StatusSuccess}

	server := NewServer(Config{
		Users:    users,
		Docs:     docs,
		Msgs:     msgs,
		Auth:     mgr,
		Answerer: generator,
		Ingestor: ingestor,
		Health:   stubHealth{},
	})
	// Run ingestion synchronously so handlers can be asserted immediately.
	server.ingestAsync = false

	return &testEnv{
		server:    server,
		docs:      docs,
		msgs:      msgs,
		ingestor:  ingestor,
		completer: completer,
	}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func (e *testEnv) upload(t *testing.T, token, name string) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/uploads/complete", token, gin.H{
		"key":  "k-" + name,
		"name": name,
		"url":  "http://files.example.com/" + name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var doc store.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	return doc.ID
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "alice@example.com")

	w := env.do(http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendMessage_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/message", "", gin.H{
		"documentId": "whatever", "message": "hi",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadIngestChat(t *testing.T) {
	// Upload a document, ingestion succeeds, a question gets a streamed
	// answer and two persisted messages in call order.
	env := newTestEnv(t)
	token := env.register(t, "alice@example.com")

	docID := env.upload(t, token, "report.pdf")
	assert.Equal(t, 1, env.ingestor.calls)

	w := env.do(http.MethodGet, "/api/documents/"+docID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc store.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, store.StatusSuccess, doc.Status)

	w = env.do(http.MethodPost, "/api/message", token, gin.H{
		"documentId": docID,
		"message":    "What is this document about?",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "It is about Go.", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	page, _, err := env.msgs.ListPage(context.Background(), docID, doc.UserID, 10, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Newest first: assistant reply, then the question.
	assert.False(t, page[0].IsUserMessage)
	assert.Equal(t, "It is about Go.", page[0].Text)
	assert.True(t, page[1].IsUserMessage)
	assert.Equal(t, "What is this document about?", page[1].Text)
	assert.False(t, page[1].CreatedAt.After(page[0].CreatedAt))
}

func TestSendMessage_FailedIngestionBlocksChat(t *testing.T) {
	env := newTestEnv(t)
	env.ingestor.outcome = store.StatusFailed
	token := env.register(t, "alice@example.com")

	docID := env.upload(t, token, "huge.pdf")

	w := env.do(http.MethodGet, "/api/documents/"+docID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc store.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, store.StatusFailed, doc.Status)

	w = env.do(http.MethodPost, "/api/message", token, gin.H{
		"documentId": docID, "message": "hello?",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	n, err := env.msgs.CountForDocument(context.Background(), docID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSendMessage_ForeignDocumentIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice@example.com")
	malloryToken := env.register(t, "mallory@example.com")

	docID := env.upload(t, aliceToken, "private.pdf")

	w := env.do(http.MethodPost, "/api/message", malloryToken, gin.H{
		"documentId": docID, "message": "let me in",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// No message rows were created by the rejected request.
	n, err := env.msgs.CountForDocument(context.Background(), docID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSendMessage_SecondCallSeesFirstQuestion(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice@example.com")
	docID := env.upload(t, token, "report.pdf")

	w := env.do(http.MethodPost, "/api/message", token, gin.H{
		"documentId": docID, "message": "first question",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/message", token, gin.H{
		"documentId": docID, "message": "second question",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Read-your-writes: the second call's history window contains the first
	// exchange.
	require.Len(t, env.completer.prompts, 2)
	second := env.completer.prompts[1]
	texts := make([]string, len(second.History))
	for i, msg := range second.History {
		texts[i] = msg.Text
	}
	assert.Contains(t, texts, "first question")
	assert.NotContains(t, texts, "second question")

	n, err := env.msgs.CountForDocument(context.Background(), docID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestListMessages_PaginatesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice@example.com")
	docID := env.upload(t, token, "report.pdf")

	for i := 0; i < 3; i++ {
		w := env.do(http.MethodPost, "/api/message", token, gin.H{
			"documentId": docID, "message": fmt.Sprintf("q%d", i),
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(http.MethodGet, "/api/documents/"+docID+"/messages?limit=4", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages   []store.Message `json:"messages"`
		NextCursor string          `json:"nextCursor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 4)
	assert.NotEmpty(t, resp.NextCursor)
	// Newest first: the last exchange leads.
	assert.False(t, resp.Messages[0].IsUserMessage)
	assert.Equal(t, "q2", resp.Messages[1].Text)

	w = env.do(http.MethodGet, "/api/documents/"+docID+"/messages?limit=4&cursor="+resp.NextCursor, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Empty(t, resp.NextCursor)
}

func TestListDocuments(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice@example.com")

	env.upload(t, token, "one.pdf")
	env.upload(t, token, "two.pdf")

	w := env.do(http.MethodGet, "/api/documents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Documents []store.Document `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Documents, 2)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
