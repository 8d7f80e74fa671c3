package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompts_EmbeddedAndOverride(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)
	out, err := p.Render(PromptSummary, map[string]string{"title": "Intro", "file_type": "pdf"})
	require.NoError(t, err)
	assert.Contains(t, out, `pdf document "Intro"`)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "combine.tmpl"), []byte("merge {{.title}}{{.missing}}"), 0o644))
	p, err = LoadPrompts(dir)
	require.NoError(t, err)
	out, err = p.Render(PromptCombine, map[string]string{"title": "X"})
	require.NoError(t, err)
	assert.Equal(t, "merge X", out)

	_, err = p.Render("nope", nil)
	assert.Error(t, err)
}

func TestLoadPrompts_BadTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunk.tmpl"), []byte("{{.broken"), 0o644))
	_, err := LoadPrompts(dir)
	assert.Error(t, err)
}

func TestChunked_SingleChunk(t *testing.T) {
	prompts, err := LoadPrompts("")
	require.NoError(t, err)

	var got Request
	inner := Func(func(_ context.Context, req Request) (*Response, error) {
		got = req
		return &Response{Text: "summary", Tokens: 7}, nil
	})
	c := NewChunked(inner, prompts, ChunkedConfig{MaxChunkChars: 1000})

	resp, err := c.Summarize(context.Background(), Request{
		Text:      "short text",
		Prompt:    "Custom for {{.title}}",
		Variables: map[string]string{"title": "T"},
	})
	require.NoError(t, err)
	assert.Equal(t, "summary", resp.Text)
	assert.Equal(t, 7, resp.Tokens)
	assert.Equal(t, "Custom for T", got.Prompt)
	assert.Equal(t, "short text", got.Text)
}

func TestChunked_EmptyTextSkipsCall(t *testing.T) {
	prompts, err := LoadPrompts("")
	require.NoError(t, err)
	inner := Func(func(context.Context, Request) (*Response, error) {
		t.Fatal("summarizer must not be called")
		return nil, nil
	})
	resp, err := NewChunked(inner, prompts, ChunkedConfig{}).Summarize(context.Background(), Request{Text: "  "})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}

func TestChunked_FanOutAndCombine(t *testing.T) {
	prompts, err := LoadPrompts("")
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		calls    []Request
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	inner := Func(func(_ context.Context, req Request) (*Response, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		mu.Lock()
		calls = append(calls, req)
		mu.Unlock()
		if strings.Contains(req.Prompt, "partial summaries") {
			return &Response{Text: "combined", Tokens: 100}, nil
		}
		return &Response{Text: "part:" + req.Variables["chunk_index"], Tokens: 10}, nil
	})

	text := strings.Repeat("word ", 100)
	c := NewChunked(inner, prompts, ChunkedConfig{MaxChunkChars: 100, MaxParallelism: 2})
	resp, err := c.Summarize(context.Background(), Request{Text: text, Variables: map[string]string{"title": "T"}})
	require.NoError(t, err)

	chunkCalls := len(calls) - 1
	assert.Greater(t, chunkCalls, 1)
	assert.Equal(t, "combined", resp.Text)
	assert.Equal(t, 100+10*chunkCalls, resp.Tokens)
	assert.LessOrEqual(t, peak.Load(), int32(2))

	last := calls[len(calls)-1]
	assert.True(t, strings.HasPrefix(last.Text, "part:1\n\npart:2"))
}

func TestChunked_ChunkErrorAborts(t *testing.T) {
	prompts, err := LoadPrompts("")
	require.NoError(t, err)
	boom := errors.New("boom")
	inner := Func(func(_ context.Context, req Request) (*Response, error) {
		if req.Variables["chunk_index"] == "2" {
			return nil, boom
		}
		return &Response{Text: "ok"}, nil
	})
	c := NewChunked(inner, prompts, ChunkedConfig{MaxChunkChars: 50, MaxParallelism: 4})
	_, err = c.Summarize(context.Background(), Request{Text: strings.Repeat("word ", 60)})
	assert.ErrorIs(t, err, boom)
}

func TestOpenAI_ChatCompletion(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  the summary \n"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "m"})
	resp, err := o.Summarize(context.Background(), Request{Text: "doc text", Prompt: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "the summary", resp.Text)
	assert.Equal(t, 5, resp.Tokens)

	assert.Equal(t, "m", body.Model)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "be brief", body.Messages[0].Content)
	assert.Equal(t, "doc text", body.Messages[1].Content)
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server_error"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
	_, err := o.Summarize(context.Background(), Request{Text: "x"})
	assert.Error(t, err)
}
