package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
)

func collect(t *testing.T, ch <-chan driven.StreamToken) []driven.StreamToken {
	t.Helper()
	var out []driven.StreamToken
	for tok := range ch {
		out = append(out, tok)
	}
	return out
}

func newChatServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/chat":
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "user", req.Messages[0].Role)
			if !req.Stream {
				_ = json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: "whole answer"}, Done: true})
				return
			}
			for _, l := range lines {
				fmt.Fprintln(w, l)
			}
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGenerate(t *testing.T) {
	srv := newChatServer(t)
	defer srv.Close()

	g := NewGenerator(Config{BaseURL: srv.URL})
	text, err := g.Generate(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "whole answer", text)
	assert.Equal(t, DefaultModel, g.ModelName())
}

func TestStream(t *testing.T) {
	srv := newChatServer(t,
		`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
		`{"message":{"role":"assistant","content":"lo"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	)
	defer srv.Close()

	ch, err := NewGenerator(Config{BaseURL: srv.URL}).Stream(context.Background(), "hi")
	require.NoError(t, err)
	toks := collect(t, ch)

	require.Len(t, toks, 3)
	assert.Equal(t, "Hel", toks[0].Content)
	assert.Equal(t, "lo", toks[1].Content)
	assert.True(t, toks[2].Done)
}

func TestStream_ErrorLine(t *testing.T) {
	srv := newChatServer(t,
		`{"message":{"content":"par"},"done":false}`,
		`{"error":"model crashed"}`,
	)
	defer srv.Close()

	ch, err := NewGenerator(Config{BaseURL: srv.URL}).Stream(context.Background(), "hi")
	require.NoError(t, err)
	toks := collect(t, ch)

	require.Len(t, toks, 2)
	assert.ErrorContains(t, toks[1].Error, "model crashed")
}

func TestStream_TruncatedIsError(t *testing.T) {
	srv := newChatServer(t, `{"message":{"content":"par"},"done":false}`)
	defer srv.Close()

	ch, err := NewGenerator(Config{BaseURL: srv.URL}).Stream(context.Background(), "hi")
	require.NoError(t, err)
	toks := collect(t, ch)

	require.Len(t, toks, 2)
	assert.Error(t, toks[1].Error)
}

func TestStream_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewGenerator(Config{BaseURL: url}).Stream(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPing(t *testing.T) {
	srv := newChatServer(t)
	defer srv.Close()

	assert.NoError(t, NewGenerator(Config{BaseURL: srv.URL}).Ping(context.Background()))
}
