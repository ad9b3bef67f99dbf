package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeLLM(t *testing.T, status int, reply string) (*httptest.Server, *http.Header) {
	t.Helper()
	seen := &http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = r.Header.Clone()
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "m1", body["model"])
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func chatRequest(t *testing.T, l login, body map[string]any, key string) *http.Request {
	req := l.apply(httptest.NewRequest(http.MethodPost, "/api/llm/chat", jsonBody(t, body)))
	if key != "" {
		req.Header.Set("X-Provider-Key", key)
	}
	return req
}

func TestLLMChat(t *testing.T) {
	env := newTestEnv(t, nil)
	llm, seen := fakeLLM(t, http.StatusOK, `{"choices":[{"message":{"content":"hi"}}]}`)
	l := env.login(alice)

	body := map[string]any{
		"baseUrl":  llm.URL + "/v1",
		"model":    "m1",
		"messages": []map[string]string{{"role": "user", "content": "hello"}},
	}
	rec := env.do(chatRequest(t, l, body, "sk-test"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"choices":[{"message":{"content":"hi"}}]}`, rec.Body.String())
	require.Equal(t, "Bearer sk-test", seen.Get("Authorization"))
	require.Empty(t, seen.Get("Cookie"))

	rec = env.do(chatRequest(t, l, body, ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(chatRequest(t, login{}, body, "sk-test"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(chatRequest(t, login{token: l.token}, body, "sk-test"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLLMChat_StoredProvider(t *testing.T) {
	env := newTestEnv(t, nil)
	llm, _ := fakeLLM(t, http.StatusOK, "data: {}\n\ndata: [DONE]\n\n")
	l := env.login(alice)

	p := resultData(t, env.trpcMutation(l, "provider.create", map[string]any{"name": "Local", "baseUrl": llm.URL + "/v1"})).(map[string]any)

	body := map[string]any{
		"providerId": p["id"],
		"model":      "m1",
		"stream":     true,
		"messages":   []map[string]string{{"role": "user", "content": "hello"}},
	}
	rec := env.do(chatRequest(t, l, body, "sk-test"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "data: {}\n\ndata: [DONE]\n\n", rec.Body.String())

	// Providers are private to their owner
	rec = env.do(chatRequest(t, env.login(bobProfile), body, "sk-test"))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLLMChat_UpstreamRejects(t *testing.T) {
	env := newTestEnv(t, nil)
	llm, _ := fakeLLM(t, http.StatusUnauthorized, `{"error":"bad key"}`)

	body := map[string]any{
		"baseUrl":  llm.URL + "/v1",
		"model":    "m1",
		"messages": []map[string]string{{"role": "user", "content": "hello"}},
	}
	rec := env.do(chatRequest(t, env.login(alice), body, "sk-wrong"))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.JSONEq(t, `{"error":"upstream_error","status":401}`, rec.Body.String())
}
