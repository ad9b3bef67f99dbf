package discourse_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/discourse"
	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures requested delays without waiting
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, handler http.Handler, apiKey string) (*discourse.Client, *recordingSleep) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sleeper := &recordingSleep{}
	c, err := discourse.New(discourse.Options{
		BaseURL:     srv.URL + "/",
		APIKey:      apiKey,
		APIUsername: "system",
		HTTPClient:  srv.Client(),
		Sleep:       sleeper.Sleep,
	})
	require.NoError(t, err)
	return c, sleeper
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := discourse.New(discourse.Options{})
	require.ErrorIs(t, err, errors.ErrNotConfigured)
}

func TestGetJSON_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, sleeper := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= 2 {
			if n == 1 {
				w.Header().Set("Retry-After", "1")
			}
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"topic_list":{"topics":[]}}`))
	}), "")

	body, err := c.GetJSON(context.Background(), "/latest.json", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"topic_list":{"topics":[]}}`, string(body))
	require.EqualValues(t, 3, calls.Load())
	// First delay from Retry-After, second from exponential backoff
	require.Equal(t, []time.Duration{time.Second, 500 * time.Millisecond}, sleeper.delays)
}

func TestGetJSON_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c, sleeper := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), "")

	_, err := c.GetJSON(context.Background(), "/latest.json", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrUpstream)

	var upstream *errors.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, http.StatusServiceUnavailable, upstream.Status)
	require.EqualValues(t, discourse.MaxAttempts, calls.Load())
	require.Len(t, sleeper.delays, discourse.MaxAttempts-1)
}

func TestGetJSON_NonRetryableFailsFast(t *testing.T) {
	var calls atomic.Int32
	c, sleeper := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"errors":["not found"]}`, http.StatusNotFound)
	}), "")

	_, err := c.GetJSON(context.Background(), "/t/1.json", nil)
	var upstream *errors.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, http.StatusNotFound, upstream.Status)
	require.EqualValues(t, 1, calls.Load())
	require.Empty(t, sleeper.delays)
}

func TestGetJSON_StopsOnCancelledContext(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetJSON(ctx, "/latest.json", nil)
	require.Error(t, err)
}

func TestGetJSON_SendsAPIHeaders(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key-1", r.Header.Get("Api-Key"))
		require.Equal(t, "system", r.Header.Get("Api-Username"))
		require.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{}`))
	}), "key-1")

	_, err := c.Latest(context.Background(), 2)
	require.NoError(t, err)
}

func TestTopicAndInboxValidation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/t/12.json":
			_, _ = w.Write([]byte(`{"id":12}`))
		case "/topics/private-messages/alice.json":
			_, _ = w.Write([]byte(`{"topic_list":{}}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}), "")

	body, err := c.Topic(context.Background(), 12)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":12}`, string(body))

	_, err = c.Topic(context.Background(), 0)
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	_, err = c.PrivateMessages(context.Background(), "alice")
	require.NoError(t, err)

	_, err = c.PrivateMessages(context.Background(), "../admin")
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	_, err = discourse.ParseTopicID("abc")
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
	id, err := discourse.ParseTopicID("77")
	require.NoError(t, err)
	require.EqualValues(t, 77, id)
}

func TestStreamReply(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req discourse.StreamRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Query == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: hello\n\n")
	}), "key")

	resp, err := c.StreamReply(context.Background(), discourse.StreamRequest{PersonaID: 1, Query: "hi"})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "data: hello\n\n", string(body))

	_, err = c.StreamReply(context.Background(), discourse.StreamRequest{PersonaID: 1, Query: "fail"})
	require.ErrorIs(t, err, errors.ErrUpstream)

	_, err = c.StreamReply(context.Background(), discourse.StreamRequest{Query: "hi"})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestAIRequiresAPIKey(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler(), "")
	_, err := c.Search(context.Background(), "graphs")
	require.ErrorIs(t, err, errors.ErrNotConfigured)
	_, err = c.Personas(context.Background())
	require.ErrorIs(t, err, errors.ErrNotConfigured)
	_, err = c.Seed(context.Background(), discourse.SeedRequest{Title: "x"}, "alice", 0)
	require.ErrorIs(t, err, errors.ErrNotConfigured)
}

func TestSearch(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/discourse-ai/embeddings/semantic-search.json", r.URL.Path)
		require.Equal(t, "knowledge graphs", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"topics":[{"id":3}]}`))
	}), "key")

	body, err := c.Search(context.Background(), "  knowledge graphs ")
	require.NoError(t, err)
	require.JSONEq(t, `{"topics":[{"id":3}]}`, string(body))

	_, err = c.Search(context.Background(), " ")
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestPostJSON_UpstreamError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 10), http.StatusUnprocessableEntity)
	}), "key")

	_, err := c.PostJSON(context.Background(), "/posts.json", map[string]string{"raw": "x"})
	var upstream *errors.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, http.StatusUnprocessableEntity, upstream.Status)
}
