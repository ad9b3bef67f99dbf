package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamcapote/semantic-flow-sub001/users"
)

const latestBody = `{"topic_list":{"topics":[{"id":7,"title":"Hello"}]},"users":[]}`

func TestLatest_Verbatim(t *testing.T) {
	env := newTestEnv(t, nil)
	var page string
	env.forum.HandleFunc("GET /latest.json", func(w http.ResponseWriter, r *http.Request) {
		page = r.URL.Query().Get("page")
		require.Equal(t, "forum-key", r.Header.Get("Api-Key"))
		_, _ = w.Write([]byte(latestBody))
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, latestBody, rec.Body.String())
	require.Empty(t, page)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/latest?page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", page)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/latest?page=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatest_RetriesThenSucceeds(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls atomic.Int32
	env.forum.HandleFunc("GET /latest.json", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(latestBody))
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, latestBody, rec.Body.String())
	require.EqualValues(t, 3, calls.Load())
}

func TestLatest_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls atomic.Int32
	env.forum.HandleFunc("GET /latest.json", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/latest", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.JSONEq(t, `{"error":"upstream_error"}`, rec.Body.String())
	require.EqualValues(t, 3, calls.Load())
}

func TestLatest_NotRetriedOn404(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls atomic.Int32
	env.forum.HandleFunc("GET /latest.json", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/latest", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.EqualValues(t, 1, calls.Load())
}

func TestTopic(t *testing.T) {
	env := newTestEnv(t, nil)
	env.forum.HandleFunc("GET /t/{id}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "12.json", r.PathValue("id"))
		_, _ = w.Write([]byte(`{"id":12}`))
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/topic/12", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":12}`, rec.Body.String())

	for _, id := range []string{"abc", "0", "-3"} {
		rec = env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/topic/"+id, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestPrivateMessages(t *testing.T) {
	env := newTestEnv(t, nil)
	env.forum.HandleFunc("GET /topics/private-messages/{file}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"inbox":"` + r.PathValue("file") + `"}`))
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/pm/alice", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	l := env.login(alice)
	rec = env.do(l.apply(httptest.NewRequest(http.MethodGet, "/api/discourse/pm/alice", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"inbox":"alice.json"}`, rec.Body.String())

	rec = env.do(l.apply(httptest.NewRequest(http.MethodGet, "/api/discourse/pm/bob", nil)))
	require.Equal(t, http.StatusForbidden, rec.Code)

	admin := env.login(users.Profile{ID: "2", Username: "root", Admin: true})
	rec = env.do(admin.apply(httptest.NewRequest(http.MethodGet, "/api/discourse/pm/bob", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestForumNotConfigured(t *testing.T) {
	env := newTestEnv(t, map[string]string{"DISCOURSE_BASE_URL": ""})

	for _, target := range []string{"/api/discourse/latest", "/api/discourse/topic/1"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusNotImplemented, rec.Code, target)
		require.JSONEq(t, `{"error":"discourse_not_configured"}`, rec.Body.String())
	}

	body := decodeJSON(t, env.do(httptest.NewRequest(http.MethodGet, "/api/config", nil)))
	require.Equal(t, "", body["discourseBaseUrl"])
	require.Equal(t, false, body["aiEnabled"])
}

func TestSeed(t *testing.T) {
	env := newTestEnv(t, nil)
	var created atomic.Bool
	var posted map[string]any
	env.forum.HandleFunc("GET /search.json", func(w http.ResponseWriter, r *http.Request) {
		if created.Load() {
			_, _ = w.Write([]byte(`{"topics":[{"id":99,"title":"Glossary"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"topics":[]}`))
	})
	env.forum.HandleFunc("POST /posts.json", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		created.Store(true)
		_, _ = w.Write([]byte(`{"id":1,"topic_id":99}`))
	})

	l := env.login(alice)
	body := map[string]any{"title": "Glossary", "kind": "context", "body": "Terms.", "tags": []string{"seed"}}

	rec := env.do(l.apply(httptest.NewRequest(http.MethodPost, "/api/discourse/seed", jsonBody(t, body))))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"created":true,"topicId":99}`, rec.Body.String())
	require.Equal(t, "Glossary", posted["title"])
	require.Contains(t, posted["raw"], "author: alice")

	rec = env.do(l.apply(httptest.NewRequest(http.MethodPost, "/api/discourse/seed", jsonBody(t, body))))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"created":false,"topicId":99}`, rec.Body.String())

	noCSRF := login{token: l.token}
	rec = env.do(noCSRF.apply(httptest.NewRequest(http.MethodPost, "/api/discourse/seed", jsonBody(t, body))))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(l.apply(httptest.NewRequest(http.MethodPost, "/api/discourse/seed", jsonBody(t, map[string]any{"title": " "}))))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeeds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.forum.HandleFunc("GET /search.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == `"Glossary" in:title` {
			_, _ = w.Write([]byte(`{"topics":[{"id":99,"title":"glossary"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/seeds?titles=Glossary,Missing", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{"title":"Glossary","topicId":99},{"title":"Missing","topicId":null}]`, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/seeds", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeeds_RequiresAPIKey(t *testing.T) {
	env := newTestEnv(t, map[string]string{"API_KEY": ""})
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/discourse/seeds?titles=a", nil))
	require.Equal(t, http.StatusNotImplemented, rec.Code)
	require.JSONEq(t, `{"error":"discourse_api_key_not_configured"}`, rec.Body.String())
}
