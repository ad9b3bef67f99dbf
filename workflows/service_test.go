package workflows_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/workflows"
	"github.com/iamcapote/semantic-flow-sub001/workflows/repofakes"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func setup(t *testing.T) (*workflows.Service, context.Context) {
	t.Helper()
	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	prev := workflows.NowTimeFunc
	workflows.NowTimeFunc = func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Minute)
	}
	t.Cleanup(func() { workflows.NowTimeFunc = prev })
	return workflows.NewService(repofakes.NewFakeWorkflowRepo()), context.Background()
}

func sampleInput(title string, public bool) workflows.Input {
	return workflows.Input{
		Title:    title,
		IsPublic: public,
		Tags:     []string{" Graph ", "graph", "", "ontology"},
		Content: &workflows.Content{
			Nodes: []map[string]any{{"id": "n1", "type": "concept", "data": map[string]any{"label": "Idea"}}},
			Edges: []map[string]any{{"id": "e1", "source": "n1", "target": "n1"}},
		},
	}
}

func TestService_Create(t *testing.T) {
	svc, ctx := setup(t)

	w, err := svc.Create(ctx, alice, sampleInput("  My flow  ", false))
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)
	require.Equal(t, "My flow", w.Title)
	require.Equal(t, 1, w.Version)
	require.Equal(t, alice, w.UserID)
	require.Equal(t, []string{"graph", "ontology"}, w.Tags)
	require.Equal(t, 1.0, w.Content.Viewport.Zoom)

	t.Run("title required", func(t *testing.T) {
		_, err := svc.Create(ctx, alice, workflows.Input{Title: "  "})
		require.ErrorIs(t, err, errors.ErrInvalidRequest)
	})

	t.Run("too many tags", func(t *testing.T) {
		in := workflows.Input{Title: "x"}
		for i := 0; i < 21; i++ {
			in.Tags = append(in.Tags, strings.Repeat("t", i+1))
		}
		_, err := svc.Create(ctx, alice, in)
		require.ErrorIs(t, err, errors.ErrInvalidRequest)
	})

	t.Run("empty content is normalised", func(t *testing.T) {
		w, err := svc.Create(ctx, alice, workflows.Input{Title: "empty"})
		require.NoError(t, err)
		require.NotNil(t, w.Content.Nodes)
		require.NotNil(t, w.Content.Edges)
	})
}

func TestService_AccessRules(t *testing.T) {
	svc, ctx := setup(t)

	private, err := svc.Create(ctx, alice, sampleInput("private", false))
	require.NoError(t, err)
	public, err := svc.Create(ctx, alice, sampleInput("public", true))
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, private.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)

	got, err := svc.Get(ctx, bob, public.ID)
	require.NoError(t, err)
	require.Equal(t, "public", got.Title)

	_, err = svc.Update(ctx, bob, workflows.UpdateInput{ID: public.ID, Input: sampleInput("hijack", true)})
	require.ErrorIs(t, err, errors.ErrForbidden)
	_, err = svc.Update(ctx, bob, workflows.UpdateInput{ID: private.ID, Input: sampleInput("hijack", true)})
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, bob, public.ID), errors.ErrForbidden)
}

func TestService_UpdateBumpsVersion(t *testing.T) {
	svc, ctx := setup(t)
	w, err := svc.Create(ctx, alice, sampleInput("v1", false))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, alice, workflows.UpdateInput{ID: w.ID, Version: 1, Input: sampleInput("v2", true)})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	require.Equal(t, "v2", updated.Title)
	require.True(t, updated.UpdatedAt.After(w.UpdatedAt))
	require.Equal(t, w.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, alice, workflows.UpdateInput{ID: w.ID, Version: 1, Input: sampleInput("stale", true)})
	require.ErrorIs(t, err, errors.ErrConflict)

	_, err = svc.Update(ctx, alice, workflows.UpdateInput{ID: "missing", Input: sampleInput("x", true)})
	require.ErrorIs(t, err, errors.ErrNotFound)
}

// slowReadRepo widens the window between reading a workflow and writing it back
type slowReadRepo struct {
	*repofakes.FakeWorkflowRepo
}

func (r slowReadRepo) Get(ctx context.Context, id string) (*workflows.Workflow, error) {
	time.Sleep(5 * time.Millisecond)
	return r.FakeWorkflowRepo.Get(ctx, id)
}

func TestService_ConcurrentUpdatesSameVersion(t *testing.T) {
	svc := workflows.NewService(slowReadRepo{repofakes.NewFakeWorkflowRepo()})
	ctx := context.Background()
	w, err := svc.Create(ctx, alice, sampleInput("v1", false))
	require.NoError(t, err)

	const writers = 10
	var (
		wg        sync.WaitGroup
		accepted  atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Update(ctx, alice, workflows.UpdateInput{ID: w.ID, Version: 1, Input: sampleInput("racer", false)})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, errors.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, accepted.Load())
	require.EqualValues(t, writers-1, conflicts.Load())
	got, err := svc.Get(ctx, alice, w.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Version)
}

func TestFakeRepo_UpdateChecksVersion(t *testing.T) {
	repo := repofakes.NewFakeWorkflowRepo()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, &workflows.Workflow{ID: "w1", Version: 3}))

	require.ErrorIs(t, repo.Update(ctx, &workflows.Workflow{ID: "w1", Version: 3}, 2), errors.ErrConflict)
	require.NoError(t, repo.Update(ctx, &workflows.Workflow{ID: "w1", Version: 4}, 3))
	require.ErrorIs(t, repo.Update(ctx, &workflows.Workflow{ID: "nope", Version: 2}, 1), errors.ErrNotFound)
}

func TestService_ListAndDelete(t *testing.T) {
	svc, ctx := setup(t)
	mine, err := svc.Create(ctx, alice, sampleInput("mine", false))
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, sampleInput("bob public", true))
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, sampleInput("bob private", false))
	require.NoError(t, err)

	list, err := svc.List(ctx, alice, workflows.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = svc.List(ctx, alice, workflows.ListOptions{IncludePublic: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "mine", list[0].Title)
	require.Equal(t, "bob public", list[1].Title)

	require.NoError(t, svc.Delete(ctx, alice, mine.ID))
	_, err = svc.Get(ctx, alice, mine.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestService_ForkAndStar(t *testing.T) {
	svc, ctx := setup(t)
	src, err := svc.Create(ctx, alice, sampleInput("shared", true))
	require.NoError(t, err)

	fork, err := svc.Fork(ctx, bob, src.ID)
	require.NoError(t, err)
	require.NotEqual(t, src.ID, fork.ID)
	require.Equal(t, bob, fork.UserID)
	require.Equal(t, 1, fork.Version)
	require.False(t, fork.IsPublic)
	require.Equal(t, src.ID, fork.ForkedFrom)
	require.Equal(t, "shared (fork)", fork.Title)
	require.Equal(t, src.Content.Nodes, fork.Content.Nodes)

	got, err := svc.Get(ctx, alice, src.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.ForkCount)

	count, err := svc.Star(ctx, bob, src.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	count, err = svc.Star(ctx, alice, src.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = svc.Star(ctx, alice, fork.ID)
	require.ErrorIs(t, err, errors.ErrNotFound, "forks start private")
}

func TestService_Export(t *testing.T) {
	svc, ctx := setup(t)
	w, err := svc.Create(ctx, alice, sampleInput("export me", false))
	require.NoError(t, err)

	out, err := svc.Export(ctx, alice, w.ID, "json")
	require.NoError(t, err)
	var decoded workflows.Workflow
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, w.ID, decoded.ID)

	out, err = svc.Export(ctx, alice, w.ID, "YAML")
	require.NoError(t, err)
	var asYAML map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &asYAML))
	require.Equal(t, "export me", asYAML["title"])

	_, err = svc.Export(ctx, alice, w.ID, "xml")
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	_, err = svc.Export(ctx, bob, w.ID, "json")
	require.ErrorIs(t, err, errors.ErrNotFound)
}
