package webhook_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/webhook"
	"github.com/stretchr/testify/require"
)

const testSecret = "hook-secret"

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"post":{"id":1}}`)

	require.NoError(t, webhook.VerifySignature(testSecret, body, webhook.Sign(testSecret, body)))

	cases := map[string]string{
		"missing":      "",
		"no prefix":    webhook.Sign(testSecret, body)[len("sha256="):],
		"not hex":      "sha256=zz",
		"other secret": webhook.Sign("other", body),
		"other body":   webhook.Sign(testSecret, []byte(`{}`)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, webhook.VerifySignature(testSecret, body, header), errors.ErrInvalidSignature)
		})
	}

	require.ErrorIs(t, webhook.VerifySignature("", body, webhook.Sign(testSecret, body)), errors.ErrNotConfigured)
}

func TestMemoryDeduper(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := webhook.NowTimeFunc
	webhook.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { webhook.NowTimeFunc = prev })

	ctx := context.Background()
	d := webhook.NewMemoryDeduper(2*time.Minute, 3)
	key := webhook.BodyHash([]byte("same body"))

	seen, err := d.Seen(ctx, key)
	require.NoError(t, err)
	require.False(t, seen)

	now = now.Add(119 * time.Second)
	seen, err = d.Seen(ctx, key)
	require.NoError(t, err)
	require.True(t, seen, "repeat inside the window is a duplicate")

	now = now.Add(2 * time.Second)
	seen, err = d.Seen(ctx, key)
	require.NoError(t, err)
	require.False(t, seen, "window has passed")

	t.Run("sweeps expired entries once past the threshold", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := d.Seen(ctx, fmt.Sprintf("old-%d", i))
			require.NoError(t, err)
		}
		require.Equal(t, 4, d.Len())

		now = now.Add(3 * time.Minute)
		_, err := d.Seen(ctx, "fresh")
		require.NoError(t, err)
		require.Equal(t, 1, d.Len())
	})
}

func TestProject(t *testing.T) {
	header := http.Header{}
	header.Set(webhook.HeaderEvent, "post_created")
	header.Set(webhook.HeaderEventType, "post")
	now := time.UnixMilli(1_700_000_000_000)

	p := webhook.Project(header, []byte(`{"post":{"id":5,"topic_id":6,"category_id":7}}`), now)
	require.Equal(t, "post_created", p.Event)
	require.Equal(t, "post", p.Type)
	require.EqualValues(t, 1_700_000_000_000, p.Ts)
	require.EqualValues(t, 5, *p.PostID)
	require.EqualValues(t, 6, *p.TopicID)
	require.EqualValues(t, 7, *p.CategoryID)

	p = webhook.Project(header, []byte(`{"topic":{"id":9,"category_id":2}}`), now)
	require.Nil(t, p.PostID)
	require.EqualValues(t, 9, *p.TopicID)
	require.EqualValues(t, 2, *p.CategoryID)

	p = webhook.Project(header, []byte(`not json`), now)
	require.Nil(t, p.TopicID)
	require.Equal(t, "post_created", p.Event)
}
