package webhook

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/utils"
)

// Projection is the normalised event pushed to SSE subscribers
type Projection struct {
	Event      string `json:"event"`
	Type       string `json:"type"`
	Ts         int64  `json:"ts"`
	PostID     *int64 `json:"postId,omitempty"`
	TopicID    *int64 `json:"topicId,omitempty"`
	CategoryID *int64 `json:"categoryId,omitempty"`
}

type payload struct {
	Post *struct {
		ID         int64 `json:"id"`
		TopicID    int64 `json:"topic_id"`
		CategoryID int64 `json:"category_id"`
	} `json:"post"`
	Topic *struct {
		ID         int64 `json:"id"`
		CategoryID int64 `json:"category_id"`
	} `json:"topic"`
}

// Project builds the projection from the delivery headers and body. A body
// that is not JSON still yields a projection with only event, type and ts.
func Project(header http.Header, body []byte, now time.Time) Projection {
	p := Projection{
		Event: header.Get(HeaderEvent),
		Type:  header.Get(HeaderEventType),
		Ts:    now.UnixMilli(),
	}

	var pl payload
	if err := json.Unmarshal(body, &pl); err != nil {
		return p
	}
	if pl.Post != nil {
		p.PostID = nonZero(pl.Post.ID)
		p.TopicID = nonZero(pl.Post.TopicID)
		p.CategoryID = nonZero(pl.Post.CategoryID)
	}
	if pl.Topic != nil {
		if p.TopicID == nil {
			p.TopicID = nonZero(pl.Topic.ID)
		}
		if p.CategoryID == nil {
			p.CategoryID = nonZero(pl.Topic.CategoryID)
		}
	}
	return p
}

func nonZero(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return utils.Ptr(v)
}
