package discourse

import (
	"context"
	"net/url"
	"regexp"
	"strconv"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,60}$`)

// Latest returns /latest.json verbatim. page is passed through when positive.
func (c *Client) Latest(ctx context.Context, page int) ([]byte, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	return c.GetJSON(ctx, "/latest.json", query)
}

// Topic returns /t/{id}.json verbatim
func (c *Client) Topic(ctx context.Context, id int64) ([]byte, error) {
	if id <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "topic id must be positive")
	}
	return c.GetJSON(ctx, "/t/"+strconv.FormatInt(id, 10)+".json", nil)
}

// PrivateMessages returns the PM inbox of username verbatim
func (c *Client) PrivateMessages(ctx context.Context, username string) ([]byte, error) {
	if !ValidUsername(username) {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid username")
	}
	return c.GetJSON(ctx, "/topics/private-messages/"+url.PathEscape(username)+".json", nil)
}

// ValidUsername reports whether s is usable as a forum username path segment
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ParseTopicID parses a positive numeric topic id
func ParseTopicID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(errors.ErrInvalidRequest, "topic id must be a positive integer")
	}
	return id, nil
}
