package groupme

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
)

// Messages returns the history of groupID newest first. Pages are fetched on
// demand, so a consumer that stops early never triggers further requests.
// A request error is yielded once and ends the sequence.
func (c *Client) Messages(ctx context.Context, groupID string) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		path := "/groups/" + url.PathEscape(groupID) + "/messages"
		beforeID := ""
		for {
			q := url.Values{"limit": {strconv.Itoa(pageSize)}}
			if beforeID != "" {
				q.Set("before_id", beforeID)
			}

			var page messagesPage
			err := c.do(ctx, http.MethodGet, path, q, nil, &page)
			if errors.Is(err, errNotModified) {
				return
			}
			if err != nil {
				yield(Message{}, fmt.Errorf("fetching messages of group %s: %w", groupID, err))
				return
			}
			if len(page.Messages) == 0 {
				return
			}

			for _, m := range page.Messages {
				if !yield(m, nil) {
					return
				}
			}
			beforeID = page.Messages[len(page.Messages)-1].ID
		}
	}
}
