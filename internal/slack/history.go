// ABOUTME: Paginated channel history for auxiliary activity reporting.
// ABOUTME: Bounded backoff retries per page; gives up with a partial result.

package slack

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	slackapi "github.com/slack-go/slack"

	"github.com/opsmith-io/wardroom/internal/platform"
)

// historyPageRetries bounds per-page retry attempts before the pagination
// gives up and returns what it has.
const historyPageRetries = 5

// ListChannelMessages walks a channel's history and returns the plain user
// messages, newest first. Pages that keep failing after bounded backoff
// are skipped; the partial result is returned rather than an error. Not
// used by the reconciliation or intake hot paths.
func (c *Client) ListChannelMessages(ctx context.Context, channelID string) ([]platform.MessagePost, error) {
	var out []platform.MessagePost
	cursor := ""

	for {
		var resp *slackapi.GetConversationHistoryResponse
		op := func() error {
			var callErr error
			resp, callErr = c.access.GetConversationHistoryContext(ctx, &slackapi.GetConversationHistoryParameters{
				ChannelID: channelID,
				Limit:     1000,
				Cursor:    cursor,
			})
			if callErr != nil {
				return callErr
			}
			return nil
		}

		err := backoff.Retry(op, backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), historyPageRetries), ctx))
		if err != nil {
			c.logger.Warn("history pagination giving up, returning partial result",
				"channel_id", channelID,
				"collected", len(out),
				"error", err)
			return out, nil
		}

		for _, msg := range resp.Messages {
			if msg.Type != "message" || msg.User == "" || msg.SubType != "" {
				continue
			}
			out = append(out, platform.MessagePost{
				UserID:    platform.UserID(msg.User),
				Timestamp: msg.Timestamp,
				Posted:    parseSlackTimestamp(msg.Timestamp),
			})
		}

		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			return out, nil
		}
		cursor = resp.ResponseMetaData.NextCursor
	}
}

// parseSlackTimestamp converts a "1234567890.123456" message timestamp to
// wall-clock time, second precision.
func parseSlackTimestamp(ts string) time.Time {
	secs, _, _ := strings.Cut(ts, ".")
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
