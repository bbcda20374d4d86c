// ABOUTME: Messaging operations of the Slack adapter.
// ABOUTME: Ephemeral notices, posts, updates, and idempotent message deletion.

package slack

import (
	"context"
	"errors"

	slackapi "github.com/slack-go/slack"

	"github.com/opsmith-io/wardroom/internal/platform"
)

// PostEphemeral sends a channel message visible only to the recipient.
func (c *Client) PostEphemeral(ctx context.Context, channelID string, recipient platform.UserID, text string) error {
	return c.mutate(ctx, func() error {
		_, callErr := c.bot.PostEphemeralContext(ctx, channelID, string(recipient),
			slackapi.MsgOptionText(text, false))
		return callErr
	})
}

// PostMessage posts a message and returns its reference.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) (platform.MessageRef, error) {
	var ts string
	err := c.mutate(ctx, func() error {
		var callErr error
		_, ts, callErr = c.bot.PostMessageContext(ctx, channelID,
			slackapi.MsgOptionText(text, false))
		return callErr
	})
	if err != nil {
		return platform.MessageRef{}, err
	}
	return platform.MessageRef{ChannelID: channelID, Timestamp: ts}, nil
}

// UpdateMessage rewrites a previously posted message. A vanished message
// is a benign reject.
func (c *Client) UpdateMessage(ctx context.Context, ref platform.MessageRef, text string) error {
	return c.mutate(ctx, func() error {
		_, _, _, callErr := c.bot.UpdateMessageContext(ctx, ref.ChannelID, ref.Timestamp,
			slackapi.MsgOptionText(text, false))
		return callErr
	})
}

// DeleteMessage deletes a posted message. The bot API can only delete its
// own posts, so user uploads fall back to the admin access API; an
// already-deleted message is benign either way.
func (c *Client) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	err := c.mutate(ctx, func() error {
		_, _, callErr := c.bot.DeleteMessageContext(ctx, ref.ChannelID, ref.Timestamp)
		return callErr
	})
	if err == nil || platform.IsBenign(err) {
		return err
	}

	var pe *platform.Error
	if errors.As(err, &pe) && pe.Code == "cant_delete_message" {
		return c.mutate(ctx, func() error {
			_, _, callErr := c.access.DeleteMessageContext(ctx, ref.ChannelID, ref.Timestamp)
			return callErr
		})
	}
	return err
}
