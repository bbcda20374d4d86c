// ABOUTME: Slack Web API implementation of the platform.Adapter contract.
// ABOUTME: Channels, users, and membership mutation through the shared limiter.

package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	slackapi "github.com/slack-go/slack"

	"github.com/opsmith-io/wardroom/internal/limiter"
	"github.com/opsmith-io/wardroom/internal/platform"
)

// maxTransientRetries bounds retries of rate-limited or network failures
// before the error surfaces to the caller.
const maxTransientRetries = 5

// Client implements platform.Adapter against a Slack workspace. The access
// API carries the admin scopes (invite, kick, create, list); the bot API
// posts messages and owns the bot identity. All mutating calls go through
// the injected gate.
type Client struct {
	access *slackapi.Client
	bot    *slackapi.Client
	gate   *limiter.Gate
	logger *slog.Logger

	mu          sync.Mutex
	botIdentity platform.UserID
}

// New creates a client from the workspace tokens. The gate is shared
// process-wide; every engine mutating the workspace goes through it.
func New(accessToken, botToken string, gate *limiter.Gate, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		access: slackapi.New(accessToken),
		bot:    slackapi.New(botToken),
		gate:   gate,
		logger: logger.With("component", "slack"),
	}
}

// classify maps a slack-go error onto the platform taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rle *slackapi.RateLimitedError
	if errors.As(err, &rle) {
		return platform.NewError(platform.KindTransient, "ratelimited", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return platform.NewError(platform.KindTransient, "network", err)
	}
	code := err.Error()
	switch {
	case platform.BenignCode(code):
		return platform.NewError(platform.KindBenign, code, err)
	case code == "channel_not_found" || code == "user_not_found" || code == "file_not_found":
		return platform.NewError(platform.KindNotFound, code, err)
	default:
		return platform.NewError(platform.KindUnexpected, code, err)
	}
}

// withRetry runs call, retrying transient failures with exponential backoff
// up to maxTransientRetries attempts. Rate-limit responses wait out the
// server-specified delay first.
func (c *Client) withRetry(ctx context.Context, call func() error) error {
	op := func() error {
		err := call()
		if err == nil {
			return nil
		}
		var rle *slackapi.RateLimitedError
		if errors.As(err, &rle) {
			select {
			case <-time.After(rle.RetryAfter):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		classified := classify(err)
		if platform.Classify(classified) == platform.KindTransient {
			return err
		}
		return backoff.Permanent(classified)
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxTransientRetries), ctx))
	if err == nil {
		return nil
	}
	var pe *platform.Error
	if errors.As(err, &pe) {
		return pe
	}
	return classify(err)
}

// mutate gates and retries a mutating platform call.
func (c *Client) mutate(ctx context.Context, call func() error) error {
	if err := c.gate.Wait(ctx); err != nil {
		return platform.NewError(platform.KindUnexpected, "", err)
	}
	return c.withRetry(ctx, call)
}

// ListChannels returns all non-archived public and private channels,
// following pagination cursors.
func (c *Client) ListChannels(ctx context.Context) ([]platform.Channel, error) {
	var out []platform.Channel
	cursor := ""
	for {
		var page []slackapi.Channel
		var next string
		err := c.withRetry(ctx, func() error {
			var callErr error
			page, next, callErr = c.access.GetConversationsContext(ctx, &slackapi.GetConversationsParameters{
				Types:           []string{"public_channel", "private_channel"},
				ExcludeArchived: true,
				Limit:           1000,
				Cursor:          cursor,
			})
			return callErr
		})
		if err != nil {
			return nil, err
		}
		for _, ch := range page {
			out = append(out, toChannel(ch))
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

// ResolveChannel resolves an ID or name against the current channel
// listing. Exact ID match wins, then first substring name match.
func (c *Client) ResolveChannel(ctx context.Context, idOrName string) (platform.Channel, error) {
	channels, err := c.ListChannels(ctx)
	if err != nil {
		return platform.Channel{}, err
	}
	ch, ok := platform.FindChannel(channels, idOrName)
	if !ok {
		return platform.Channel{}, platform.NewError(platform.KindNotFound, "channel_not_found",
			fmt.Errorf("no channel matching %q", idOrName))
	}
	return ch, nil
}

// CreateChannel creates a channel.
func (c *Client) CreateChannel(ctx context.Context, name string, private bool) (platform.Channel, error) {
	var created *slackapi.Channel
	err := c.mutate(ctx, func() error {
		var callErr error
		created, callErr = c.access.CreateConversationContext(ctx, slackapi.CreateConversationParams{
			ChannelName: name,
			IsPrivate:   private,
		})
		return callErr
	})
	if err != nil {
		return platform.Channel{}, err
	}
	return toChannel(*created), nil
}

// ListMembers returns the raw member IDs of a channel, following cursors.
func (c *Client) ListMembers(ctx context.Context, channelID string) ([]platform.UserID, error) {
	var out []platform.UserID
	cursor := ""
	for {
		var page []string
		var next string
		err := c.withRetry(ctx, func() error {
			var callErr error
			page, next, callErr = c.access.GetUsersInConversationContext(ctx, &slackapi.GetUsersInConversationParameters{
				ChannelID: channelID,
				Limit:     500,
				Cursor:    cursor,
			})
			return callErr
		})
		if err != nil {
			return nil, err
		}
		for _, id := range page {
			out = append(out, platform.UserID(id))
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

// ListAllUsers returns workspace users matching the filter. The system
// user is always excluded.
func (c *Client) ListAllUsers(ctx context.Context, filter platform.ListUsersFilter) ([]platform.User, error) {
	var raw []slackapi.User
	err := c.withRetry(ctx, func() error {
		var callErr error
		raw, callErr = c.access.GetUsersContext(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	out := make([]platform.User, 0, len(raw))
	for _, u := range raw {
		out = append(out, toUser(u))
	}
	return platform.MembershipSet(out, filter), nil
}

// GetUser returns a single user.
func (c *Client) GetUser(ctx context.Context, id platform.UserID) (platform.User, error) {
	var raw *slackapi.User
	err := c.withRetry(ctx, func() error {
		var callErr error
		raw, callErr = c.access.GetUserInfoContext(ctx, string(id))
		return callErr
	})
	if err != nil {
		return platform.User{}, err
	}
	return toUser(*raw), nil
}

// Invite invites a single user into a channel. Inviting the bot identity
// itself falls back to joining the channel, mirroring the platform's
// cant_invite_self contract.
func (c *Client) Invite(ctx context.Context, channel platform.Channel, id platform.UserID) error {
	err := c.mutate(ctx, func() error {
		_, callErr := c.access.InviteUsersToConversationContext(ctx, channel.ID, string(id))
		return callErr
	})
	var pe *platform.Error
	if errors.As(err, &pe) && (pe.Code == "cant_invite_self" || pe.Code == "cannot_invite_self") {
		if joinErr := c.Join(ctx, channel); joinErr != nil && !platform.IsBenign(joinErr) {
			c.logger.Debug("self-invite join fallback failed",
				"channel", channel.Name,
				"error", joinErr)
		}
		return nil
	}
	return err
}

// Kick removes a user from a channel.
func (c *Client) Kick(ctx context.Context, channel platform.Channel, id platform.UserID) error {
	return c.mutate(ctx, func() error {
		return c.access.KickUserFromConversationContext(ctx, channel.ID, string(id))
	})
}

// Join joins the bot itself into a channel.
func (c *Client) Join(ctx context.Context, channel platform.Channel) error {
	return c.mutate(ctx, func() error {
		_, _, _, callErr := c.bot.JoinConversationContext(ctx, channel.ID)
		return callErr
	})
}

// BotIdentity returns the bot's own user ID, resolving it once and caching
// it for the process lifetime.
func (c *Client) BotIdentity(ctx context.Context) (platform.UserID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.botIdentity != "" {
		return c.botIdentity, nil
	}

	var resp *slackapi.AuthTestResponse
	err := c.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.bot.AuthTestContext(ctx)
		return callErr
	})
	if err != nil {
		return "", err
	}
	c.botIdentity = platform.UserID(resp.UserID)
	return c.botIdentity, nil
}

func toChannel(ch slackapi.Channel) platform.Channel {
	return platform.Channel{
		ID:       ch.ID,
		Name:     ch.Name,
		Private:  ch.IsPrivate,
		Archived: ch.IsArchived,
	}
}

func toUser(u slackapi.User) platform.User {
	return platform.User{
		ID:         platform.UserID(u.ID),
		Name:       u.Name,
		RealName:   u.RealName,
		Admin:      u.IsAdmin,
		Bot:        u.IsBot,
		Restricted: u.IsRestricted || u.IsUltraRestricted,
		Deleted:    u.Deleted,
	}
}
