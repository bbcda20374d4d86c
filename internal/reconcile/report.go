// ABOUTME: Auxiliary admin reports: user listing, bot rollout, channel activity.
// ABOUTME: Reporting only; membership semantics live in membership.go.

package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/opsmith-io/wardroom/internal/platform"
)

// ListUsers reports every workspace user as "id | real name | role" lines
// to the invoker. Bots and restricted accounts are included; deleted ones
// are not.
func (e *Engine) ListUsers(ctx context.Context, inv Invoker) error {
	users, err := e.adapter.ListAllUsers(ctx, platform.ListUsersFilter{
		IncludeRestricted: true,
		IncludeBots:       true,
	})
	if err != nil {
		e.notify(ctx, inv, "Could not list workspace users")
		return err
	}

	lines := make([]string, 0, len(users))
	for _, u := range users {
		role := ""
		if u.Admin {
			role = "admin"
		}
		if u.Bot {
			role = "bot"
		}
		lines = append(lines, fmt.Sprintf("%s | %s | %s", u.ID, u.RealName, role))
	}
	e.notify(ctx, inv, strings.Join(lines, "\n"))
	return nil
}

// AddBotEverywhere invites and joins the bot identity into every channel.
// Channels that already have the bot reject benignly.
func (e *Engine) AddBotEverywhere(ctx context.Context, inv Invoker) error {
	bot, err := e.adapter.BotIdentity(ctx)
	if err != nil {
		return err
	}
	channels, err := e.adapter.ListChannels(ctx)
	if err != nil {
		return err
	}

	for _, ch := range channels {
		if err := e.adapter.Invite(ctx, ch, bot); err != nil && !platform.IsBenign(err) {
			e.logger.Warn("bot invite failed", "channel", ch.Name, "error", err)
		}
		if err := e.adapter.Join(ctx, ch); err != nil && !platform.IsBenign(err) {
			e.logger.Warn("bot join failed", "channel", ch.Name, "error", err)
		}
	}

	e.notify(ctx, inv, "Bot added to all channels")
	return nil
}

// HandleChannelCreated invites and joins the bot identity into a freshly
// created public channel. Private channels are left alone.
func (e *Engine) HandleChannelCreated(ctx context.Context, evt platform.ChannelCreatedEvent) error {
	ch, err := e.adapter.ResolveChannel(ctx, evt.Channel.ID)
	if err != nil {
		return err
	}
	if ch.Private {
		return nil
	}
	bot, err := e.adapter.BotIdentity(ctx)
	if err != nil {
		return err
	}
	if err := e.adapter.Invite(ctx, ch, bot); err != nil && !platform.IsBenign(err) {
		e.logger.Warn("bot invite failed", "channel", ch.Name, "error", err)
	}
	if err := e.adapter.Join(ctx, ch); err != nil && !platform.IsBenign(err) {
		return err
	}
	e.logger.Info("joined new channel", "channel", ch.Name)
	return nil
}

// ActivityReport summarizes per-user first and last activity in a channel
// from its message history. Requires a history-capable adapter.
func (e *Engine) ActivityReport(ctx context.Context, channelRef string, inv Invoker) error {
	if e.history == nil {
		e.notify(ctx, inv, "Activity reporting is not available")
		return nil
	}

	ch, err := e.adapter.ResolveChannel(ctx, channelRef)
	if err != nil {
		e.notify(ctx, inv, fmt.Sprintf("Channel %s not found", channelRef))
		return err
	}

	msgs, err := e.history.ListChannelMessages(ctx, ch.ID)
	if err != nil {
		e.notify(ctx, inv, "Could not read channel history")
		return err
	}

	type span struct{ first, last platform.MessagePost }
	spans := make(map[platform.UserID]*span)
	var order []platform.UserID
	for _, msg := range msgs {
		s, ok := spans[msg.UserID]
		if !ok {
			spans[msg.UserID] = &span{first: msg, last: msg}
			order = append(order, msg.UserID)
			continue
		}
		if msg.Posted.Before(s.first.Posted) {
			s.first = msg
		}
		if msg.Posted.After(s.last.Posted) {
			s.last = msg
		}
	}

	lines := make([]string, 0, len(order))
	for _, id := range order {
		s := spans[id]
		lines = append(lines, fmt.Sprintf("%s | first %s | last %s",
			id, s.first.Posted.Format("2006-01-02"), s.last.Posted.Format("2006-01-02")))
	}
	if len(lines) == 0 {
		e.notify(ctx, inv, "No activity found")
		return nil
	}
	e.notify(ctx, inv, strings.Join(lines, "\n"))
	return nil
}
