// ABOUTME: Reconciliation operations: fill, mirror, prune, empty, invite, create.
// ABOUTME: Each computes a set difference and applies it as a best-effort batch.

package reconcile

import (
	"context"
	"fmt"

	"github.com/opsmith-io/wardroom/internal/platform"
)

// Fill invites every qualifying workspace user missing from the channel.
// The desired set is the workspace membership set minus the bot identity;
// the batch is exactly desired minus actual.
func (e *Engine) Fill(ctx context.Context, channelRef string, inv Invoker) error {
	ch, err := e.adapter.ResolveChannel(ctx, channelRef)
	if err != nil {
		e.notify(ctx, inv, fmt.Sprintf("Channel %s not found", channelRef))
		return err
	}
	return e.fillResolved(ctx, ch, inv)
}

func (e *Engine) fillResolved(ctx context.Context, ch platform.Channel, inv Invoker) error {
	users, err := e.adapter.ListAllUsers(ctx, platform.ListUsersFilter{})
	if err != nil {
		e.notify(ctx, inv, "Could not list workspace users")
		return err
	}
	desired := make([]platform.UserID, 0, len(users))
	for _, u := range users {
		desired = append(desired, u.ID)
	}

	if bot, err := e.adapter.BotIdentity(ctx); err == nil {
		desired = platform.Difference(desired, []platform.UserID{bot})
	}

	actual, err := e.adapter.ListMembers(ctx, ch.ID)
	if err != nil {
		e.notify(ctx, inv, "Could not list channel members")
		return err
	}

	diff := platform.Difference(desired, actual)
	if len(diff) == 0 {
		e.notify(ctx, inv, "No one to invite")
		return nil
	}

	res := e.inviteBatch(ctx, ch, diff, inviteParallelism)
	e.logger.Info("channel filled",
		"channel", ch.Name,
		"invited", res.applied,
		"benign", res.benign,
		"failed", res.failed)
	e.notify(ctx, inv, "Channel filled")
	return nil
}

// Mirror invites the qualifying members of the source channel into the
// target channel.
func (e *Engine) Mirror(ctx context.Context, sourceRef, targetRef string, inv Invoker) error {
	source, err := e.adapter.ResolveChannel(ctx, sourceRef)
	if err != nil {
		e.notify(ctx, inv, fmt.Sprintf("Channel %s not found", sourceRef))
		return err
	}
	target, err := e.adapter.ResolveChannel(ctx, targetRef)
	if err != nil {
		e.notify(ctx, inv, fmt.Sprintf("Channel %s not found", targetRef))
		return err
	}

	desired, err := e.qualifyingMembers(ctx, source.ID)
	if err != nil {
		e.notify(ctx, inv, "Could not list channel members")
		return err
	}
	actual, err := e.adapter.ListMembers(ctx, target.ID)
	if err != nil {
		return err
	}

	diff := platform.Difference(desired, actual)
	if len(diff) == 0 {
		e.notify(ctx, inv, "No one to invite")
		return nil
	}

	res := e.inviteBatch(ctx, target, diff, inviteParallelism)
	e.logger.Info("channel mirrored",
		"source", source.Name,
		"target", target.Name,
		"invited", res.applied,
		"failed", res.failed)
	e.notify(ctx, inv, "Channel mirrored")
	return nil
}

// Prune kicks every channel member not on the keep list, except admins,
// the invoking user, and the bot identity. Kicks run with bounded
// concurrency; one failed kick never aborts the rest.
func (e *Engine) Prune(ctx context.Context, channelRef, keepCSV string, inv Invoker) error {
	res, err := e.prune(ctx, channelRef, platform.ParseUserIDs(keepCSV), inv, kickParallelism)
	if err != nil {
		return err
	}
	e.logger.Info("channel pruned", "kicked", res.applied, "failed", res.failed)
	e.notify(ctx, inv, "Channel pruned")
	return nil
}

// Empty removes everyone from the channel in strict sequential order; a
// full-channel teardown must not flood the platform.
func (e *Engine) Empty(ctx context.Context, channelRef string, inv Invoker) error {
	res, err := e.prune(ctx, channelRef, nil, inv, 1)
	if err != nil {
		return err
	}
	e.logger.Info("channel emptied", "kicked", res.applied, "failed", res.failed)
	e.notify(ctx, inv, "Channel emptied")
	return nil
}

func (e *Engine) prune(ctx context.Context, channelRef string, keep []platform.UserID, inv Invoker, limit int) (batchResult, error) {
	ch, err := e.adapter.ResolveChannel(ctx, channelRef)
	if err != nil {
		e.notify(ctx, inv, fmt.Sprintf("Channel %s not found", channelRef))
		return batchResult{}, err
	}

	members, err := e.adapter.ListMembers(ctx, ch.ID)
	if err != nil {
		return batchResult{}, err
	}

	admins, err := e.adminSet(ctx)
	if err != nil {
		return batchResult{}, err
	}

	bot, _ := e.adapter.BotIdentity(ctx)

	keepSet := make(map[platform.UserID]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}

	var targets []platform.UserID
	for _, id := range members {
		if keepSet[id] || admins[id] || id == inv.UserID || id == bot {
			continue
		}
		targets = append(targets, id)
	}

	return e.kickBatch(ctx, ch, targets, limit), nil
}

// adminSet returns the workspace admin identities, including restricted
// and deleted accounts so a stale member record never gets an admin kicked.
func (e *Engine) adminSet(ctx context.Context) (map[platform.UserID]bool, error) {
	users, err := e.adapter.ListAllUsers(ctx, platform.ListUsersFilter{
		IncludeDeleted:    true,
		IncludeRestricted: true,
		IncludeBots:       true,
	})
	if err != nil {
		return nil, err
	}
	admins := make(map[platform.UserID]bool)
	for _, u := range users {
		if u.Admin {
			admins[u.ID] = true
		}
	}
	return admins, nil
}

// Invite normalizes a separated identifier list and invites each user.
func (e *Engine) Invite(ctx context.Context, channelRef, idsCSV string, inv Invoker) error {
	ch, err := e.adapter.ResolveChannel(ctx, channelRef)
	if err != nil {
		e.notify(ctx, inv, fmt.Sprintf("Channel %s not found", channelRef))
		return err
	}

	ids := platform.ParseUserIDs(idsCSV)
	if len(ids) == 0 {
		e.notify(ctx, inv, "No user ids given")
		return nil
	}

	res := e.inviteBatch(ctx, ch, ids, inviteParallelism)
	e.notify(ctx, inv, fmt.Sprintf("Invited %d users", res.applied))
	return nil
}

// CreateChannel creates the channel unless one already resolves to the
// name, invites the owner, and optionally fills it. Auto-fill of private
// channels is unsupported and reported as such.
func (e *Engine) CreateChannel(ctx context.Context, name string, owner platform.UserID, private, fill bool, inv Invoker) error {
	ch, err := e.adapter.ResolveChannel(ctx, name)
	if err != nil {
		if platform.Classify(err) != platform.KindNotFound {
			return err
		}
		ch, err = e.adapter.CreateChannel(ctx, name, private)
		if err != nil {
			e.notify(ctx, inv, fmt.Sprintf("Could not create channel %s", name))
			return err
		}
		e.notify(ctx, inv, fmt.Sprintf("Channel %s created", name))
	}

	if owner != "" {
		if err := e.adapter.Invite(ctx, ch, owner); err != nil && !platform.IsBenign(err) {
			e.logger.Warn("owner invite failed", "channel", ch.Name, "owner", owner, "error", err)
		}
	}

	if !fill {
		return nil
	}
	if ch.Private {
		e.notify(ctx, inv, "Auto-fill is not supported for private channels, run fill from the channel instead")
		return nil
	}
	return e.fillResolved(ctx, ch, inv)
}

// qualifyingMembers returns the channel members that belong to the
// membership set: bots, the system user, and restricted or deleted
// accounts are excluded.
func (e *Engine) qualifyingMembers(ctx context.Context, channelID string) ([]platform.UserID, error) {
	members, err := e.adapter.ListMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}
	users, err := e.adapter.ListAllUsers(ctx, platform.ListUsersFilter{})
	if err != nil {
		return nil, err
	}
	qualifying := make(map[platform.UserID]bool, len(users))
	for _, u := range users {
		qualifying[u.ID] = true
	}
	var out []platform.UserID
	for _, id := range members {
		if qualifying[id] {
			out = append(out, id)
		}
	}
	return out, nil
}
