// ABOUTME: Tests for the membership reconciliation engine.
// ABOUTME: Covers minimality, convergence, failure isolation, and kick exclusions.

package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmith-io/wardroom/internal/metrics"
	"github.com/opsmith-io/wardroom/internal/platform"
)

func newTestEngine(t *testing.T) (*Engine, *platform.MockAdapter) {
	t.Helper()
	m := platform.NewMockAdapter()
	return New(m, metrics.New(), nil), m
}

func seedWorkspace(m *platform.MockAdapter) {
	m.AddUser(platform.User{ID: "UADMIN", RealName: "Ada Admin", Admin: true})
	m.AddUser(platform.User{ID: "U1", RealName: "One"})
	m.AddUser(platform.User{ID: "U2", RealName: "Two"})
	m.AddUser(platform.User{ID: "U3", RealName: "Three"})
	m.AddUser(platform.User{ID: "UBOT", RealName: "Wardroom", Bot: true})
	m.AddUser(platform.User{ID: "UGUEST", RealName: "Guest", Restricted: true})
	m.AddUser(platform.User{ID: platform.SystemUserID, RealName: "System"})
}

func TestFill_InvitesExactlyTheMissingSet(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"}, "U1")

	inv := Invoker{UserID: "UADMIN", ChannelID: "C1"}
	require.NoError(t, e.Fill(context.Background(), "C1", inv))

	// Minimality: only the missing qualifying users, never bots, guests,
	// the system user, or the bot identity.
	var invited []platform.UserID
	for _, c := range m.InviteCalls {
		invited = append(invited, c.UserID)
	}
	assert.ElementsMatch(t, []platform.UserID{"UADMIN", "U2", "U3"}, invited)

	// Convergence: re-querying actual membership yields the desired set.
	assert.ElementsMatch(t, []platform.UserID{"U1", "UADMIN", "U2", "U3"}, m.Members("C1"))

	require.NotEmpty(t, m.Ephemerals)
	assert.Equal(t, "Channel filled", m.Ephemerals[len(m.Ephemerals)-1].Text)
}

func TestFill_NothingToDo(t *testing.T) {
	e, m := newTestEngine(t)
	m.AddUser(platform.User{ID: "U1"})
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"}, "U1")

	require.NoError(t, e.Fill(context.Background(), "C1", Invoker{UserID: "U1", ChannelID: "C1"}))

	assert.Empty(t, m.InviteCalls)
	require.Len(t, m.Ephemerals, 1)
	assert.Equal(t, "No one to invite", m.Ephemerals[0].Text)
}

func TestFill_SecondRunIsNoOp(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"})

	require.NoError(t, e.Fill(context.Background(), "C1", Invoker{}))
	calls := len(m.InviteCalls)
	require.NoError(t, e.Fill(context.Background(), "C1", Invoker{}))

	assert.Equal(t, calls, len(m.InviteCalls), "converged channel must produce an empty batch")
}

func TestFill_ChannelNotFound(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)

	err := e.Fill(context.Background(), "nope", Invoker{UserID: "UADMIN", ChannelID: "C9"})

	require.Error(t, err)
	assert.Equal(t, platform.KindNotFound, platform.Classify(err))
	require.Len(t, m.Ephemerals, 1)
	assert.Contains(t, m.Ephemerals[0].Text, "not found")
}

func TestFill_MemberListingFailureIsNotReportedAsMissingChannel(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"})
	m.ListMembersErr = platform.NewError(platform.KindTransient, "timeout", assert.AnError)

	err := e.Fill(context.Background(), "general", Invoker{UserID: "UADMIN", ChannelID: "C9"})

	require.Error(t, err)
	require.Len(t, m.Ephemerals, 1)
	assert.Equal(t, "Could not list channel members", m.Ephemerals[0].Text)
}

func TestFill_BenignRejectsAreNotFailures(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"})
	m.InviteErrs["U2"] = platform.NewError(platform.KindBenign, "already_in_channel", nil)

	require.NoError(t, e.Fill(context.Background(), "C1", Invoker{UserID: "UADMIN", ChannelID: "C1"}))

	// The benign element does not abort the batch and the outcome is
	// still reported as a plain fill.
	assert.Contains(t, m.Members("C1"), platform.UserID("U3"))
	assert.Equal(t, "Channel filled", m.Ephemerals[len(m.Ephemerals)-1].Text)
}

func TestFill_OneFailureDoesNotAbortSiblings(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"})
	m.InviteErrs["U2"] = platform.NewError(platform.KindUnexpected, "internal_error", assert.AnError)

	require.NoError(t, e.Fill(context.Background(), "C1", Invoker{}))

	members := m.Members("C1")
	assert.Contains(t, members, platform.UserID("U1"))
	assert.Contains(t, members, platform.UserID("U3"))
	assert.NotContains(t, members, platform.UserID("U2"))
}

func TestMirror(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "deals"}, "U1", "U2", "UGUEST", "UBOT")
	m.AddChannel(platform.Channel{ID: "C2", Name: "deals-copy"}, "U2")

	require.NoError(t, e.Mirror(context.Background(), "deals", "deals-copy", Invoker{UserID: "UADMIN", ChannelID: "C2"}))

	// Only qualifying members of the source that are missing from the
	// target get invited.
	assert.Equal(t, []platform.MemberChange{{ChannelID: "C2", UserID: "U1"}}, m.InviteCalls)
	assert.Equal(t, "Channel mirrored", m.Ephemerals[len(m.Ephemerals)-1].Text)
}

func TestMirror_SourceNotFound(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C2", Name: "target"})

	err := e.Mirror(context.Background(), "missing", "target", Invoker{UserID: "UADMIN", ChannelID: "C2"})

	require.Error(t, err)
	assert.Equal(t, platform.KindNotFound, platform.Classify(err))
	assert.Empty(t, m.InviteCalls)
}

func TestPrune_KeepsListedAdminsInvokerAndBot(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"},
		"UADMIN", "U1", "U2", "U3", "UBOT", "UGUEST")

	inv := Invoker{UserID: "U3", ChannelID: "C1"}
	require.NoError(t, e.Prune(context.Background(), "C1", "U1", inv))

	var kicked []platform.UserID
	for _, c := range m.KickCalls {
		kicked = append(kicked, c.UserID)
	}
	// U1 is kept, UADMIN is an admin, U3 invoked, UBOT is the bot.
	assert.ElementsMatch(t, []platform.UserID{"U2", "UGUEST"}, kicked)
	assert.ElementsMatch(t, []platform.UserID{"UADMIN", "U1", "U3", "UBOT"}, m.Members("C1"))
}

func TestPrune_OneFailedKickDoesNotAbortTheRest(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"}, "U1", "U2", "U3")
	m.KickErrs["U1"] = platform.NewError(platform.KindUnexpected, "internal_error", assert.AnError)

	require.NoError(t, e.Prune(context.Background(), "C1", "", Invoker{}))

	assert.Len(t, m.KickCalls, 3, "every element of the batch must be attempted")
	assert.ElementsMatch(t, []platform.UserID{"U1"}, m.Members("C1"))
}

func TestEmpty_KicksSequentiallyInMemberOrder(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "teardown"}, "U1", "U2", "U3")

	require.NoError(t, e.Empty(context.Background(), "C1", Invoker{UserID: "UADMIN", ChannelID: "C1"}))

	// Strict sequential order: kick calls happen in membership order.
	assert.Equal(t, []platform.MemberChange{
		{ChannelID: "C1", UserID: "U1"},
		{ChannelID: "C1", UserID: "U2"},
		{ChannelID: "C1", UserID: "U3"},
	}, m.KickCalls)
	assert.Empty(t, m.Members("C1"))
	assert.Equal(t, "Channel emptied", m.Ephemerals[len(m.Ephemerals)-1].Text)
}

func TestInvite_NormalizesSeparatedList(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"})

	require.NoError(t, e.Invite(context.Background(), "C1", "U1, U2;U3", Invoker{UserID: "UADMIN", ChannelID: "C1"}))

	assert.ElementsMatch(t, []platform.UserID{"U1", "U2", "U3"}, m.Members("C1"))
	assert.Equal(t, "Invited 3 users", m.Ephemerals[len(m.Ephemerals)-1].Text)
}

func TestCreateChannel(t *testing.T) {
	t.Run("creates missing channel and invites owner", func(t *testing.T) {
		e, m := newTestEngine(t)
		seedWorkspace(m)

		require.NoError(t, e.CreateChannel(context.Background(), "newchan", "UADMIN", false, false, Invoker{UserID: "UADMIN", ChannelID: "C0"}))

		require.Len(t, m.CreatedChannels, 1)
		assert.Equal(t, "newchan", m.CreatedChannels[0].Name)
		assert.Contains(t, m.Members(m.CreatedChannels[0].ID), platform.UserID("UADMIN"))
	})

	t.Run("existing channel is not recreated", func(t *testing.T) {
		e, m := newTestEngine(t)
		seedWorkspace(m)
		m.AddChannel(platform.Channel{ID: "C1", Name: "newchan"})

		require.NoError(t, e.CreateChannel(context.Background(), "newchan", "", false, false, Invoker{}))
		assert.Empty(t, m.CreatedChannels)
	})

	t.Run("private channel reports manual fill", func(t *testing.T) {
		e, m := newTestEngine(t)
		seedWorkspace(m)

		require.NoError(t, e.CreateChannel(context.Background(), "secret", "UADMIN", true, true, Invoker{UserID: "UADMIN", ChannelID: "C0"}))

		last := m.Ephemerals[len(m.Ephemerals)-1].Text
		assert.Contains(t, last, "not supported for private channels")
		// No fill happened: only the owner invite touched membership.
		assert.Len(t, m.InviteCalls, 1)
	})

	t.Run("public channel fills inline when requested", func(t *testing.T) {
		e, m := newTestEngine(t)
		seedWorkspace(m)

		require.NoError(t, e.CreateChannel(context.Background(), "launch", "UADMIN", false, true, Invoker{UserID: "UADMIN", ChannelID: "C0"}))

		require.Len(t, m.CreatedChannels, 1)
		assert.ElementsMatch(t, []platform.UserID{"UADMIN", "U1", "U2", "U3"},
			m.Members(m.CreatedChannels[0].ID))
	})
}

func TestListUsers(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)

	require.NoError(t, e.ListUsers(context.Background(), Invoker{UserID: "UADMIN", ChannelID: "C1"}))

	require.Len(t, m.Ephemerals, 1)
	report := m.Ephemerals[0].Text
	assert.Contains(t, report, "UADMIN | Ada Admin | admin")
	assert.Contains(t, report, "UBOT | Wardroom | bot")
	assert.NotContains(t, report, string(platform.SystemUserID))
}

func TestAddBotEverywhere(t *testing.T) {
	e, m := newTestEngine(t)
	seedWorkspace(m)
	m.AddChannel(platform.Channel{ID: "C1", Name: "one"})
	m.AddChannel(platform.Channel{ID: "C2", Name: "two"}, "UBOT")

	require.NoError(t, e.AddBotEverywhere(context.Background(), Invoker{UserID: "UADMIN", ChannelID: "C1"}))

	assert.Contains(t, m.Members("C1"), platform.UserID("UBOT"))
	assert.ElementsMatch(t, []string{"C1", "C2"}, m.JoinCalls)
	assert.Equal(t, "Bot added to all channels", m.Ephemerals[len(m.Ephemerals)-1].Text)
}
