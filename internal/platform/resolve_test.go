// ABOUTME: Tests for channel resolution, membership filtering, and ID parsing.
// ABOUTME: Covers tie-breaks, system user exclusion, and set difference minimality.

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindChannel_ExactIDWins(t *testing.T) {
	channels := []Channel{
		{ID: "C001", Name: "deals"},
		{ID: "C002", Name: "C001"}, // name collides with the other channel's ID
	}

	got, ok := FindChannel(channels, "C001")
	require.True(t, ok)
	assert.Equal(t, "C001", got.ID)
}

func TestFindChannel_SubstringFirstMatch(t *testing.T) {
	channels := []Channel{
		{ID: "C001", Name: "general"},
		{ID: "C002", Name: "dd-acme"},
		{ID: "C003", Name: "dd-acme-archive"},
	}

	got, ok := FindChannel(channels, "#dd-acme")
	require.True(t, ok)
	// Ambiguous prefix: first match in listing order is the contract.
	assert.Equal(t, "C002", got.ID)
}

func TestFindChannel_CaseInsensitiveName(t *testing.T) {
	channels := []Channel{{ID: "C001", Name: "dd-Acme"}}

	_, ok := FindChannel(channels, "ACME")
	assert.True(t, ok)
}

func TestFindChannel_NoMatch(t *testing.T) {
	channels := []Channel{{ID: "C001", Name: "general"}}

	_, ok := FindChannel(channels, "missing")
	assert.False(t, ok)

	_, ok = FindChannel(channels, "")
	assert.False(t, ok)
}

func TestMembershipSet_Filtering(t *testing.T) {
	users := []User{
		{ID: "U1"},
		{ID: "U2", Bot: true},
		{ID: SystemUserID},
		{ID: "U3", Deleted: true},
		{ID: "U4", Restricted: true},
		{ID: "U5", Admin: true},
	}
	ids := func(us []User) []UserID {
		out := make([]UserID, 0, len(us))
		for _, u := range us {
			out = append(out, u.ID)
		}
		return out
	}

	t.Run("default excludes bots, system, restricted, deleted", func(t *testing.T) {
		got := MembershipSet(users, ListUsersFilter{})
		assert.Equal(t, []UserID{"U1", "U5"}, ids(got))
	})

	t.Run("explicit include keeps restricted and deleted", func(t *testing.T) {
		got := MembershipSet(users, ListUsersFilter{IncludeDeleted: true, IncludeRestricted: true})
		assert.Equal(t, []UserID{"U1", "U3", "U4", "U5"}, ids(got))
	})

	t.Run("system user never included", func(t *testing.T) {
		got := MembershipSet(users, ListUsersFilter{IncludeBots: true, IncludeDeleted: true, IncludeRestricted: true})
		assert.NotContains(t, ids(got), SystemUserID)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, MembershipSet(users, ListUsersFilter{}), MembershipSet(users, ListUsersFilter{}))
	})
}

func TestDifference(t *testing.T) {
	a := []UserID{"U1", "U2", "U3"}
	b := []UserID{"U2"}

	assert.Equal(t, []UserID{"U1", "U3"}, Difference(a, b))
	assert.Empty(t, Difference(b, a))
	assert.Empty(t, Difference(nil, a))
}

func TestParseUserIDs(t *testing.T) {
	got := ParseUserIDs("U1,U2;U3 U4\nU5,,  U6")
	assert.Equal(t, []UserID{"U1", "U2", "U3", "U4", "U5", "U6"}, got)

	assert.Empty(t, ParseUserIDs("  ,; "))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindBenign, Classify(nil))
	assert.Equal(t, KindBenign, Classify(NewError(KindBenign, "already_in_channel", nil)))
	assert.Equal(t, KindNotFound, Classify(NewError(KindNotFound, "channel_not_found", nil)))
	assert.Equal(t, KindUnexpected, Classify(assert.AnError))

	assert.True(t, IsBenign(nil))
	assert.False(t, IsBenign(assert.AnError))
}

func TestBenignCode(t *testing.T) {
	for _, code := range []string{"already_in_channel", "not_in_channel", "cant_invite_self", "message_not_found", "file_deleted"} {
		assert.True(t, BenignCode(code), code)
	}
	assert.False(t, BenignCode("ratelimited"))
	assert.False(t, BenignCode("invalid_auth"))
}

func TestFileMetaSplitName(t *testing.T) {
	f := FileMeta{Name: "acme-corp.nda.pdf"}
	base, ext := f.SplitName()
	assert.Equal(t, "acme-corp.nda", base)
	assert.Equal(t, "pdf", ext)

	f = FileMeta{Name: "noext"}
	base, ext = f.SplitName()
	assert.Equal(t, "noext", base)
	assert.Equal(t, "", ext)
}
