// ABOUTME: Channel resolution, membership filtering, and user list parsing.
// ABOUTME: Pure helpers shared by adapter implementations and the engines.

package platform

import (
	"strings"
)

// NormalizeChannelQuery strips a leading "#" and lowercases the query so
// "#Deals" and "deals" resolve identically.
func NormalizeChannelQuery(q string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(q), "#"))
}

// FindChannel resolves idOrName against a channel listing. An exact ID
// match always wins; otherwise the first channel whose name contains the
// normalized query is returned, in listing order. Substring matching is
// ambiguous when channels share a prefix; first match is the contract.
func FindChannel(channels []Channel, idOrName string) (Channel, bool) {
	for _, c := range channels {
		if c.ID == idOrName {
			return c, true
		}
	}
	q := NormalizeChannelQuery(idOrName)
	if q == "" {
		return Channel{}, false
	}
	for _, c := range channels {
		if strings.Contains(strings.ToLower(c.Name), q) {
			return c, true
		}
	}
	return Channel{}, false
}

// MembershipSet filters users down to the qualifying members: the system
// user is always dropped, bots, restricted, and deleted accounts only kept
// when the filter says so. Computing it twice over the same input yields
// the same set.
func MembershipSet(users []User, filter ListUsersFilter) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.ID == SystemUserID {
			continue
		}
		if u.Bot && !filter.IncludeBots {
			continue
		}
		if u.Deleted && !filter.IncludeDeleted {
			continue
		}
		if u.Restricted && !filter.IncludeRestricted {
			continue
		}
		out = append(out, u)
	}
	return out
}

// Difference returns the members of a that are not in b, preserving the
// order of a. The result is exactly the set difference, never a superset.
func Difference(a, b []UserID) []UserID {
	in := make(map[UserID]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	var out []UserID
	for _, id := range a {
		if !in[id] {
			out = append(out, id)
		}
	}
	return out
}

// ParseUserIDs normalizes a comma, semicolon, or whitespace separated
// identifier list into individual user IDs, dropping empties.
func ParseUserIDs(s string) []UserID {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	out := make([]UserID, 0, len(fields))
	for _, f := range fields {
		out = append(out, UserID(f))
	}
	return out
}
