// ABOUTME: Core data model for workspace administration.
// ABOUTME: Channels, users, file metadata and inbound event payloads.

package platform

import (
	"strings"
	"time"
)

// SystemUserID is the platform's built-in system user. It is never a
// reconciliation target and is excluded from every membership set.
const SystemUserID UserID = "USLACKBOT"

// UserID identifies a workspace user.
type UserID string

// Channel is a workspace channel as reported by the platform. The engines
// never own channel identity; they only query and mutate membership.
type Channel struct {
	ID       string
	Name     string
	Private  bool
	Archived bool
}

// User is a workspace user with the role flags the engines care about.
// A User is immutable within a single operation.
type User struct {
	ID         UserID
	Name       string // login name, e.g. "jane.doe"
	RealName   string // display name, e.g. "Jane Doe"
	Admin      bool
	Bot        bool
	Restricted bool // guest / single-channel accounts
	Deleted    bool
}

// FileMeta describes an uploaded file.
type FileMeta struct {
	ID          string
	Name        string
	Size        int
	Filetype    string // platform type classification, e.g. "pdf"
	Mimetype    string
	Created     time.Time
	UserID      UserID
	DownloadURL string
	Channels    []string
}

// SplitName splits the filename into base name and extension.
// "acme-corp.pdf" yields ("acme-corp", "pdf"); a missing extension
// yields an empty string.
func (f FileMeta) SplitName() (base, ext string) {
	base = f.Name
	if i := strings.LastIndex(f.Name, "."); i >= 0 {
		base = f.Name[:i]
		ext = f.Name[i+1:]
	}
	return base, ext
}

// MessageRef identifies a posted message by channel and timestamp.
type MessageRef struct {
	ChannelID string
	Timestamp string
}

// ListUsersFilter controls which accounts a workspace user listing includes.
// The zero value is the reconciliation default: humans with full accounts.
type ListUsersFilter struct {
	IncludeDeleted    bool
	IncludeRestricted bool
	IncludeBots       bool
}

// FileSharedEvent reports that a file was shared into a channel.
type FileSharedEvent struct {
	FileID    string
	UserID    UserID
	ChannelID string
}

// MessageEvent reports a posted chat message. FileIDs carries the
// attachments, if any. It races with FileSharedEvent for the same upload.
type MessageEvent struct {
	ChannelID string
	Timestamp string
	UserID    UserID
	Subtype   string
	FileIDs   []string
}

// MessagePost is a plain user message in a channel's history, used by
// auxiliary activity reporting.
type MessagePost struct {
	UserID    UserID
	Timestamp string
	Posted    time.Time
}

// ChannelCreatedEvent reports a freshly created channel.
type ChannelCreatedEvent struct {
	Channel Channel
	Creator UserID
}
