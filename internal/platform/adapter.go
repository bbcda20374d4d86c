// ABOUTME: Adapter interfaces consumed by the reconciliation and intake engines.
// ABOUTME: Implementations wrap the chat platform and object storage APIs.

package platform

import "context"

// Adapter is the capability set the engines consume from the chat platform.
// Implementations are expected to rate-limit mutating calls and to retry
// transient failures internally; callers see the error taxonomy of this
// package.
type Adapter interface {
	// ListChannels returns all non-archived channels visible to the bot.
	ListChannels(ctx context.Context) ([]Channel, error)

	// ResolveChannel resolves an ID or (possibly #-prefixed) name to a
	// channel. An exact ID match wins; otherwise the first channel whose
	// name contains the normalized query is returned. Returns a
	// NotFound-kind error when nothing matches.
	ResolveChannel(ctx context.Context, idOrName string) (Channel, error)

	// CreateChannel creates a channel and returns it.
	CreateChannel(ctx context.Context, name string, private bool) (Channel, error)

	// ListMembers returns the raw member IDs of a channel.
	ListMembers(ctx context.Context, channelID string) ([]UserID, error)

	// ListAllUsers returns workspace users matching the filter. The
	// platform system user is always excluded.
	ListAllUsers(ctx context.Context, filter ListUsersFilter) ([]User, error)

	// GetUser returns a single user.
	GetUser(ctx context.Context, id UserID) (User, error)

	// Invite invites a single user into a channel.
	Invite(ctx context.Context, channel Channel, id UserID) error

	// Kick removes a single user from a channel.
	Kick(ctx context.Context, channel Channel, id UserID) error

	// Join joins the bot itself into a channel.
	Join(ctx context.Context, channel Channel) error

	// PostEphemeral sends a message in a channel that only the recipient
	// can see.
	PostEphemeral(ctx context.Context, channelID string, recipient UserID, text string) error

	// PostMessage posts a message and returns its reference.
	PostMessage(ctx context.Context, channelID, text string) (MessageRef, error)

	// UpdateMessage rewrites a previously posted message.
	UpdateMessage(ctx context.Context, ref MessageRef, text string) error

	// DeleteMessage deletes a posted message. Deleting an already-deleted
	// message is a benign no-op.
	DeleteMessage(ctx context.Context, ref MessageRef) error

	// GetFileMetadata returns metadata for an uploaded file.
	GetFileMetadata(ctx context.Context, fileID string) (FileMeta, error)

	// DownloadFileBytes fetches the private content of a file.
	DownloadFileBytes(ctx context.Context, url string) ([]byte, error)

	// DeleteFile removes the file object from the platform. Deleting an
	// already-deleted file is a benign no-op.
	DeleteFile(ctx context.Context, fileID string) error

	// ListChannelFiles returns the files of the given platform type shared
	// in a channel, ordered by creation time ascending.
	ListChannelFiles(ctx context.Context, channelID, filetype string) ([]FileMeta, error)

	// BotIdentity returns the bot's own user ID. The lookup is performed
	// once and memoized for the process lifetime.
	BotIdentity(ctx context.Context) (UserID, error)
}

// HistorySource reads channel message history for auxiliary reporting. It
// is not part of the reconciliation hot path; implementations may return a
// partial result after bounded retries.
type HistorySource interface {
	// ListChannelMessages returns the plain user messages of a channel,
	// newest first.
	ListChannelMessages(ctx context.Context, channelID string) ([]MessagePost, error)
}

// Archiver persists verified documents to external storage.
type Archiver interface {
	// Upload stores contents under folder/filename, overwriting any
	// previous copy.
	Upload(ctx context.Context, folder, filename string, contents []byte) error
}
