// ABOUTME: In-memory Adapter implementation for tests.
// ABOUTME: Records every mutating call and supports per-target error injection.

package platform

import (
	"context"
	"fmt"
	"sync"
)

// MemberChange records an invite or kick call.
type MemberChange struct {
	ChannelID string
	UserID    UserID
}

// EphemeralCall records a PostEphemeral call.
type EphemeralCall struct {
	ChannelID string
	Recipient UserID
	Text      string
}

// PostCall records a PostMessage call.
type PostCall struct {
	ChannelID string
	Text      string
}

// MockAdapter is an in-memory Adapter for tests. Mutations update the
// workspace state so convergence can be asserted by re-querying. All
// methods are safe for concurrent use.
type MockAdapter struct {
	mu sync.Mutex

	ChannelList      map[string]Channel
	channelOrder     []string
	MembersByChannel map[string][]UserID
	UsersByID        map[UserID]User
	userOrder        []UserID
	FilesByID        map[string]FileMeta
	ContentByURL     map[string][]byte
	FilesByChannel   map[string][]FileMeta
	MsgsByChannel    map[string][]MessagePost
	Bot              UserID

	// Error injection, keyed by target.
	InviteErrs       map[UserID]error
	KickErrs         map[UserID]error
	DeleteFileErr    error
	DeleteMessageErr error
	DownloadErr      error
	ListMembersErr   error

	// Call records.
	InviteCalls      []MemberChange
	KickCalls        []MemberChange
	JoinCalls        []string
	DeletedFiles     []string
	DeletedMessages  []MessageRef
	Ephemerals       []EphemeralCall
	Posts            []PostCall
	CreatedChannels  []Channel
	BotIdentityCalls int
}

// NewMockAdapter creates an empty mock workspace.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		ChannelList:      make(map[string]Channel),
		MembersByChannel: make(map[string][]UserID),
		UsersByID:        make(map[UserID]User),
		FilesByID:        make(map[string]FileMeta),
		ContentByURL:     make(map[string][]byte),
		FilesByChannel:   make(map[string][]FileMeta),
		MsgsByChannel:    make(map[string][]MessagePost),
		InviteErrs:       make(map[UserID]error),
		KickErrs:         make(map[UserID]error),
		Bot:              "UBOT",
	}
}

// AddChannel registers a channel with the given members.
func (m *MockAdapter) AddChannel(ch Channel, members ...UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ChannelList[ch.ID]; !ok {
		m.channelOrder = append(m.channelOrder, ch.ID)
	}
	m.ChannelList[ch.ID] = ch
	m.MembersByChannel[ch.ID] = append([]UserID(nil), members...)
}

// AddUser registers a workspace user.
func (m *MockAdapter) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.UsersByID[u.ID]; !ok {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.UsersByID[u.ID] = u
}

// AddFile registers an uploaded file and its content.
func (m *MockAdapter) AddFile(f FileMeta, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FilesByID[f.ID] = f
	if f.DownloadURL != "" {
		m.ContentByURL[f.DownloadURL] = content
	}
}

func (m *MockAdapter) ListChannels(ctx context.Context) ([]Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Channel, 0, len(m.channelOrder))
	for _, id := range m.channelOrder {
		out = append(out, m.ChannelList[id])
	}
	return out, nil
}

func (m *MockAdapter) ResolveChannel(ctx context.Context, idOrName string) (Channel, error) {
	channels, _ := m.ListChannels(ctx)
	ch, ok := FindChannel(channels, idOrName)
	if !ok {
		return Channel{}, NewError(KindNotFound, "channel_not_found", fmt.Errorf("no channel matching %q", idOrName))
	}
	return ch, nil
}

func (m *MockAdapter) CreateChannel(ctx context.Context, name string, private bool) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := Channel{ID: fmt.Sprintf("C%03d", len(m.ChannelList)+1), Name: name, Private: private}
	m.ChannelList[ch.ID] = ch
	m.channelOrder = append(m.channelOrder, ch.ID)
	m.MembersByChannel[ch.ID] = nil
	m.CreatedChannels = append(m.CreatedChannels, ch)
	return ch, nil
}

func (m *MockAdapter) ListMembers(ctx context.Context, channelID string) ([]UserID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListMembersErr != nil {
		return nil, m.ListMembersErr
	}
	members, ok := m.MembersByChannel[channelID]
	if !ok {
		return nil, NewError(KindNotFound, "channel_not_found", fmt.Errorf("channel %q", channelID))
	}
	return append([]UserID(nil), members...), nil
}

func (m *MockAdapter) ListAllUsers(ctx context.Context, filter ListUsersFilter) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		out = append(out, m.UsersByID[id])
	}
	return MembershipSet(out, filter), nil
}

func (m *MockAdapter) GetUser(ctx context.Context, id UserID) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.UsersByID[id]
	if !ok {
		return User{}, NewError(KindNotFound, "user_not_found", fmt.Errorf("user %q", id))
	}
	return u, nil
}

func (m *MockAdapter) Invite(ctx context.Context, channel Channel, id UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InviteCalls = append(m.InviteCalls, MemberChange{ChannelID: channel.ID, UserID: id})
	if err, ok := m.InviteErrs[id]; ok {
		return err
	}
	for _, member := range m.MembersByChannel[channel.ID] {
		if member == id {
			return NewError(KindBenign, "already_in_channel", nil)
		}
	}
	m.MembersByChannel[channel.ID] = append(m.MembersByChannel[channel.ID], id)
	return nil
}

func (m *MockAdapter) Kick(ctx context.Context, channel Channel, id UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.KickCalls = append(m.KickCalls, MemberChange{ChannelID: channel.ID, UserID: id})
	if err, ok := m.KickErrs[id]; ok {
		return err
	}
	members := m.MembersByChannel[channel.ID]
	for i, member := range members {
		if member == id {
			m.MembersByChannel[channel.ID] = append(members[:i:i], members[i+1:]...)
			return nil
		}
	}
	return NewError(KindBenign, "not_in_channel", nil)
}

func (m *MockAdapter) Join(ctx context.Context, channel Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JoinCalls = append(m.JoinCalls, channel.ID)
	return nil
}

func (m *MockAdapter) PostEphemeral(ctx context.Context, channelID string, recipient UserID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ephemerals = append(m.Ephemerals, EphemeralCall{ChannelID: channelID, Recipient: recipient, Text: text})
	return nil
}

func (m *MockAdapter) PostMessage(ctx context.Context, channelID, text string) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Posts = append(m.Posts, PostCall{ChannelID: channelID, Text: text})
	return MessageRef{ChannelID: channelID, Timestamp: fmt.Sprintf("%d.000000", len(m.Posts))}, nil
}

func (m *MockAdapter) UpdateMessage(ctx context.Context, ref MessageRef, text string) error {
	return nil
}

func (m *MockAdapter) DeleteMessage(ctx context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteMessageErr != nil {
		return m.DeleteMessageErr
	}
	for _, d := range m.DeletedMessages {
		if d == ref {
			return NewError(KindBenign, "message_not_found", nil)
		}
	}
	m.DeletedMessages = append(m.DeletedMessages, ref)
	return nil
}

func (m *MockAdapter) GetFileMetadata(ctx context.Context, fileID string) (FileMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.FilesByID[fileID]
	if !ok {
		return FileMeta{}, NewError(KindNotFound, "file_not_found", fmt.Errorf("file %q", fileID))
	}
	return f, nil
}

func (m *MockAdapter) DownloadFileBytes(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	content, ok := m.ContentByURL[url]
	if !ok {
		return nil, NewError(KindNotFound, "file_not_found", fmt.Errorf("url %q", url))
	}
	return content, nil
}

func (m *MockAdapter) DeleteFile(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteFileErr != nil {
		return m.DeleteFileErr
	}
	if _, ok := m.FilesByID[fileID]; !ok {
		return NewError(KindBenign, "file_deleted", nil)
	}
	delete(m.FilesByID, fileID)
	m.DeletedFiles = append(m.DeletedFiles, fileID)
	return nil
}

func (m *MockAdapter) ListChannelFiles(ctx context.Context, channelID, filetype string) ([]FileMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FileMeta
	for _, f := range m.FilesByChannel[channelID] {
		if f.Filetype == filetype {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MockAdapter) BotIdentity(ctx context.Context) (UserID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BotIdentityCalls++
	return m.Bot, nil
}

func (m *MockAdapter) ListChannelMessages(ctx context.Context, channelID string) ([]MessagePost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MessagePost(nil), m.MsgsByChannel[channelID]...), nil
}

// Members returns the current membership of a channel for assertions.
func (m *MockAdapter) Members(channelID string) []UserID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UserID(nil), m.MembersByChannel[channelID]...)
}

var _ Adapter = (*MockAdapter)(nil)
var _ HistorySource = (*MockAdapter)(nil)
