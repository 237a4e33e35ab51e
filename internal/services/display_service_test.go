package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	logger "github.com/queuebot/queuebot/middleware/log"
)

// fakeIdentities resolves every user except those marked vanished.
type fakeIdentities struct {
	vanished map[string]bool
}

func (f *fakeIdentities) Resolve(guildID, userID string) (*DisplayIdentity, error) {
	if f.vanished[userID] {
		return nil, ErrIdentityNotFound
	}
	return &DisplayIdentity{
		Mention: "<@" + userID + ">",
		Name:    userID,
	}, nil
}

type sentMessage struct {
	channelID string
	messageID string
	pages     []Page
	controls  Controls
}

// fakeTransport records pushes and simulates per-channel failures.
type fakeTransport struct {
	mu sync.Mutex

	nextID   int
	sent     []sentMessage
	edited   []string // "channel/message"
	deleted  []string
	stripped []string

	canPostErr map[string]error
	editErr    map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		canPostErr: make(map[string]error),
		editErr:    make(map[string]error),
	}
}

func (f *fakeTransport) CanPostTo(channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canPostErr[channelID]
}

func (f *fakeTransport) SendPages(channelID string, pages []Page, controls Controls) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.sent = append(f.sent, sentMessage{channelID: channelID, messageID: id, pages: pages, controls: controls})
	return id, nil
}

func (f *fakeTransport) EditMessage(channelID, messageID string, pages []Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editErr[channelID]; err != nil {
		return err
	}
	f.edited = append(f.edited, channelID+"/"+messageID)
	return nil
}

func (f *fakeTransport) DeleteMessage(channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID+"/"+messageID)
	return nil
}

func (f *fakeTransport) StripControls(channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stripped = append(f.stripped, channelID+"/"+messageID)
	return nil
}

func (f *fakeTransport) sentTo(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.channelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func newTestDisplayService(t *testing.T, transport *fakeTransport, notifier Notifier) *DisplayService {
	t.Helper()
	return NewDisplayService(transport, &fakeIdentities{}, notifier, logger.NewNop())
}

func addDisplay(t *testing.T, store *repositories.Store, queueID uint, channelID, lastMessageID string) *models.Display {
	t.Helper()
	display := &models.Display{GuildID: testGuildID, QueueID: queueID, ChannelID: channelID, LastMessageID: lastMessageID}
	require.NoError(t, store.InsertDisplay(display))
	return display
}

func TestRefresh_EditStrategy(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	svc := newTestDisplayService(t, transport, nil)
	queue := createQueue(t, store, "test")
	addDisplay(t, store, queue.ID, "c1", "old-msg")

	require.NoError(t, svc.Refresh(context.Background(), store, queue.ID, RefreshOpts{}))

	assert.Equal(t, []string{"c1/old-msg"}, transport.edited)
	assert.Empty(t, transport.sent, "edit strategy must not send new messages")
}

func TestRefresh_EditFallsBackWhenMessageIsGone(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	transport.editErr["c1"] = ErrMessageNotFound
	svc := newTestDisplayService(t, transport, nil)
	queue := createQueue(t, store, "test")
	display := addDisplay(t, store, queue.ID, "c1", "deleted-msg")

	require.NoError(t, svc.Refresh(context.Background(), store, queue.ID, RefreshOpts{}))

	sent := transport.sentTo("c1")
	require.Len(t, sent, 1)

	displays, err := store.Displays(queue.ID)
	require.NoError(t, err)
	require.Len(t, displays, 1)
	assert.Equal(t, display.ID, displays[0].ID)
	assert.Equal(t, sent[0].messageID, displays[0].LastMessageID)
}

func TestRefresh_ReplaceStrategy(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	svc := newTestDisplayService(t, transport, nil)
	queue := createQueue(t, store, "test")
	queue.UpdateType = models.UpdateTypeReplace
	require.NoError(t, store.UpdateQueue(queue))
	addDisplay(t, store, queue.ID, "c1", "old-msg")

	require.NoError(t, svc.Refresh(context.Background(), store, queue.ID, RefreshOpts{}))

	require.Len(t, transport.sentTo("c1"), 1)
	assert.Equal(t, []string{"c1/old-msg"}, transport.deleted)
	assert.Empty(t, transport.stripped)
}

func TestRefresh_NewStrategyStripsOldControls(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	svc := newTestDisplayService(t, transport, nil)
	queue := createQueue(t, store, "test")
	queue.UpdateType = models.UpdateTypeNew
	require.NoError(t, store.UpdateQueue(queue))
	addDisplay(t, store, queue.ID, "c1", "old-msg")

	require.NoError(t, svc.Refresh(context.Background(), store, queue.ID, RefreshOpts{}))

	require.Len(t, transport.sentTo("c1"), 1)
	assert.Equal(t, []string{"c1/old-msg"}, transport.stripped)
	assert.Empty(t, transport.deleted, "new strategy keeps old messages as history")
}

func TestRefresh_ForceNewOverridesEdit(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	svc := newTestDisplayService(t, transport, nil)
	queue := createQueue(t, store, "test")
	addDisplay(t, store, queue.ID, "c1", "old-msg")

	require.NoError(t, svc.Refresh(context.Background(), store, queue.ID, RefreshOpts{ForceNew: true}))

	require.Len(t, transport.sentTo("c1"), 1)
	assert.Empty(t, transport.edited)
	assert.Equal(t, []string{"c1/old-msg"}, transport.deleted)
}

func TestRefresh_PermissionFailureDeregistersSurface(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	transport.canPostErr["c-dead"] = ErrSurfaceForbidden
	notifier := newFakeNotifier()
	svc := newTestDisplayService(t, transport, notifier)
	queue := createQueue(t, store, "test")
	dead := addDisplay(t, store, queue.ID, "c-dead", "old-msg")
	addDisplay(t, store, queue.ID, "c-live", "live-msg")

	err := svc.Refresh(context.Background(), store, queue.ID, RefreshOpts{InitiatorID: "admin"})
	require.NoError(t, err, "a dead surface must not fail the cycle")

	// The dead surface is gone, the live sibling was still refreshed.
	displays, err := store.Displays(queue.ID)
	require.NoError(t, err)
	require.Len(t, displays, 1)
	assert.NotEqual(t, dead.ID, displays[0].ID)

	assert.Equal(t, []string{"c-live/live-msg"}, transport.edited)
	assert.True(t, notifier.operatorNotified("admin"))
}

func TestRefresh_RecordsSentMessageID(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	svc := newTestDisplayService(t, transport, nil)
	queue := createQueue(t, store, "test")
	addDisplay(t, store, queue.ID, "c1", "")

	require.NoError(t, svc.Refresh(context.Background(), store, queue.ID, RefreshOpts{}))

	sent := transport.sentTo("c1")
	require.Len(t, sent, 1)

	displays, err := store.Displays(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, sent[0].messageID, displays[0].LastMessageID)

	guild, err := store.Guild()
	require.NoError(t, err)
	assert.Equal(t, 1, guild.DisplaysSent)
}

func TestInsertDisplays_FirstPushSendsFresh(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	svc := newTestDisplayService(t, transport, nil)
	queue := createQueue(t, store, "test")

	require.NoError(t, svc.InsertDisplays(context.Background(), store, queue, []string{"c1", "c2"}, "admin"))

	assert.Len(t, transport.sentTo("c1"), 1)
	assert.Len(t, transport.sentTo("c2"), 1)
	assert.Empty(t, transport.edited)
}

func TestDeleteDisplays_RemovesMessageAndRow(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	svc := newTestDisplayService(t, transport, nil)
	queue := createQueue(t, store, "test")
	addDisplay(t, store, queue.ID, "c1", "old-msg")
	addDisplay(t, store, queue.ID, "c2", "keep-msg")

	require.NoError(t, svc.DeleteDisplays(store, queue.ID, "c1"))

	assert.Equal(t, []string{"c1/old-msg"}, transport.deleted)
	displays, err := store.Displays(queue.ID)
	require.NoError(t, err)
	require.Len(t, displays, 1)
	assert.Equal(t, "c2", displays[0].ChannelID)
}

func TestRender_ArchivesVanishedMembers(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	svc := NewDisplayService(transport, &fakeIdentities{vanished: map[string]bool{"ghost": true}}, nil, logger.NewNop())
	queue := createQueue(t, store, "test")
	addDisplay(t, store, queue.ID, "c1", "old-msg")

	require.NoError(t, store.InsertMember(&models.Member{QueueID: queue.ID, UserID: "ghost", PositionKey: 100, JoinTime: 1}))
	require.NoError(t, store.InsertMember(&models.Member{QueueID: queue.ID, UserID: "real", PositionKey: 200, JoinTime: 1}))

	require.NoError(t, svc.Refresh(context.Background(), store, queue.ID, RefreshOpts{}))

	members, err := store.Members(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, memberIDs(members))

	archived, err := store.ArchivedMember(queue.ID, "ghost")
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveReasonVanished, archived.Reason)
}
