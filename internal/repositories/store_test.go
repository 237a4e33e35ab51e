package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/storage"
)

const testGuildID = "guild-1"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	return New(db, testGuildID)
}

func createQueue(t *testing.T, store *Store, name string) *models.Queue {
	t.Helper()
	queue := &models.Queue{
		GuildID:       testGuildID,
		Name:          name,
		PullBatchSize: 1,
		UpdateType:    models.UpdateTypeEdit,
	}
	require.NoError(t, store.InsertQueue(queue))
	return queue
}

func intPtr(v int) *int { return &v }

func TestMembers_Ordering(t *testing.T) {
	store := newTestStore(t)
	queue := createQueue(t, store, "test")

	now := time.Now().UnixMilli()
	rows := []models.Member{
		{QueueID: queue.ID, UserID: "unranked-late", Priority: nil, PositionKey: 400, JoinTime: now},
		{QueueID: queue.ID, UserID: "tier2", Priority: intPtr(2), PositionKey: 300, JoinTime: now},
		{QueueID: queue.ID, UserID: "tier1-late", Priority: intPtr(1), PositionKey: 200, JoinTime: now},
		{QueueID: queue.ID, UserID: "tier1-early", Priority: intPtr(1), PositionKey: 100, JoinTime: now},
		{QueueID: queue.ID, UserID: "unranked-early", Priority: nil, PositionKey: 50, JoinTime: now},
	}
	for i := range rows {
		require.NoError(t, store.InsertMember(&rows[i]))
	}

	members, err := store.Members(queue.ID)
	require.NoError(t, err)
	require.Len(t, members, 5)

	got := make([]string, 0, len(members))
	for _, m := range members {
		got = append(got, m.UserID)
	}
	// Ranked tiers first (lower tier first, position key within a tier),
	// unranked members last regardless of how early they joined.
	assert.Equal(t, []string{"tier1-early", "tier1-late", "tier2", "unranked-early", "unranked-late"}, got)
}

func TestInsertMember_RejoinIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	queue := createQueue(t, store, "test")

	first := &models.Member{QueueID: queue.ID, UserID: "u1", Message: "first", PositionKey: 100, JoinTime: 1}
	require.NoError(t, store.InsertMember(first))

	second := &models.Member{QueueID: queue.ID, UserID: "u1", Message: "second", PositionKey: 200, JoinTime: 2}
	require.NoError(t, store.InsertMember(second))

	members, err := store.Members(queue.ID)
	require.NoError(t, err)
	require.Len(t, members, 1, "rejoin must not create a second row")
	assert.Equal(t, "second", members[0].Message)
	assert.Equal(t, int64(200), members[0].PositionKey)
}

func TestDeleteMember_Archives(t *testing.T) {
	store := newTestStore(t)
	queue := createQueue(t, store, "test")

	member := &models.Member{QueueID: queue.ID, UserID: "u1", Message: "hi", PositionKey: 100, JoinTime: 1}
	require.NoError(t, store.InsertMember(member))

	archived, err := store.DeleteMember(queue.ID, "u1", models.ArchiveReasonLeft)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, models.ArchiveReasonLeft, archived.Reason)
	assert.Equal(t, int64(100), archived.PositionKey)
	assert.NotZero(t, archived.ArchivedTime)

	members, err := store.Members(queue.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	t.Run("ArchivedMember returns the row", func(t *testing.T) {
		row, err := store.ArchivedMember(queue.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, "hi", row.Message)
	})

	t.Run("deleting a missing member yields nil", func(t *testing.T) {
		archived, err := store.DeleteMember(queue.ID, "nobody", models.ArchiveReasonLeft)
		require.NoError(t, err)
		assert.Nil(t, archived)
	})
}

func TestDeleteMembers_PreservesOrder(t *testing.T) {
	store := newTestStore(t)
	queue := createQueue(t, store, "test")

	for i, userID := range []string{"a", "b", "c"} {
		require.NoError(t, store.InsertMember(&models.Member{
			QueueID: queue.ID, UserID: userID, PositionKey: int64(100 * (i + 1)), JoinTime: 1,
		}))
	}

	archived, err := store.DeleteMembers(queue.ID, []string{"c", "a"}, models.ArchiveReasonPulled)
	require.NoError(t, err)
	require.Len(t, archived, 2)
	// Archived rows come back in serving order, not argument order.
	assert.Equal(t, "a", archived[0].UserID)
	assert.Equal(t, "c", archived[1].UserID)

	members, err := store.Members(queue.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "b", members[0].UserID)
}

func TestCacheInvalidation(t *testing.T) {
	store := newTestStore(t)
	queue := createQueue(t, store, "test")

	members, err := store.Members(queue.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	// A write after the cached read must be visible to the next read.
	require.NoError(t, store.InsertMember(&models.Member{
		QueueID: queue.ID, UserID: "u1", PositionKey: 100, JoinTime: 1,
	}))

	members, err = store.Members(queue.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestInsertQueue_DuplicateName(t *testing.T) {
	store := newTestStore(t)
	createQueue(t, store, "dup")

	err := store.InsertQueue(&models.Queue{GuildID: testGuildID, Name: "dup", PullBatchSize: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDeleteQueue_Cascades(t *testing.T) {
	store := newTestStore(t)
	queue := createQueue(t, store, "test")

	require.NoError(t, store.InsertMember(&models.Member{QueueID: queue.ID, UserID: "u1", PositionKey: 100, JoinTime: 1}))
	require.NoError(t, store.InsertDisplay(&models.Display{GuildID: testGuildID, QueueID: queue.ID, ChannelID: "c1"}))
	require.NoError(t, store.InsertPrioritized(&models.Prioritized{GuildID: testGuildID, QueueID: queue.ID, SubjectID: "u1", PriorityOrder: 3}))
	require.NoError(t, store.InsertWhitelisted(&models.Whitelisted{GuildID: testGuildID, QueueID: queue.ID, SubjectID: "u2"}))

	require.NoError(t, store.DeleteQueue(queue.ID, models.ArchiveReasonCleared))

	queues, err := store.Queues()
	require.NoError(t, err)
	assert.Empty(t, queues)

	displays, err := store.Displays(queue.ID)
	require.NoError(t, err)
	assert.Empty(t, displays)

	prioritized, err := store.Prioritized(queue.ID)
	require.NoError(t, err)
	assert.Empty(t, prioritized)

	// Members were archived, not dropped.
	archived, err := store.ArchivedMember(queue.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveReasonCleared, archived.Reason)
}

func TestInsertDisplay_UpsertsOnQueueChannel(t *testing.T) {
	store := newTestStore(t)
	queue := createQueue(t, store, "test")

	first := &models.Display{GuildID: testGuildID, QueueID: queue.ID, ChannelID: "c1", LastMessageID: "m1"}
	require.NoError(t, store.InsertDisplay(first))

	second := &models.Display{GuildID: testGuildID, QueueID: queue.ID, ChannelID: "c1", LastMessageID: "m2"}
	require.NoError(t, store.InsertDisplay(second))

	displays, err := store.Displays(queue.ID)
	require.NoError(t, err)
	require.Len(t, displays, 1)
	assert.Equal(t, "m2", displays[0].LastMessageID)
}

func TestIncrementGuildStat(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.IncrementGuildStat(models.StatDisplaysSent, 1))
	require.NoError(t, store.IncrementGuildStat(models.StatDisplaysSent, 2))

	guild, err := store.Guild()
	require.NoError(t, err)
	assert.Equal(t, 3, guild.DisplaysSent)
}

func TestManager_SharesStorePerGuild(t *testing.T) {
	store := newTestStore(t)
	manager := NewManager(store.DB())

	a := manager.Store("g1")
	b := manager.Store("g1")
	c := manager.Store("g2")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	ids, err := manager.GuildIDs()
	require.NoError(t, err)
	assert.Contains(t, ids, "g1")
	assert.Contains(t, ids, "g2")
}
