package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/storage"
	"github.com/queuebot/queuebot/internal/utils"
	logger "github.com/queuebot/queuebot/middleware/log"
	"github.com/queuebot/queuebot/utils/poskey"
)

const testGuildID = "guild-1"

var storeSeq atomic.Int64

func newTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	// Each store gets its own database; property tests open several per test.
	dsn := fmt.Sprintf("file:svc-%s-%d?mode=memory&cache=shared", t.Name(), storeSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	return repositories.New(db, testGuildID)
}

func createQueue(t *testing.T, store *repositories.Store, name string) *models.Queue {
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

// refreshSpy counts refresh executions per queue.
type refreshSpy struct {
	mu    sync.Mutex
	calls map[uint]int
}

func newRefreshSpy() *refreshSpy {
	return &refreshSpy{calls: make(map[uint]int)}
}

func (r *refreshSpy) refresh(ctx context.Context, store *repositories.Store, queueID uint, opts RefreshOpts) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[queueID]++
	return nil
}

func (r *refreshSpy) count(queueID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[queueID]
}

func (r *refreshSpy) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// newTestScheduler wires a scheduler whose refreshes land on the spy. The
// pool is started so immediate refreshes execute; Stop is registered as
// cleanup.
func newTestScheduler(t *testing.T, spy *refreshSpy, period time.Duration) *DisplayScheduler {
	t.Helper()
	pool := utils.NewWorkerPool(2, 64, zap.NewNop())
	pool.Start()
	t.Cleanup(pool.Stop)

	scheduler := NewDisplayScheduler(spy.refresh, pool, logger.NewNop(), period)
	scheduler.Start()
	t.Cleanup(scheduler.Stop)
	return scheduler
}

func newTestMemberService(t *testing.T, notifier Notifier) (*MemberService, *refreshSpy) {
	t.Helper()
	spy := newRefreshSpy()
	scheduler := newTestScheduler(t, spy, 20*time.Millisecond)
	return NewMemberService(poskey.NewGenerator(), scheduler, notifier, logger.NewNop()), spy
}

// fakeNotifier records delivered notifications.
type fakeNotifier struct {
	mu       sync.Mutex
	members  map[string]string
	operator map[string]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		members:  make(map[string]string),
		operator: make(map[string]string),
	}
}

func (f *fakeNotifier) NotifyMembers(userIDs []string, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range userIDs {
		f.members[id] = message
	}
}

func (f *fakeNotifier) NotifyOperator(userID, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operator[userID] = message
}

func (f *fakeNotifier) memberNotified(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[userID]
	return ok
}

func (f *fakeNotifier) operatorNotified(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.operator[userID]
	return ok
}

// fakeRoles maps user IDs to fixed role sets.
type fakeRoles map[string][]string

func (f fakeRoles) RolesOf(guildID, userID string) ([]string, error) {
	if roles, ok := f[userID]; ok {
		return roles, nil
	}
	return nil, nil
}

func memberIDs(members []models.Member) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}
