package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/queuebot/queuebot/middleware/log"
)

func newTestPriorityService(t *testing.T, roles RoleProvider) *PriorityService {
	t.Helper()
	scheduler := newTestScheduler(t, newRefreshSpy(), 20*time.Millisecond)
	return NewPriorityService(roles, scheduler, logger.NewNop())
}

func TestPrioritize_ReRanksExistingMembers(t *testing.T) {
	store := newTestStore(t)
	members, _ := newTestMemberService(t, nil)
	svc := newTestPriorityService(t, fakeRoles{"u2": {"role-vip"}})
	queue := createQueue(t, store, "test")

	joinAll(t, members, store, queue, "u1", "u2", "u3")

	// Prioritizing the role u2 holds must lift u2 above the earlier joiners.
	_, err := svc.Prioritize(store, queue.ID, "role-vip", true, 1, "")
	require.NoError(t, err)

	rows, err := store.Members(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1", "u3"}, memberIDs(rows))
	require.NotNil(t, rows[0].Priority)
	assert.Equal(t, 1, *rows[0].Priority)
}

func TestUnprioritize_DropsRank(t *testing.T) {
	store := newTestStore(t)
	members, _ := newTestMemberService(t, nil)
	svc := newTestPriorityService(t, fakeRoles{})
	queue := createQueue(t, store, "test")

	entry, err := svc.Prioritize(store, queue.ID, "u2", false, 1, "")
	require.NoError(t, err)
	joinAll(t, members, store, queue, "u1", "u2")

	rows, err := store.Members(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1"}, memberIDs(rows))

	require.NoError(t, svc.Unprioritize(store, entry))

	rows, err = store.Members(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, memberIDs(rows), "losing rank falls back to arrival order")
	assert.Nil(t, rows[1].Priority)
}

func TestBlacklist_KicksMatchingMembers(t *testing.T) {
	store := newTestStore(t)
	members, _ := newTestMemberService(t, nil)
	svc := newTestPriorityService(t, fakeRoles{"u1": {"role-banned"}})
	queue := createQueue(t, store, "test")

	joinAll(t, members, store, queue, "u1", "u2")

	_, err := svc.Blacklist(store, queue, "role-banned", true, "spam")
	require.NoError(t, err)

	rows, err := store.Members(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, memberIDs(rows))

	archived, err := store.ArchivedMember(queue.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "kicked", string(archived.Reason))
}
