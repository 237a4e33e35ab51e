package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	logger "github.com/queuebot/queuebot/middleware/log"
	"github.com/queuebot/queuebot/utils/poskey"
)

// MemberService is the membership ordering engine: join eligibility,
// insertion, bulk deletion, manual reposition, and shuffle. It only ever
// operates on concrete user IDs; role mentions are expanded to user ID sets
// at the handler boundary.
type MemberService struct {
	keys      *poskey.Generator
	scheduler *DisplayScheduler
	notifier  Notifier
	log       *logger.Logger
}

// NewMemberService wires the ordering engine.
func NewMemberService(keys *poskey.Generator, scheduler *DisplayScheduler, notifier Notifier, log *logger.Logger) *MemberService {
	return &MemberService{
		keys:      keys,
		scheduler: scheduler,
		notifier:  notifier,
		log:       log,
	}
}

// JoinRequest describes one user's attempt to join a queue. RoleIDs are the
// candidate's guild roles, used for priority and allow/deny matching.
type JoinRequest struct {
	UserID  string
	RoleIDs []string
	Message string
	// Force bypasses the lock, capacity, and access list checks.
	Force bool
}

// Join inserts the candidate into the queue. Re-joining is idempotent: the
// existing row's message, priority, and position are replaced rather than a
// second row created. A user rejoining within the queue's grace period
// reclaims their old position.
func (s *MemberService) Join(store *repositories.Store, queue *models.Queue, req JoinRequest) (*models.Member, error) {
	if !req.Force {
		if err := s.verifyEligibility(store, queue, req.UserID, req.RoleIDs); err != nil {
			return nil, err
		}
	}

	priority, err := memberPriority(store, queue.ID, req.UserID, req.RoleIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	member := &models.Member{
		QueueID:     queue.ID,
		UserID:      req.UserID,
		Message:     req.Message,
		Priority:    priority,
		PositionKey: s.keys.Next(),
		JoinTime:    now,
	}

	if queue.GracePeriod > 0 {
		if old := s.reclaimablePosition(store, queue, req.UserID, now); old != nil {
			member.PositionKey = old.PositionKey
			member.JoinTime = old.JoinTime
		}
	}

	if err := store.InsertMember(member); err != nil {
		return nil, err
	}

	s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{})
	return member, nil
}

// reclaimablePosition returns the archived row whose position the rejoining
// user may take back, if they left within the grace period.
func (s *MemberService) reclaimablePosition(store *repositories.Store, queue *models.Queue, userID string, nowMillis int64) *models.ArchivedMember {
	archived, err := store.ArchivedMember(queue.ID, userID)
	if err != nil {
		return nil
	}
	if archived.Reason != models.ArchiveReasonLeft {
		return nil
	}
	if nowMillis-archived.ArchivedTime > int64(queue.GracePeriod)*1000 {
		return nil
	}
	return archived
}

func (s *MemberService) verifyEligibility(store *repositories.Store, queue *models.Queue, userID string, roleIDs []string) error {
	if queue.LockToggle {
		return ErrQueueLocked
	}
	if queue.Size != nil {
		members, err := store.Members(queue.ID)
		if err != nil {
			return err
		}
		if len(members) >= *queue.Size {
			return ErrQueueFull
		}
	}

	whitelisted, err := store.Whitelisted(queue.ID)
	if err != nil {
		return err
	}
	if len(whitelisted) > 0 {
		allowed := false
		for _, entry := range whitelisted {
			if subjectMatches(entry.SubjectID, entry.IsRole, userID, roleIDs) {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrNotOnWhitelist
		}
	}

	blacklisted, err := store.Blacklisted(queue.ID)
	if err != nil {
		return err
	}
	for _, entry := range blacklisted {
		if subjectMatches(entry.SubjectID, entry.IsRole, userID, roleIDs) {
			return ErrOnBlacklist
		}
	}
	return nil
}

// subjectMatches reports whether an access list entry applies to the user.
func subjectMatches(subjectID string, isRole bool, userID string, roleIDs []string) bool {
	if !isRole {
		return subjectID == userID
	}
	for _, roleID := range roleIDs {
		if roleID == subjectID {
			return true
		}
	}
	return false
}

// Leave removes the user from the queue, archiving the row with the "left"
// reason that grace-period rejoins look for.
func (s *MemberService) Leave(store *repositories.Store, queue *models.Queue, userID string) (*models.ArchivedMember, error) {
	archived, err := store.DeleteMember(queue.ID, userID, models.ArchiveReasonLeft)
	if err != nil {
		return nil, err
	}
	if archived == nil {
		return nil, ErrMemberNotFound
	}
	s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{})
	return archived, nil
}

// DeleteSelector picks which members a bulk delete removes. Exactly one of
// UserIDs or the count form is used: a nil UserIDs slice selects the first
// Count members in serving order (0 meaning the queue's pull batch size).
type DeleteSelector struct {
	UserIDs []string
	Count   int
}

// DeleteMembers removes members from each queue per the selector, archiving
// every removal with the given reason. For count-based selection, a queue
// with fewer members than requested fails the whole operation with
// ErrInsufficientMembers before anything is mutated, unless force is set,
// in which case as many as are available are removed.
func (s *MemberService) DeleteMembers(store *repositories.Store, queues []models.Queue, sel DeleteSelector, reason models.ArchiveReason, force bool) ([]models.ArchivedMember, error) {
	type plannedDelete struct {
		queue   models.Queue
		userIDs []string
	}

	plans := make([]plannedDelete, 0, len(queues))
	for _, queue := range queues {
		if sel.UserIDs != nil {
			plans = append(plans, plannedDelete{queue: queue, userIDs: sel.UserIDs})
			continue
		}

		count := sel.Count
		if count <= 0 {
			count = queue.PullBatchSize
		}
		if count <= 0 {
			count = 1
		}
		members, err := store.Members(queue.ID)
		if err != nil {
			return nil, err
		}
		if len(members) < count {
			if !force {
				return nil, fmt.Errorf("%w: queue %q has %d of %d", ErrInsufficientMembers, queue.Name, len(members), count)
			}
			count = len(members)
		}
		userIDs := make([]string, 0, count)
		for _, m := range members[:count] {
			userIDs = append(userIDs, m.UserID)
		}
		plans = append(plans, plannedDelete{queue: queue, userIDs: userIDs})
	}

	var deleted []models.ArchivedMember
	var toNotify []string
	affected := make([]uint, 0, len(plans))
	for _, plan := range plans {
		archived, err := store.DeleteMembers(plan.queue.ID, plan.userIDs, reason)
		if err != nil {
			return nil, err
		}
		deleted = append(deleted, archived...)
		if plan.queue.NotificationsToggle {
			for _, a := range archived {
				toNotify = append(toNotify, a.UserID)
			}
		}
		affected = append(affected, plan.queue.ID)
	}

	s.scheduler.RequestRefreshMany(store, affected, RefreshOpts{})

	if len(toNotify) > 0 && s.notifier != nil {
		s.notifier.NotifyMembers(toNotify, notificationText(reason))
	}
	return deleted, nil
}

// Pull removes the front-most members of each queue for servicing. A count
// of 0 uses each queue's pull batch size.
func (s *MemberService) Pull(store *repositories.Store, queues []models.Queue, count int, force bool) ([]models.ArchivedMember, error) {
	return s.DeleteMembers(store, queues, DeleteSelector{Count: count}, models.ArchiveReasonPulled, force)
}

func notificationText(reason models.ArchiveReason) string {
	switch reason {
	case models.ArchiveReasonPulled:
		return "You have been pulled from the queue. You're up!"
	case models.ArchiveReasonKicked:
		return "You have been removed from the queue."
	case models.ArchiveReasonCleared:
		return "The queue you were in has been cleared."
	default:
		return "You are no longer in the queue."
	}
}

// Move repositions a member to the 1-based target index. The recorded set
// of position keys is redistributed across the member list in its new order;
// no keys are minted or dropped, so relative spacing is conserved. An
// out-of-range index is clamped to the list bounds.
func (s *MemberService) Move(store *repositories.Store, queue *models.Queue, userID string, position int) ([]models.Member, error) {
	members, err := store.Members(queue.ID)
	if err != nil {
		return nil, err
	}

	current := -1
	for i := range members {
		if members[i].UserID == userID {
			current = i
			break
		}
	}
	if current == -1 {
		return nil, ErrMemberNotFound
	}

	target := position - 1
	if target < 0 {
		target = 0
	}
	if target > len(members)-1 {
		target = len(members) - 1
	}

	keys := make([]int64, len(members))
	for i := range members {
		keys[i] = members[i].PositionKey
	}

	moved := members[current]
	reordered := make([]models.Member, 0, len(members))
	reordered = append(reordered, members[:current]...)
	reordered = append(reordered, members[current+1:]...)
	reordered = append(reordered[:target], append([]models.Member{moved}, reordered[target:]...)...)

	for i := range reordered {
		reordered[i].PositionKey = keys[i]
	}

	if err := store.UpdateMemberPositions(reordered); err != nil {
		return nil, err
	}

	s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{})
	return reordered, nil
}

// Shuffle randomly permutes the position keys among the queue's members.
// Priority tiers are untouched, so the shuffle randomizes order within each
// tier, never across tiers.
func (s *MemberService) Shuffle(store *repositories.Store, queue *models.Queue) ([]models.Member, error) {
	members, err := store.Members(queue.ID)
	if err != nil {
		return nil, err
	}
	if len(members) < 2 {
		return members, nil
	}

	keys := make([]int64, len(members))
	for i := range members {
		keys[i] = members[i].PositionKey
	}
	rand.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})

	shuffled := make([]models.Member, len(members))
	copy(shuffled, members)
	for i := range shuffled {
		shuffled[i].PositionKey = keys[i]
	}

	if err := store.UpdateMemberPositions(shuffled); err != nil {
		return nil, err
	}

	s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{})
	return shuffled, nil
}

// Clear removes every member of the queue.
func (s *MemberService) Clear(store *repositories.Store, queue *models.Queue) ([]models.ArchivedMember, error) {
	archived, err := store.ClearMembers(queue.ID, models.ArchiveReasonCleared)
	if err != nil {
		return nil, err
	}
	s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{})
	return archived, nil
}

// UpdateMessage replaces the free-text message shown next to a member.
func (s *MemberService) UpdateMessage(store *repositories.Store, queue *models.Queue, userID, message string) (*models.Member, error) {
	member, err := store.Member(queue.ID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	member.Message = message
	if err := store.UpdateMember(member); err != nil {
		return nil, err
	}
	s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{})
	return member, nil
}

// Position returns a member's 1-based ordinal position in the queue.
func (s *MemberService) Position(store *repositories.Store, queue *models.Queue, userID string) (int, *models.Member, error) {
	members, err := store.Members(queue.ID)
	if err != nil {
		return 0, nil, err
	}
	for i := range members {
		if members[i].UserID == userID {
			m := members[i]
			return i + 1, &m, nil
		}
	}
	return 0, nil, ErrMemberNotFound
}
