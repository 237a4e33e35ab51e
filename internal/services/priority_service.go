package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	logger "github.com/queuebot/queuebot/middleware/log"
)

// RoleProvider resolves the guild roles a user currently holds. The Discord
// adapter implements it; tests supply a fixed map.
type RoleProvider interface {
	RolesOf(guildID, userID string) ([]string, error)
}

// PriorityService manages the prioritized/whitelisted/blacklisted access
// lists and keeps stored member priorities consistent with them. Every
// mutation re-evaluates the affected queues' members before any display
// refresh is requested, so a refresh never renders stale ranks.
type PriorityService struct {
	roles     RoleProvider
	scheduler *DisplayScheduler
	log       *logger.Logger
}

func NewPriorityService(roles RoleProvider, scheduler *DisplayScheduler, log *logger.Logger) *PriorityService {
	return &PriorityService{roles: roles, scheduler: scheduler, log: log}
}

// memberPriority computes the effective priority of a user in a queue: the
// minimum priority order across every prioritized entry matching the user
// directly or through one of their roles, or nil when none match.
func memberPriority(store *repositories.Store, queueID uint, userID string, roleIDs []string) (*int, error) {
	entries, err := store.Prioritized(queueID)
	if err != nil {
		return nil, err
	}
	var best *int
	for _, entry := range entries {
		if !subjectMatches(entry.SubjectID, entry.IsRole, userID, roleIDs) {
			continue
		}
		if best == nil || entry.PriorityOrder < *best {
			order := entry.PriorityOrder
			best = &order
		}
	}
	return best, nil
}

// reEvaluate recomputes and persists the priority of every member of the
// queue from the current prioritized entries.
func (s *PriorityService) reEvaluate(store *repositories.Store, queueID uint) error {
	members, err := store.Members(queueID)
	if err != nil {
		return err
	}
	changed := make([]models.Member, 0, len(members))
	for _, member := range members {
		roleIDs, err := s.roles.RolesOf(store.GuildID(), member.UserID)
		if err != nil {
			// The user may have left the guild; rank them as unprioritized
			// and let the next render archive them as vanished.
			roleIDs = nil
		}
		priority, err := memberPriority(store, queueID, member.UserID, roleIDs)
		if err != nil {
			return err
		}
		if !priorityEqual(member.Priority, priority) {
			member.Priority = priority
			changed = append(changed, member)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return store.UpdateMemberPriorities(changed)
}

func priorityEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Prioritize adds a user or role to a queue's prioritized list and
// re-ranks the queue's members.
func (s *PriorityService) Prioritize(store *repositories.Store, queueID uint, subjectID string, isRole bool, order int, reason string) (*models.Prioritized, error) {
	entry := &models.Prioritized{
		QueueID:       queueID,
		SubjectID:     subjectID,
		IsRole:        isRole,
		PriorityOrder: order,
		Reason:        reason,
	}
	if err := store.InsertPrioritized(entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEntryExists
		}
		return nil, err
	}
	if err := s.reEvaluate(store, queueID); err != nil {
		return nil, err
	}
	s.scheduler.RequestRefresh(store, queueID, RefreshOpts{})
	return entry, nil
}

// UpdatePrioritized changes an entry's priority order or reason and
// re-ranks the queue's members.
func (s *PriorityService) UpdatePrioritized(store *repositories.Store, entry *models.Prioritized) error {
	if err := store.UpdatePrioritized(entry); err != nil {
		return err
	}
	if err := s.reEvaluate(store, entry.QueueID); err != nil {
		return err
	}
	s.scheduler.RequestRefresh(store, entry.QueueID, RefreshOpts{})
	return nil
}

// Unprioritize removes a prioritized entry and re-ranks the queue's members.
func (s *PriorityService) Unprioritize(store *repositories.Store, entry *models.Prioritized) error {
	if err := store.DeletePrioritized(entry.ID); err != nil {
		return err
	}
	if err := s.reEvaluate(store, entry.QueueID); err != nil {
		return err
	}
	s.scheduler.RequestRefresh(store, entry.QueueID, RefreshOpts{})
	return nil
}

// Whitelist adds a user or role to a queue's whitelist. Access lists only
// gate future joins, so no re-ranking is needed.
func (s *PriorityService) Whitelist(store *repositories.Store, queueID uint, subjectID string, isRole bool, reason string) (*models.Whitelisted, error) {
	entry := &models.Whitelisted{
		QueueID:   queueID,
		SubjectID: subjectID,
		IsRole:    isRole,
		Reason:    reason,
	}
	if err := store.InsertWhitelisted(entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEntryExists
		}
		return nil, err
	}
	return entry, nil
}

// Unwhitelist removes a whitelist entry.
func (s *PriorityService) Unwhitelist(store *repositories.Store, entry *models.Whitelisted) error {
	return store.DeleteWhitelisted(entry.ID)
}

// Blacklist adds a user or role to a queue's blacklist and kicks any
// current member the entry matches.
func (s *PriorityService) Blacklist(store *repositories.Store, queue *models.Queue, subjectID string, isRole bool, reason string) (*models.Blacklisted, error) {
	entry := &models.Blacklisted{
		QueueID:   queue.ID,
		SubjectID: subjectID,
		IsRole:    isRole,
		Reason:    reason,
	}
	if err := store.InsertBlacklisted(entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEntryExists
		}
		return nil, err
	}

	members, err := store.Members(queue.ID)
	if err != nil {
		return nil, err
	}
	var kicked []string
	for _, member := range members {
		var roleIDs []string
		if isRole {
			roleIDs, _ = s.roles.RolesOf(store.GuildID(), member.UserID)
		}
		if subjectMatches(subjectID, isRole, member.UserID, roleIDs) {
			kicked = append(kicked, member.UserID)
		}
	}
	if len(kicked) > 0 {
		if _, err := store.DeleteMembers(queue.ID, kicked, models.ArchiveReasonKicked); err != nil {
			return nil, err
		}
		s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{})
	}
	return entry, nil
}

// Unblacklist removes a blacklist entry.
func (s *PriorityService) Unblacklist(store *repositories.Store, entry *models.Blacklisted) error {
	return store.DeleteBlacklisted(entry.ID)
}
