package repositories

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/queuebot/queuebot/internal/models"
)

// InsertMember inserts a member row, replacing the mutable fields on
// (queue_id, user_id) conflict so a re-join is idempotent.
func (s *Store) InsertMember(member *models.Member) error {
	s.invalidate(kindMember)
	member.GuildID = s.guildID
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "queue_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"message", "priority", "position_key"}),
	}).Create(member).Error
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return s.IncrementGuildStat(models.StatMembersAdded, 1)
}

// UpdateMember saves changed member fields.
func (s *Store) UpdateMember(member *models.Member) error {
	s.invalidate(kindMember)
	if err := s.db.Save(member).Error; err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return nil
}

// UpdateMemberPositions rewrites the position keys of the given members in
// one transaction. Used by move and shuffle, which redistribute the existing
// key multiset rather than minting new keys.
func (s *Store) UpdateMemberPositions(members []models.Member) error {
	s.invalidate(kindMember)
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range members {
			err := tx.Model(&models.Member{}).
				Where("id = ?", members[i].ID).
				UpdateColumn("position_key", members[i].PositionKey).Error
			if err != nil {
				return fmt.Errorf("failed to update member position: %w", err)
			}
		}
		return nil
	})
}

// UpdateMemberPriorities rewrites the priority tier of the given members in
// one transaction. Used by priority re-evaluation.
func (s *Store) UpdateMemberPriorities(members []models.Member) error {
	s.invalidate(kindMember)
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range members {
			err := tx.Model(&models.Member{}).
				Where("id = ?", members[i].ID).
				UpdateColumn("priority", members[i].Priority).Error
			if err != nil {
				return fmt.Errorf("failed to update member priority: %w", err)
			}
		}
		return nil
	})
}

// DeleteMember archives and removes one (queue, user) member. Returns the
// archived copy, or nil when the user was not a member.
func (s *Store) DeleteMember(queueID uint, userID string, reason models.ArchiveReason) (*models.ArchivedMember, error) {
	s.invalidate(kindMember)
	var archived []models.ArchivedMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		archived, err = archiveAndDeleteMembers(tx, s.guildID, queueID, []string{userID}, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(archived) == 0 {
		return nil, nil
	}
	if err := s.IncrementGuildStat(models.StatArchivedAdded, 1); err != nil {
		return nil, err
	}
	a := archived[0]
	return &a, nil
}

// DeleteMembers archives and removes every listed user from one queue,
// returning the archived copies in serving order.
func (s *Store) DeleteMembers(queueID uint, userIDs []string, reason models.ArchiveReason) ([]models.ArchivedMember, error) {
	s.invalidate(kindMember)
	var archived []models.ArchivedMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		archived, err = archiveAndDeleteMembers(tx, s.guildID, queueID, userIDs, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.IncrementGuildStat(models.StatArchivedAdded, len(archived)); err != nil {
		return nil, err
	}
	return archived, nil
}

// ClearMembers archives and removes every member of one queue.
func (s *Store) ClearMembers(queueID uint, reason models.ArchiveReason) ([]models.ArchivedMember, error) {
	s.invalidate(kindMember)
	var archived []models.ArchivedMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		archived, err = archiveAndDeleteMembers(tx, s.guildID, queueID, nil, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.IncrementGuildStat(models.StatArchivedAdded, len(archived)); err != nil {
		return nil, err
	}
	return archived, nil
}

// archiveAndDeleteMembers copies matching member rows into archived_members
// and deletes them, inside the caller's transaction. A nil userIDs slice
// matches the whole queue. Rows are archived in serving order.
func archiveAndDeleteMembers(tx *gorm.DB, guildID string, queueID uint, userIDs []string, reason models.ArchiveReason) ([]models.ArchivedMember, error) {
	query := tx.Where("queue_id = ?", queueID).Order(memberOrder)
	if userIDs != nil {
		query = query.Where("user_id IN ?", userIDs)
	}

	var members []models.Member
	if err := query.Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to select members for archive: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	now := time.Now().UnixMilli()
	archived := make([]models.ArchivedMember, 0, len(members))
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		archived = append(archived, models.ArchivedMember{
			GuildID:      guildID,
			QueueID:      m.QueueID,
			UserID:       m.UserID,
			Message:      m.Message,
			Priority:     m.Priority,
			PositionKey:  m.PositionKey,
			JoinTime:     m.JoinTime,
			ArchivedTime: now,
			Reason:       reason,
		})
		ids = append(ids, m.ID)
	}

	if err := tx.Create(&archived).Error; err != nil {
		return nil, fmt.Errorf("failed to archive members: %w", err)
	}
	if err := tx.Delete(&models.Member{}, ids).Error; err != nil {
		return nil, fmt.Errorf("failed to delete members: %w", err)
	}
	return archived, nil
}
