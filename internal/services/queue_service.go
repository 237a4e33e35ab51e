package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	logger "github.com/queuebot/queuebot/middleware/log"
)

// QueueService manages queue lifecycle and settings. Setting changes push a
// display refresh because most of them alter the rendered output.
type QueueService struct {
	scheduler *DisplayScheduler
	log       *logger.Logger
}

func NewQueueService(scheduler *DisplayScheduler, log *logger.Logger) *QueueService {
	return &QueueService{scheduler: scheduler, log: log}
}

// CreateQueue inserts a new queue. Queue names are unique per guild.
func (s *QueueService) CreateQueue(store *repositories.Store, queue *models.Queue) error {
	if queue.PullBatchSize <= 0 {
		queue.PullBatchSize = 1
	}
	if err := store.InsertQueue(queue); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrQueueExists
		}
		return err
	}
	return nil
}

// UpdateQueue persists changed settings and refreshes the queue's displays.
func (s *QueueService) UpdateQueue(store *repositories.Store, queue *models.Queue) error {
	if queue.PullBatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if err := store.UpdateQueue(queue); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrQueueExists
		}
		return err
	}
	s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{})
	return nil
}

// SetLock toggles whether new members may join.
func (s *QueueService) SetLock(store *repositories.Store, queue *models.Queue, locked bool) error {
	queue.LockToggle = locked
	return s.UpdateQueue(store, queue)
}

// DeleteQueue removes the queue with its members, displays, access lists,
// and schedules. Members are archived before deletion.
func (s *QueueService) DeleteQueue(store *repositories.Store, queueID uint) error {
	return store.DeleteQueue(queueID, models.ArchiveReasonCleared)
}

// QueueByName looks a queue up by its unique per-guild name.
func (s *QueueService) QueueByName(store *repositories.Store, name string) (*models.Queue, error) {
	queue, err := store.QueueByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueueNotFound
		}
		return nil, err
	}
	return queue, nil
}
