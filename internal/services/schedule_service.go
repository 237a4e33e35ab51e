package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	logger "github.com/queuebot/queuebot/middleware/log"
)

// ScheduleService runs queue commands on cron expressions. One cron runner
// serves every guild; each schedule row maps to one registered entry.
type ScheduleService struct {
	stores    *repositories.Manager
	members   *MemberService
	scheduler *DisplayScheduler
	log       *logger.Logger

	runner *cron.Cron

	mu      sync.Mutex
	entries map[uint]cron.EntryID
}

func NewScheduleService(stores *repositories.Manager, members *MemberService, scheduler *DisplayScheduler, log *logger.Logger) *ScheduleService {
	return &ScheduleService{
		stores:    stores,
		members:   members,
		scheduler: scheduler,
		log:       log,
		runner:    cron.New(),
		entries:   make(map[uint]cron.EntryID),
	}
}

// Start registers every stored schedule and launches the runner.
func (s *ScheduleService) Start() error {
	guildIDs, err := s.stores.GuildIDs()
	if err != nil {
		return fmt.Errorf("failed to list guilds: %w", err)
	}
	for _, guildID := range guildIDs {
		store := s.stores.Store(guildID)
		schedules, err := store.AllSchedules()
		if err != nil {
			return err
		}
		for _, schedule := range schedules {
			if err := s.register(store, schedule); err != nil {
				// A schedule that no longer parses must not keep the bot
				// from starting.
				s.log.Warn("skipping unparseable schedule",
					zap.Uint("schedule_id", schedule.ID),
					zap.String("cron", schedule.Cron),
					zap.Error(err),
				)
			}
		}
	}
	s.runner.Start()
	return nil
}

// Stop halts the runner and waits for running jobs to finish.
func (s *ScheduleService) Stop() {
	ctx := s.runner.Stop()
	<-ctx.Done()
}

// AddSchedule validates, persists, and registers a new schedule.
func (s *ScheduleService) AddSchedule(store *repositories.Store, schedule *models.Schedule) error {
	if _, err := cron.ParseStandard(schedule.Cron); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCron, schedule.Cron)
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(schedule.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %s", ErrInvalidCron, schedule.Timezone)
	}
	if err := store.InsertSchedule(schedule); err != nil {
		return err
	}
	if err := s.register(store, *schedule); err != nil {
		return err
	}
	s.scheduler.RequestRefresh(store, schedule.QueueID, RefreshOpts{})
	return nil
}

// DeleteSchedule removes the schedule and unregisters its cron entry.
func (s *ScheduleService) DeleteSchedule(store *repositories.Store, schedule *models.Schedule) error {
	if err := store.DeleteSchedule(schedule.ID); err != nil {
		return err
	}
	s.mu.Lock()
	if entryID, ok := s.entries[schedule.ID]; ok {
		s.runner.Remove(entryID)
		delete(s.entries, schedule.ID)
	}
	s.mu.Unlock()
	s.scheduler.RequestRefresh(store, schedule.QueueID, RefreshOpts{})
	return nil
}

func (s *ScheduleService) register(store *repositories.Store, schedule models.Schedule) error {
	spec := schedule.Cron
	if schedule.Timezone != "" {
		spec = "CRON_TZ=" + schedule.Timezone + " " + spec
	}
	entryID, err := s.runner.AddFunc(spec, func() {
		s.runScheduled(store, schedule)
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[schedule.ID] = entryID
	s.mu.Unlock()
	return nil
}

func (s *ScheduleService) runScheduled(store *repositories.Store, schedule models.Schedule) {
	log := s.log.WithFields(
		zap.Uint("schedule_id", schedule.ID),
		zap.String("command", string(schedule.Command)),
		zap.Uint("queue_id", schedule.QueueID),
	)

	queue, err := store.Queue(schedule.QueueID)
	if err != nil {
		log.Warn("scheduled queue no longer exists", zap.Error(err))
		return
	}

	switch schedule.Command {
	case models.ScheduleCommandClear:
		_, err = s.members.Clear(store, queue)
	case models.ScheduleCommandPull:
		_, err = s.members.Pull(store, []models.Queue{*queue}, 0, true)
	case models.ScheduleCommandShuffle:
		_, err = s.members.Shuffle(store, queue)
	case models.ScheduleCommandShow:
		s.scheduler.RequestRefresh(store, queue.ID, RefreshOpts{ForceNew: true})
	}
	if err != nil {
		log.Error("scheduled command failed", zap.Error(err))
		return
	}
	log.Info("ran scheduled command")
}
