package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	logger "github.com/queuebot/queuebot/middleware/log"
)

// DisplayService renders queues into pages and pushes them to their display
// surfaces. Its Refresh method is the RefreshFunc the scheduler executes.
type DisplayService struct {
	transport  SurfaceTransport
	identities IdentityResolver
	notifier   Notifier
	log        *logger.Logger
}

func NewDisplayService(transport SurfaceTransport, identities IdentityResolver, notifier Notifier, log *logger.Logger) *DisplayService {
	return &DisplayService{
		transport:  transport,
		identities: identities,
		notifier:   notifier,
		log:        log,
	}
}

// InsertDisplays registers the queue on each channel and pushes the first
// render. The first push always sends a fresh message so an edit can never
// land on some unrelated message in the channel.
func (s *DisplayService) InsertDisplays(ctx context.Context, store *repositories.Store, queue *models.Queue, channelIDs []string, initiatorID string) error {
	displayIDs := make([]uint, 0, len(channelIDs))
	for _, channelID := range channelIDs {
		display := &models.Display{
			GuildID:   store.GuildID(),
			QueueID:   queue.ID,
			ChannelID: channelID,
		}
		if err := store.InsertDisplay(display); err != nil {
			return err
		}
		displayIDs = append(displayIDs, display.ID)
	}
	return s.Refresh(ctx, store, queue.ID, RefreshOpts{
		DisplayIDs:  displayIDs,
		ForceNew:    true,
		InitiatorID: initiatorID,
	})
}

// DeleteDisplays detaches the queue from the channel, deleting the last
// pushed message best-effort.
func (s *DisplayService) DeleteDisplays(store *repositories.Store, queueID uint, channelID string) error {
	displays, err := store.Displays(queueID)
	if err != nil {
		return err
	}
	for _, display := range displays {
		if display.ChannelID != channelID {
			continue
		}
		if display.LastMessageID != "" {
			if err := s.transport.DeleteMessage(display.ChannelID, display.LastMessageID); err != nil {
				s.log.Warn("failed to delete display message",
					zap.String("channel_id", display.ChannelID),
					zap.Error(err),
				)
			}
		}
		if err := store.DeleteDisplay(display.ID); err != nil {
			return err
		}
	}
	return nil
}

// Refresh renders the queue once and pushes the result to every registered
// display surface. One failing surface never blocks the others.
func (s *DisplayService) Refresh(ctx context.Context, store *repositories.Store, queueID uint, opts RefreshOpts) error {
	log := s.log.WithContext(ctx)

	queue, err := store.Queue(queueID)
	if err != nil {
		return fmt.Errorf("failed to load queue %d: %w", queueID, err)
	}

	displays, err := store.Displays(queueID)
	if err != nil {
		return err
	}
	if len(opts.DisplayIDs) > 0 {
		displays = filterDisplays(displays, opts.DisplayIDs)
	}
	if len(displays) == 0 {
		return nil
	}

	pages, err := s.render(store, queue)
	if err != nil {
		return fmt.Errorf("failed to render queue %q: %w", queue.Name, err)
	}
	controls := queueControls(queue)

	var wg sync.WaitGroup
	for _, display := range displays {
		wg.Add(1)
		go func(display models.Display) {
			defer wg.Done()
			s.push(log, store, queue, display, pages, controls, opts)
		}(display)
	}
	wg.Wait()
	return nil
}

// push delivers the rendered pages to one surface, applying the queue's
// update strategy. Failures are logged and isolated to this surface.
func (s *DisplayService) push(log *logger.Logger, store *repositories.Store, queue *models.Queue, display models.Display, pages []Page, controls Controls, opts RefreshOpts) {
	if err := s.transport.CanPostTo(display.ChannelID); err != nil {
		if errors.Is(err, ErrSurfaceForbidden) {
			// The channel is gone or the bot lost access; deregister so
			// the dead surface stops consuming render cycles.
			s.deregister(log, store, display, opts.InitiatorID)
			return
		}
		log.Warn("display surface unreachable",
			zap.String("channel_id", display.ChannelID),
			zap.Error(err),
		)
		return
	}

	strategy := queue.UpdateType
	if opts.ForceNew || display.LastMessageID == "" {
		strategy = models.UpdateTypeReplace
	}

	if strategy == models.UpdateTypeEdit {
		err := s.transport.EditMessage(display.ChannelID, display.LastMessageID, pages)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrMessageNotFound) {
			log.Warn("failed to edit display message",
				zap.String("channel_id", display.ChannelID),
				zap.String("message_id", display.LastMessageID),
				zap.Error(err),
			)
			return
		}
		// The tracked message was deleted out from under us; fall through
		// and send a fresh one.
	}

	messageID, err := s.transport.SendPages(display.ChannelID, pages, controls)
	if err != nil {
		if errors.Is(err, ErrSurfaceForbidden) {
			s.deregister(log, store, display, opts.InitiatorID)
			return
		}
		log.Warn("failed to send display message",
			zap.String("channel_id", display.ChannelID),
			zap.Error(err),
		)
		return
	}

	if display.LastMessageID != "" && display.LastMessageID != messageID {
		switch strategy {
		case models.UpdateTypeNew:
			// Old messages stay in the channel as history, minus their
			// now-dangling buttons.
			if err := s.transport.StripControls(display.ChannelID, display.LastMessageID); err != nil {
				log.Warn("failed to strip controls from prior display message",
					zap.String("channel_id", display.ChannelID),
					zap.Error(err),
				)
			}
		default:
			if err := s.transport.DeleteMessage(display.ChannelID, display.LastMessageID); err != nil {
				log.Warn("failed to delete prior display message",
					zap.String("channel_id", display.ChannelID),
					zap.Error(err),
				)
			}
		}
	}

	if err := store.UpdateDisplayMessage(display.ID, messageID); err != nil {
		log.Error("failed to record display message id",
			zap.String("channel_id", display.ChannelID),
			zap.Error(err),
		)
		return
	}
	if err := store.IncrementGuildStat(models.StatDisplaysSent, 1); err != nil {
		log.Warn("failed to bump display counter", zap.Error(err))
	}
}

func (s *DisplayService) deregister(log *logger.Logger, store *repositories.Store, display models.Display, initiatorID string) {
	if err := store.DeleteDisplay(display.ID); err != nil {
		log.Error("failed to deregister display",
			zap.String("channel_id", display.ChannelID),
			zap.Error(err),
		)
		return
	}
	log.Info("deregistered display after permission failure",
		zap.String("channel_id", display.ChannelID),
	)
	if initiatorID != "" && s.notifier != nil {
		s.notifier.NotifyOperator(initiatorID,
			fmt.Sprintf("I can no longer post in <#%s>, so the queue display there has been removed.", display.ChannelID))
	}
}

func filterDisplays(displays []models.Display, ids []uint) []models.Display {
	want := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	filtered := make([]models.Display, 0, len(ids))
	for _, d := range displays {
		if _, ok := want[d.ID]; ok {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func queueControls(queue *models.Queue) Controls {
	if !queue.ButtonsToggle {
		return Controls{QueueID: queue.ID}
	}
	return Controls{
		QueueID: queue.ID,
		// Voice queues are joined by entering the source channel, not by
		// button.
		JoinLeave: !queue.HasVoice(),
		Positions: true,
		Pull:      true,
	}
}

// render builds the queue's pages from its stored rows. Members whose
// identity no longer resolves have left the guild entirely and are removed
// from the queue during the render.
func (s *DisplayService) render(store *repositories.Store, queue *models.Queue) ([]Page, error) {
	members, err := store.Members(queue.ID)
	if err != nil {
		return nil, err
	}

	var vanished []string
	lines := make([]string, 0, len(members))
	width := positionWidth(len(members))
	position := 0
	for _, member := range members {
		identity, err := s.identities.Resolve(store.GuildID(), member.UserID)
		if err != nil {
			if errors.Is(err, ErrIdentityNotFound) {
				vanished = append(vanished, member.UserID)
				continue
			}
			return nil, err
		}
		position++
		lines = append(lines, memberLine(queue, member, identity, position, width))
	}

	if len(vanished) > 0 {
		if _, err := store.DeleteMembers(queue.ID, vanished, models.ArchiveReasonVanished); err != nil {
			return nil, err
		}
	}

	description, err := s.describe(store, queue)
	if err != nil {
		return nil, err
	}
	return paginate(queue, description, lines, len(lines)), nil
}

func positionWidth(count int) int {
	width := 1
	for count >= 10 {
		count /= 10
		width++
	}
	return width
}

// memberLine formats one member row: padded position, optional join
// timestamp, priority marker, identity, and their message.
func memberLine(queue *models.Queue, member models.Member, identity *DisplayIdentity, position, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`%0*d`", width, position)
	if queue.TimestampType != models.TimestampOff {
		fmt.Fprintf(&b, " <t:%d:%s>", member.JoinTime/1000, queue.TimestampType)
	}
	if member.Priority != nil {
		b.WriteString(" ✨")
	}
	b.WriteString(" ")
	if queue.MemberDisplayType == models.MemberDisplayPlaintext {
		b.WriteString(identity.Name)
	} else {
		b.WriteString(identity.Mention)
	}
	if member.Message != "" {
		b.WriteString(" -- ")
		b.WriteString(member.Message)
	}
	return b.String()
}

// describe synthesizes the page description from the queue's settings.
func (s *DisplayService) describe(store *repositories.Store, queue *models.Queue) (string, error) {
	var parts []string
	if queue.Header != "" {
		parts = append(parts, queue.Header)
	}
	if queue.LockToggle {
		parts = append(parts, "This queue is locked.")
	} else if queue.HasVoice() {
		parts = append(parts, fmt.Sprintf("Join <#%s> to enter the queue.", queue.SourceVoiceChannelID))
	} else if queue.ButtonsToggle {
		parts = append(parts, "Use the buttons below to join or leave.")
	} else {
		parts = append(parts, fmt.Sprintf("Use `/join %s` or `/leave %s` to enter or exit.", queue.Name, queue.Name))
	}
	if queue.GracePeriod > 0 {
		parts = append(parts, fmt.Sprintf("Rejoin within %d seconds of leaving to reclaim your spot.", queue.GracePeriod))
	}

	prioritized, err := store.Prioritized(queue.ID)
	if err != nil {
		return "", err
	}
	if len(prioritized) > 0 {
		parts = append(parts, "✨ = prioritized")
	}

	schedules, err := store.Schedules(queue.ID)
	if err != nil {
		return "", err
	}
	for _, schedule := range schedules {
		parts = append(parts, fmt.Sprintf("Scheduled to %s: `%s` (%s)", schedule.Command, schedule.Cron, schedule.Timezone))
	}
	return strings.Join(parts, "\n"), nil
}

// paginate packs member lines into embed-sized pages. A line that would
// overflow the current field opens a new field; a field that would overflow
// the page opens a new page. Single lines never split across fields.
func paginate(queue *models.Queue, description string, lines []string, size int) []Page {
	sizeText := fmt.Sprintf("size: %d", size)
	if queue.Size != nil {
		sizeText = fmt.Sprintf("size: %d / %d", size, *queue.Size)
	}

	newPage := func() Page {
		return Page{
			Title:       queue.Name,
			Description: description,
			Color:       queue.Color,
		}
	}

	if len(lines) == 0 {
		page := newPage()
		page.Fields = []PageField{{Name: sizeText, Value: "​", Inline: queue.InlineToggle}}
		return []Page{page}
	}

	// Pass one: pack lines into fields. A line is never split.
	var fields []PageField
	field := PageField{Name: sizeText, Inline: queue.InlineToggle}
	for _, line := range lines {
		if field.Value != "" && len(field.Value)+1+len(line) > maxFieldChars {
			fields = append(fields, field)
			// Only the very first field carries the size caption;
			// continuation fields get an invisible name.
			field = PageField{Name: "​", Inline: queue.InlineToggle}
		}
		if field.Value != "" {
			field.Value += "\n"
		}
		field.Value += line
	}
	fields = append(fields, field)

	// Pass two: pack fields into pages.
	baseChars := len(queue.Name) + len(description)
	pages := []Page{newPage()}
	page := &pages[len(pages)-1]
	pageChars := baseChars
	for _, f := range fields {
		if len(page.Fields) > 0 &&
			(len(page.Fields) >= maxPageFields || pageChars+len(f.Name)+len(f.Value) > maxPageChars) {
			pages = append(pages, newPage())
			page = &pages[len(pages)-1]
			pageChars = baseChars
		}
		page.Fields = append(page.Fields, f)
		pageChars += len(f.Name) + len(f.Value)
	}
	return pages
}
