package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/services"
)

func (h *Handler) handleQueues(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	sub, opts := options(i)
	if sub != "list" {
		if err := h.requireAdmin(store, i); err != nil {
			return "", err
		}
	}

	switch sub {
	case "add":
		return h.queuesAdd(store, opts)
	case "set":
		return h.queuesSet(store, opts)
	case "delete":
		return h.queuesDelete(store, opts)
	case "list":
		return h.queuesList(store)
	}
	return "", services.ErrQueueNotFound
}

func (h *Handler) queuesAdd(store *repositories.Store, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (string, error) {
	queue := &models.Queue{
		GuildID:           store.GuildID(),
		Name:              stringOpt(opts, "name"),
		Header:            stringOpt(opts, "header"),
		Color:             stringOpt(opts, "color"),
		PullBatchSize:     intOpt(opts, "pull_batch_size", 1),
		ButtonsToggle:     true,
		UpdateType:        models.UpdateTypeEdit,
		TimestampType:     models.TimestampOff,
		MemberDisplayType: models.MemberDisplayMention,
	}
	if size, ok := opts["size"]; ok {
		value := int(size.IntValue())
		queue.Size = &value
	}
	if err := h.queues.CreateQueue(store, queue); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Created queue `%s`.", queue.Name), nil
}

// queuesSet applies the settings options present on the command to the
// queue, leaving the rest untouched.
func (h *Handler) queuesSet(store *repositories.Store, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (string, error) {
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	if opt, ok := opts["size"]; ok {
		value := int(opt.IntValue())
		if value <= 0 {
			queue.Size = nil
		} else {
			queue.Size = &value
		}
	}
	if opt, ok := opts["lock"]; ok {
		queue.LockToggle = opt.BoolValue()
	}
	if opt, ok := opts["buttons"]; ok {
		queue.ButtonsToggle = opt.BoolValue()
	}
	if opt, ok := opts["inline"]; ok {
		queue.InlineToggle = opt.BoolValue()
	}
	if opt, ok := opts["notifications"]; ok {
		queue.NotificationsToggle = opt.BoolValue()
	}
	if opt, ok := opts["autopull"]; ok {
		queue.AutopullToggle = opt.BoolValue()
	}
	if opt, ok := opts["pull_batch_size"]; ok {
		queue.PullBatchSize = int(opt.IntValue())
	}
	if opt, ok := opts["grace_period"]; ok {
		queue.GracePeriod = int(opt.IntValue())
	}
	if opt, ok := opts["header"]; ok {
		queue.Header = opt.StringValue()
	}
	if opt, ok := opts["color"]; ok {
		queue.Color = opt.StringValue()
	}
	if opt, ok := opts["update_type"]; ok {
		queue.UpdateType = models.UpdateType(opt.StringValue())
	}
	if opt, ok := opts["timestamp_type"]; ok {
		queue.TimestampType = models.TimestampType(opt.StringValue())
	}
	if opt, ok := opts["member_display_type"]; ok {
		queue.MemberDisplayType = models.MemberDisplayType(opt.StringValue())
	}
	if opt, ok := opts["role_in_queue"]; ok {
		queue.RoleInQueueID = opt.RoleValue(nil, "").ID
	}
	if opt, ok := opts["role_on_pull"]; ok {
		queue.RoleOnPullID = opt.RoleValue(nil, "").ID
	}
	if opt, ok := opts["source_voice_channel"]; ok {
		queue.SourceVoiceChannelID = opt.ChannelValue(nil).ID
	}
	if opt, ok := opts["destination_voice_channel"]; ok {
		queue.DestinationVoiceChannelID = opt.ChannelValue(nil).ID
	}

	if err := h.queues.UpdateQueue(store, queue); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Updated `%s`.", queue.Name), nil
}

func (h *Handler) queuesDelete(store *repositories.Store, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (string, error) {
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}
	if err := h.queues.DeleteQueue(store, queue.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Deleted queue `%s`.", queue.Name), nil
}

func (h *Handler) queuesList(store *repositories.Store) (string, error) {
	queues, err := store.Queues()
	if err != nil {
		return "", err
	}
	if len(queues) == 0 {
		return "No queues yet. Create one with `/queues add`.", nil
	}
	lines := make([]string, 0, len(queues))
	for _, queue := range queues {
		members, err := store.Members(queue.ID)
		if err != nil {
			return "", err
		}
		line := fmt.Sprintf("`%s`: %d member(s)", queue.Name, len(members))
		if queue.LockToggle {
			line += " 🔒"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (h *Handler) handleDisplays(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	sub, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	channelID := i.ChannelID
	if opt, ok := opts["channel"]; ok {
		channelID = opt.ChannelValue(nil).ID
	}

	switch sub {
	case "add":
		err := h.displays.InsertDisplays(context.Background(), store, queue, []string{channelID}, invoker(i).User.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ `%s` will now be displayed in <#%s>.", queue.Name, channelID), nil
	case "delete":
		if err := h.displays.DeleteDisplays(store, queue.ID, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ `%s` is no longer displayed in <#%s>.", queue.Name, channelID), nil
	}
	return "", services.ErrDisplayNotFound
}
