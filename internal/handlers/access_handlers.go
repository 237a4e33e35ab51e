package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/services"
)

// subjectFromOpt reads a mentionable option as an access list subject: the
// raw ID plus whether it names a role or a user.
func subjectFromOpt(i *discordgo.InteractionCreate, opt *discordgo.ApplicationCommandInteractionDataOption) (string, bool) {
	value := opt.Value.(string)
	resolved := i.ApplicationCommandData().Resolved
	if resolved != nil {
		if _, ok := resolved.Users[value]; ok {
			return value, false
		}
	}
	return value, true
}

func subjectMention(subjectID string, isRole bool) string {
	if isRole {
		return fmt.Sprintf("<@&%s>", subjectID)
	}
	return fmt.Sprintf("<@%s>", subjectID)
}

func (h *Handler) handlePrioritize(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	sub, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	switch sub {
	case "add":
		subjectID, isRole := subjectFromOpt(i, opts["subject"])
		order := intOpt(opts, "priority", 5)
		_, err := h.priority.Prioritize(store, queue.ID, subjectID, isRole, order, stringOpt(opts, "reason"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ %s is now prioritized in `%s` (tier %d).", subjectMention(subjectID, isRole), queue.Name, order), nil
	case "delete":
		subjectID, _ := subjectFromOpt(i, opts["subject"])
		entries, err := store.Prioritized(queue.ID)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			if entry.SubjectID == subjectID {
				if err := h.priority.Unprioritize(store, &entry); err != nil {
					return "", err
				}
				return fmt.Sprintf("✅ %s is no longer prioritized in `%s`.", subjectMention(entry.SubjectID, entry.IsRole), queue.Name), nil
			}
		}
		return "", services.ErrMemberNotFound
	case "list":
		entries, err := store.Prioritized(queue.ID)
		if err != nil {
			return "", err
		}
		return formatPrioritized(queue, entries), nil
	}
	return "", services.ErrQueueNotFound
}

func formatPrioritized(queue *models.Queue, entries []models.Prioritized) string {
	if len(entries) == 0 {
		return fmt.Sprintf("`%s` has no prioritized entries.", queue.Name)
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		line := fmt.Sprintf("%s: tier %d", subjectMention(entry.SubjectID, entry.IsRole), entry.PriorityOrder)
		if entry.Reason != "" {
			line += " (" + entry.Reason + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) handleWhitelist(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	sub, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	switch sub {
	case "add":
		subjectID, isRole := subjectFromOpt(i, opts["subject"])
		_, err := h.priority.Whitelist(store, queue.ID, subjectID, isRole, stringOpt(opts, "reason"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ %s whitelisted on `%s`.", subjectMention(subjectID, isRole), queue.Name), nil
	case "delete":
		subjectID, _ := subjectFromOpt(i, opts["subject"])
		entries, err := store.Whitelisted(queue.ID)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			if entry.SubjectID == subjectID {
				if err := h.priority.Unwhitelist(store, &entry); err != nil {
					return "", err
				}
				return fmt.Sprintf("✅ %s removed from `%s`'s whitelist.", subjectMention(entry.SubjectID, entry.IsRole), queue.Name), nil
			}
		}
		return "", services.ErrMemberNotFound
	}
	return "", services.ErrQueueNotFound
}

func (h *Handler) handleBlacklist(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	sub, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	switch sub {
	case "add":
		subjectID, isRole := subjectFromOpt(i, opts["subject"])
		_, err := h.priority.Blacklist(store, queue, subjectID, isRole, stringOpt(opts, "reason"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ %s blacklisted from `%s`.", subjectMention(subjectID, isRole), queue.Name), nil
	case "delete":
		subjectID, _ := subjectFromOpt(i, opts["subject"])
		entries, err := store.Blacklisted(queue.ID)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			if entry.SubjectID == subjectID {
				if err := h.priority.Unblacklist(store, &entry); err != nil {
					return "", err
				}
				return fmt.Sprintf("✅ %s removed from `%s`'s blacklist.", subjectMention(entry.SubjectID, entry.IsRole), queue.Name), nil
			}
		}
		return "", services.ErrMemberNotFound
	}
	return "", services.ErrQueueNotFound
}

// handleAdmins manages the guild's bot admin list. Server administrators
// always pass the permission check; this list extends it to other users and
// roles.
func (h *Handler) handleAdmins(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	sub, opts := options(i)

	switch sub {
	case "add":
		subjectID, isRole := subjectFromOpt(i, opts["subject"])
		admin := &models.Admin{SubjectID: subjectID, IsRole: isRole}
		if err := store.InsertAdmin(admin); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return "", services.ErrEntryExists
			}
			return "", err
		}
		return fmt.Sprintf("✅ %s can now manage the bot.", subjectMention(subjectID, isRole)), nil
	case "delete":
		subjectID, _ := subjectFromOpt(i, opts["subject"])
		admins, err := store.Admins()
		if err != nil {
			return "", err
		}
		for _, admin := range admins {
			if admin.SubjectID == subjectID {
				if err := store.DeleteAdmin(admin.ID); err != nil {
					return "", err
				}
				return fmt.Sprintf("✅ %s can no longer manage the bot.", subjectMention(admin.SubjectID, admin.IsRole)), nil
			}
		}
		return "", services.ErrMemberNotFound
	case "list":
		admins, err := store.Admins()
		if err != nil {
			return "", err
		}
		if len(admins) == 0 {
			return "Only server administrators can manage the bot.", nil
		}
		lines := make([]string, 0, len(admins))
		for _, admin := range admins {
			lines = append(lines, subjectMention(admin.SubjectID, admin.IsRole))
		}
		return strings.Join(lines, "\n"), nil
	}
	return "", services.ErrQueueNotFound
}

func (h *Handler) handleSchedules(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	sub, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	switch sub {
	case "add":
		schedule := &models.Schedule{
			GuildID:  store.GuildID(),
			QueueID:  queue.ID,
			Command:  models.ScheduleCommand(stringOpt(opts, "command")),
			Cron:     stringOpt(opts, "cron"),
			Timezone: stringOpt(opts, "timezone"),
			Reason:   stringOpt(opts, "reason"),
		}
		if err := h.schedules.AddSchedule(store, schedule); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ `%s` will run **%s** on `%s` (%s).", queue.Name, schedule.Command, schedule.Cron, schedule.Timezone), nil
	case "delete":
		entries, err := store.Schedules(queue.ID)
		if err != nil {
			return "", err
		}
		command := models.ScheduleCommand(stringOpt(opts, "command"))
		for _, entry := range entries {
			if entry.Command == command {
				if err := h.schedules.DeleteSchedule(store, &entry); err != nil {
					return "", err
				}
				return fmt.Sprintf("✅ Removed the **%s** schedule from `%s`.", command, queue.Name), nil
			}
		}
		return "", services.ErrMemberNotFound
	case "list":
		entries, err := store.Schedules(queue.ID)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return fmt.Sprintf("`%s` has no schedules.", queue.Name), nil
		}
		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			lines = append(lines, fmt.Sprintf("**%s** on `%s` (%s)", entry.Command, entry.Cron, entry.Timezone))
		}
		return strings.Join(lines, "\n"), nil
	}
	return "", services.ErrQueueNotFound
}
