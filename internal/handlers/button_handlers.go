package handlers

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/queuebot/queuebot/internal/discord"
	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/services"
)

func (h *Handler) dispatchButton(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) {
	customID := i.MessageComponentData().CustomID
	queueID, ok := parseQueueID(customID)
	if !ok {
		return
	}

	if err := store.IncrementGuildStat(models.StatButtonsReceived, 1); err != nil {
		h.log.Warn("failed to bump button counter", zap.Error(err))
	}

	queue, err := store.Queue(queueID)
	if err != nil {
		// The queue behind this button is gone; the stale message will be
		// replaced on the next refresh of whatever queue owns the channel.
		h.respond(s, i, "That queue no longer exists.")
		return
	}

	var reply string
	switch {
	case strings.HasPrefix(customID, discord.ButtonJoin):
		reply, err = h.buttonJoin(s, i, store, queue)
	case strings.HasPrefix(customID, discord.ButtonLeave):
		reply, err = h.buttonLeave(s, i, store, queue)
	case strings.HasPrefix(customID, discord.ButtonPositions):
		reply, err = h.positionsReply(store, invoker(i).User.ID)
	case strings.HasPrefix(customID, discord.ButtonPull):
		reply, err = h.buttonPull(s, i, store, queue)
	default:
		return
	}
	if err != nil {
		reply = userFacingError(err)
	}
	h.respond(s, i, reply)
}

func (h *Handler) buttonJoin(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store, queue *models.Queue) (string, error) {
	member := invoker(i)
	_, err := h.members.Join(store, queue, services.JoinRequest{
		UserID:  member.User.ID,
		RoleIDs: member.Roles,
	})
	if err != nil {
		return "", err
	}
	h.grantRole(s, i.GuildID, member.User.ID, queue.RoleInQueueID)

	position, _, err := h.members.Position(store, queue, member.User.ID)
	if err != nil {
		return fmt.Sprintf("✅ Joined `%s`.", queue.Name), nil
	}
	return fmt.Sprintf("✅ Joined `%s` at position **%d**.", queue.Name, position), nil
}

func (h *Handler) buttonLeave(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store, queue *models.Queue) (string, error) {
	userID := invoker(i).User.ID
	if _, err := h.members.Leave(store, queue, userID); err != nil {
		return "", err
	}
	h.revokeRole(s, i.GuildID, userID, queue.RoleInQueueID)
	return fmt.Sprintf("✅ Left `%s`.", queue.Name), nil
}

func (h *Handler) buttonPull(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store, queue *models.Queue) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	pulled, err := h.members.Pull(store, []models.Queue{*queue}, 0, false)
	if err != nil {
		return "", err
	}
	mentions := make([]string, 0, len(pulled))
	for _, archived := range pulled {
		mentions = append(mentions, fmt.Sprintf("<@%s>", archived.UserID))
		h.revokeRole(s, i.GuildID, archived.UserID, queue.RoleInQueueID)
		h.grantRole(s, i.GuildID, archived.UserID, queue.RoleOnPullID)
		h.movePulledMember(s, i.GuildID, archived.UserID, queue)
	}
	return fmt.Sprintf("✅ Pulled %s.", strings.Join(mentions, ", ")), nil
}
