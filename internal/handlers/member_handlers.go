package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/services"
)

func (h *Handler) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	_, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	member := invoker(i)
	_, err = h.members.Join(store, queue, services.JoinRequest{
		UserID:  member.User.ID,
		RoleIDs: member.Roles,
		Message: stringOpt(opts, "message"),
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

func (h *Handler) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	_, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	userID := invoker(i).User.ID
	if _, err := h.members.Leave(store, queue, userID); err != nil {
		return "", err
	}
	h.revokeRole(s, i.GuildID, userID, queue.RoleInQueueID)
	return fmt.Sprintf("✅ Left `%s`.", queue.Name), nil
}

func (h *Handler) handleShow(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	_, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}

	err = h.displays.InsertDisplays(context.Background(), store, queue, []string{i.ChannelID}, invoker(i).User.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Showing `%s` in this channel.", queue.Name), nil
}

func (h *Handler) handlePull(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	_, opts := options(i)
	queues, err := h.targetQueues(store, opts)
	if err != nil {
		return "", err
	}

	pulled, err := h.members.Pull(store, queues, intOpt(opts, "count", 0), boolOpt(opts, "force"))
	if err != nil {
		return "", err
	}
	if len(pulled) == 0 {
		return "Nothing to pull.", nil
	}

	byQueue := make(map[uint]*models.Queue, len(queues))
	for idx := range queues {
		byQueue[queues[idx].ID] = &queues[idx]
	}
	mentions := make([]string, 0, len(pulled))
	for _, archived := range pulled {
		mentions = append(mentions, fmt.Sprintf("<@%s>", archived.UserID))
		if queue := byQueue[archived.QueueID]; queue != nil {
			h.revokeRole(s, i.GuildID, archived.UserID, queue.RoleInQueueID)
			h.grantRole(s, i.GuildID, archived.UserID, queue.RoleOnPullID)
			h.movePulledMember(s, i.GuildID, archived.UserID, queue)
		}
	}
	return fmt.Sprintf("✅ Pulled %s.", strings.Join(mentions, ", ")), nil
}

func (h *Handler) handleKick(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	_, opts := options(i)
	queues, err := h.targetQueues(store, opts)
	if err != nil {
		return "", err
	}
	subjectOpt, ok := opts["subject"]
	if !ok {
		return "", services.ErrMemberNotFound
	}
	userIDs, isRole, subjectID, err := h.mentionableUserIDs(s, i, subjectOpt)
	if err != nil {
		return "", err
	}
	if len(userIDs) == 0 {
		return "", services.ErrMemberNotFound
	}

	kicked, err := h.members.DeleteMembers(store, queues, services.DeleteSelector{UserIDs: userIDs}, models.ArchiveReasonKicked, true)
	if err != nil {
		return "", err
	}
	if len(kicked) == 0 {
		return fmt.Sprintf("%s is not in any of those queues.", subjectMention(subjectID, isRole)), nil
	}

	byQueue := make(map[uint]*models.Queue, len(queues))
	for idx := range queues {
		byQueue[queues[idx].ID] = &queues[idx]
	}
	for _, archived := range kicked {
		if queue := byQueue[archived.QueueID]; queue != nil {
			h.revokeRole(s, i.GuildID, archived.UserID, queue.RoleInQueueID)
		}
	}
	return fmt.Sprintf("✅ Removed %d member(s).", len(kicked)), nil
}

func (h *Handler) handleMove(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	_, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}
	memberOpt, ok := opts["member"]
	if !ok {
		return "", services.ErrMemberNotFound
	}
	userID := memberOpt.UserValue(nil).ID
	position := intOpt(opts, "position", 1)

	if _, err := h.members.Move(store, queue, userID, position); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Moved <@%s> to position **%d** of `%s`.", userID, position, queue.Name), nil
}

func (h *Handler) handleShuffle(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	_, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}
	if _, err := h.members.Shuffle(store, queue); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Shuffled `%s`.", queue.Name), nil
}

func (h *Handler) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	if err := h.requireAdmin(store, i); err != nil {
		return "", err
	}
	_, opts := options(i)
	queue, err := h.queueFromOpts(store, opts)
	if err != nil {
		return "", err
	}
	cleared, err := h.members.Clear(store, queue)
	if err != nil {
		return "", err
	}
	for _, archived := range cleared {
		h.revokeRole(s, i.GuildID, archived.UserID, queue.RoleInQueueID)
	}
	return fmt.Sprintf("✅ Cleared `%s` (%d members removed).", queue.Name, len(cleared)), nil
}

func (h *Handler) handlePositions(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error) {
	return h.positionsReply(store, invoker(i).User.ID)
}

// positionsReply lists the user's position in every queue they occupy. Also
// used by the "my positions" button.
func (h *Handler) positionsReply(store *repositories.Store, userID string) (string, error) {
	memberships, err := store.MembersOfUser(userID)
	if err != nil {
		return "", err
	}
	if len(memberships) == 0 {
		return "You are not in any queue.", nil
	}

	var lines []string
	for _, membership := range memberships {
		queue, err := store.Queue(membership.QueueID)
		if err != nil {
			continue
		}
		position, _, err := h.members.Position(store, queue, userID)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("`%s`: position **%d**", queue.Name, position))
	}
	return strings.Join(lines, "\n"), nil
}

// grantRole and revokeRole are best-effort; a missing or misordered role
// must never fail the queue operation itself.
func (h *Handler) grantRole(s *discordgo.Session, guildID, userID, roleID string) {
	if roleID == "" {
		return
	}
	if err := s.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		h.log.Debug("failed to grant role",
			zap.String("user_id", userID),
			zap.String("role_id", roleID),
			zap.Error(err),
		)
	}
}

func (h *Handler) revokeRole(s *discordgo.Session, guildID, userID, roleID string) {
	if roleID == "" {
		return
	}
	if err := s.GuildMemberRoleRemove(guildID, userID, roleID); err != nil {
		h.log.Debug("failed to revoke role",
			zap.String("user_id", userID),
			zap.String("role_id", roleID),
			zap.Error(err),
		)
	}
}

// movePulledMember drags a pulled member into the queue's destination voice
// channel, when the queue has one and the member is connected.
func (h *Handler) movePulledMember(s *discordgo.Session, guildID, userID string, queue *models.Queue) {
	if !queue.HasVoice() {
		return
	}
	channelID := queue.DestinationVoiceChannelID
	if err := s.GuildMemberMove(guildID, userID, &channelID); err != nil {
		h.log.Debug("failed to move pulled member to destination channel",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
