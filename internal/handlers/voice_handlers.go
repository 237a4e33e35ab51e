package handlers

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/services"
)

// RegisterVoice attaches the voice state listener that keeps voice-linked
// queues in sync with their source channel.
func (h *Handler) RegisterVoice(session *discordgo.Session) {
	session.AddHandler(h.onVoiceStateUpdate)
}

// onVoiceStateUpdate enqueues users entering a queue's source voice channel
// and dequeues users leaving it. Autopull queues pull immediately when a
// member arrives.
func (h *Handler) onVoiceStateUpdate(s *discordgo.Session, update *discordgo.VoiceStateUpdate) {
	if update.GuildID == "" || update.UserID == s.State.User.ID {
		return
	}
	store := h.stores.Store(update.GuildID)
	queues, err := store.Queues()
	if err != nil {
		h.log.Warn("failed to load queues for voice update", zap.Error(err))
		return
	}

	var joined, left string
	joined = update.ChannelID
	if update.BeforeUpdate != nil {
		left = update.BeforeUpdate.ChannelID
	}
	if joined == left {
		return
	}

	for idx := range queues {
		queue := &queues[idx]
		if !queue.HasVoice() {
			continue
		}

		if queue.SourceVoiceChannelID == joined {
			roleIDs := h.voiceRoles(s, update.GuildID, update.UserID)
			if _, err := h.members.Join(store, queue, services.JoinRequest{
				UserID:  update.UserID,
				RoleIDs: roleIDs,
			}); err != nil {
				h.log.Debug("voice join rejected",
					zap.String("user_id", update.UserID),
					zap.String("queue", queue.Name),
					zap.Error(err),
				)
				continue
			}
			h.grantRole(s, update.GuildID, update.UserID, queue.RoleInQueueID)
			if queue.AutopullToggle {
				h.autopull(s, store, queue)
			}
		}

		if queue.SourceVoiceChannelID == left {
			if _, err := h.members.Leave(store, queue, update.UserID); err != nil {
				continue
			}
			h.revokeRole(s, update.GuildID, update.UserID, queue.RoleInQueueID)
		}
	}
}

func (h *Handler) voiceRoles(s *discordgo.Session, guildID, userID string) []string {
	roleIDs, err := h.adapter.RolesOf(guildID, userID)
	if err != nil {
		return nil
	}
	return roleIDs
}

func (h *Handler) autopull(s *discordgo.Session, store *repositories.Store, queue *models.Queue) {
	pulled, err := h.members.Pull(store, []models.Queue{*queue}, 0, true)
	if err != nil {
		h.log.Warn("autopull failed", zap.String("queue", queue.Name), zap.Error(err))
		return
	}
	for _, archived := range pulled {
		h.revokeRole(s, store.GuildID(), archived.UserID, queue.RoleInQueueID)
		h.grantRole(s, store.GuildID(), archived.UserID, queue.RoleOnPullID)
		h.movePulledMember(s, store.GuildID(), archived.UserID, queue)
	}
}
