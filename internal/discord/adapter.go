package discord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/queuebot/queuebot/internal/services"
	logger "github.com/queuebot/queuebot/middleware/log"
)

// Custom IDs of the interactive buttons attached to display messages. The
// queue ID is appended after a colon at send time.
const (
	ButtonJoin      = "queue_join"
	ButtonLeave     = "queue_leave"
	ButtonPositions = "queue_positions"
	ButtonPull      = "queue_pull"
)

const defaultEmbedColor = 0x5865F2

// Adapter is the concrete Discord surface. It implements the service layer's
// SurfaceTransport, IdentityResolver, Notifier, and RoleProvider interfaces
// on top of one gateway session.
type Adapter struct {
	session *discordgo.Session
	log     *logger.Logger
}

func NewAdapter(session *discordgo.Session, log *logger.Logger) *Adapter {
	return &Adapter{session: session, log: log}
}

// CanPostTo verifies the bot can see the channel and send embeds there.
func (a *Adapter) CanPostTo(channelID string) error {
	perms, err := a.session.UserChannelPermissions(a.session.State.User.ID, channelID)
	if err != nil {
		return mapRESTError(err)
	}
	need := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks)
	if perms&need != need {
		return services.ErrSurfaceForbidden
	}
	return nil
}

// SendPages sends the rendered pages as one message and returns its ID.
func (a *Adapter) SendPages(channelID string, pages []services.Page, controls services.Controls) (string, error) {
	msg, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     pagesToEmbeds(pages),
		Components: controlRows(controls),
	})
	if err != nil {
		return "", mapRESTError(err)
	}
	return msg.ID, nil
}

// EditMessage replaces a prior message's embeds, leaving its components as
// they are.
func (a *Adapter) EditMessage(channelID, messageID string, pages []services.Page) error {
	embeds := pagesToEmbeds(pages)
	_, err := a.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: channelID,
		ID:      messageID,
		Embeds:  &embeds,
	})
	return mapRESTError(err)
}

// DeleteMessage removes a message.
func (a *Adapter) DeleteMessage(channelID, messageID string) error {
	return mapRESTError(a.session.ChannelMessageDelete(channelID, messageID))
}

// StripControls removes the buttons from a message without touching its
// embeds.
func (a *Adapter) StripControls(channelID, messageID string) error {
	empty := []discordgo.MessageComponent{}
	_, err := a.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Components: &empty,
	})
	return mapRESTError(err)
}

// Resolve looks the user up in the gateway state, falling back to the REST
// API. A user absent from the guild yields ErrIdentityNotFound.
func (a *Adapter) Resolve(guildID, userID string) (*services.DisplayIdentity, error) {
	member, err := a.session.State.Member(guildID, userID)
	if err != nil {
		member, err = a.session.GuildMember(guildID, userID)
		if err != nil {
			if isUnknownEntity(err) {
				return nil, services.ErrIdentityNotFound
			}
			return nil, err
		}
	}
	name := member.Nick
	if name == "" {
		name = member.User.Username
	}
	return &services.DisplayIdentity{
		Mention: member.User.Mention(),
		Name:    name,
	}, nil
}

// RolesOf returns the user's guild role IDs.
func (a *Adapter) RolesOf(guildID, userID string) ([]string, error) {
	member, err := a.session.State.Member(guildID, userID)
	if err != nil {
		member, err = a.session.GuildMember(guildID, userID)
		if err != nil {
			if isUnknownEntity(err) {
				return nil, services.ErrIdentityNotFound
			}
			return nil, err
		}
	}
	return member.Roles, nil
}

// NotifyMembers direct-messages each user. Failures only get a debug line:
// users can close their DMs, and that is their business.
func (a *Adapter) NotifyMembers(userIDs []string, message string) {
	for _, userID := range userIDs {
		a.sendDM(userID, message)
	}
}

// NotifyOperator direct-messages the user who set a display up.
func (a *Adapter) NotifyOperator(userID string, message string) {
	a.sendDM(userID, message)
}

func (a *Adapter) sendDM(userID, message string) {
	channel, err := a.session.UserChannelCreate(userID)
	if err != nil {
		a.log.Debug("failed to open DM channel", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if _, err := a.session.ChannelMessageSend(channel.ID, message); err != nil {
		a.log.Debug("failed to send DM", zap.String("user_id", userID), zap.Error(err))
	}
}

func pagesToEmbeds(pages []services.Page) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, 0, len(pages))
	for _, page := range pages {
		embed := &discordgo.MessageEmbed{
			Title:       page.Title,
			Description: page.Description,
			Color:       parseColor(page.Color),
		}
		for _, field := range page.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   field.Name,
				Value:  field.Value,
				Inline: field.Inline,
			})
		}
		embeds = append(embeds, embed)
	}
	return embeds
}

func parseColor(color string) int {
	color = strings.TrimPrefix(strings.TrimSpace(color), "#")
	if color == "" {
		return defaultEmbedColor
	}
	value, err := strconv.ParseInt(color, 16, 32)
	if err != nil {
		return defaultEmbedColor
	}
	return int(value)
}

func controlRows(controls services.Controls) []discordgo.MessageComponent {
	queueID := controls.QueueID
	var buttons []discordgo.MessageComponent
	if controls.JoinLeave {
		buttons = append(buttons,
			discordgo.Button{
				Label:    "Join",
				Style:    discordgo.SuccessButton,
				CustomID: fmt.Sprintf("%s:%d", ButtonJoin, queueID),
			},
			discordgo.Button{
				Label:    "Leave",
				Style:    discordgo.DangerButton,
				CustomID: fmt.Sprintf("%s:%d", ButtonLeave, queueID),
			},
		)
	}
	if controls.Positions {
		buttons = append(buttons, discordgo.Button{
			Label:    "My Positions",
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("%s:%d", ButtonPositions, queueID),
		})
	}
	if controls.Pull {
		buttons = append(buttons, discordgo.Button{
			Label:    "Pull",
			Style:    discordgo.PrimaryButton,
			CustomID: fmt.Sprintf("%s:%d", ButtonPull, queueID),
		})
	}
	if len(buttons) == 0 {
		return nil
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: buttons},
	}
}

// mapRESTError translates Discord REST failures into the service layer's
// sentinel errors.
func mapRESTError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return err
	}
	switch restErr.Message.Code {
	case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeUnknownChannel:
		return fmt.Errorf("%w: %s", services.ErrSurfaceForbidden, restErr.Message.Message)
	case discordgo.ErrCodeUnknownMessage:
		return fmt.Errorf("%w: %s", services.ErrMessageNotFound, restErr.Message.Message)
	}
	return err
}

func isUnknownEntity(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	switch restErr.Message.Code {
	case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
		return true
	}
	return false
}
