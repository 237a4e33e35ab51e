package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/queuebot/queuebot/internal/discord"
	"github.com/queuebot/queuebot/internal/models"
	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/services"
	logger "github.com/queuebot/queuebot/middleware/log"
)

// Handler routes gateway interactions to the service layer. Slash commands
// and buttons share the same services; buttons are just pre-bound commands.
type Handler struct {
	stores    *repositories.Manager
	queues    *services.QueueService
	members   *services.MemberService
	priority  *services.PriorityService
	displays  *services.DisplayService
	schedules *services.ScheduleService
	adapter   *discord.Adapter
	log       *logger.Logger

	commands map[string]commandFunc
}

type commandFunc func(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) (string, error)

func New(
	stores *repositories.Manager,
	queues *services.QueueService,
	members *services.MemberService,
	priority *services.PriorityService,
	displays *services.DisplayService,
	schedules *services.ScheduleService,
	adapter *discord.Adapter,
	log *logger.Logger,
) *Handler {
	h := &Handler{
		stores:    stores,
		queues:    queues,
		members:   members,
		priority:  priority,
		displays:  displays,
		schedules: schedules,
		adapter:   adapter,
		log:       log,
	}
	h.commands = map[string]commandFunc{
		"join":       h.handleJoin,
		"leave":      h.handleLeave,
		"show":       h.handleShow,
		"pull":       h.handlePull,
		"kick":       h.handleKick,
		"move":       h.handleMove,
		"shuffle":    h.handleShuffle,
		"clear":      h.handleClear,
		"positions":  h.handlePositions,
		"queues":     h.handleQueues,
		"displays":   h.handleDisplays,
		"prioritize": h.handlePrioritize,
		"whitelist":  h.handleWhitelist,
		"blacklist":  h.handleBlacklist,
		"admins":     h.handleAdmins,
		"schedules":  h.handleSchedules,
	}
	return h
}

// Register attaches the interaction listener to the session.
func (h *Handler) Register(session *discordgo.Session) {
	session.AddHandler(h.onInteraction)
}

func (h *Handler) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	store := h.stores.Store(i.GuildID)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.dispatchCommand(s, i, store)
	case discordgo.InteractionMessageComponent:
		h.dispatchButton(s, i, store)
	}
}

func (h *Handler) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate, store *repositories.Store) {
	name := i.ApplicationCommandData().Name
	cmd, ok := h.commands[name]
	if !ok {
		return
	}

	if err := store.IncrementGuildStat(models.StatCommandsReceived, 1); err != nil {
		h.log.Warn("failed to bump command counter", zap.Error(err))
	}

	reply, err := cmd(s, i, store)
	if err != nil {
		h.log.Info("command failed",
			zap.String("command", name),
			zap.String("guild_id", i.GuildID),
			zap.Error(err),
		)
		reply = userFacingError(err)
	}
	h.respond(s, i, reply)
}

// userFacingError turns service errors into replies. Unexpected errors get
// a generic line so internals never leak into chat.
func userFacingError(err error) string {
	for _, known := range []error{
		services.ErrQueueLocked,
		services.ErrQueueFull,
		services.ErrNotOnWhitelist,
		services.ErrOnBlacklist,
		services.ErrInsufficientMembers,
		services.ErrQueueNotFound,
		services.ErrMemberNotFound,
		services.ErrQueueExists,
		services.ErrEntryExists,
		services.ErrInvalidCron,
		services.ErrInvalidBatchSize,
		errNotAdmin,
	} {
		if errors.Is(err, known) {
			return "❌ " + sentence(err.Error())
		}
	}
	return "❌ Something went wrong running that command."
}

// sentence upcases the first letter and adds a trailing period, turning a
// lowercase error message into a user-facing sentence.
func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func (h *Handler) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.log.Warn("failed to respond to interaction", zap.Error(err))
	}
}

// options flattens an interaction's options, descending through one level
// of subcommand.
func options(i *discordgo.InteractionCreate) (subcommand string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	opts = make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	list := i.ApplicationCommandData().Options
	if len(list) == 1 && list[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		subcommand = list[0].Name
		list = list[0].Options
	}
	for _, opt := range list {
		opts[opt.Name] = opt
	}
	return subcommand, opts
}

func stringOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func intOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int) int {
	if opt, ok := opts[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

func boolOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	if opt, ok := opts[name]; ok {
		return opt.BoolValue()
	}
	return false
}

// invoker returns the member who triggered the interaction.
func invoker(i *discordgo.InteractionCreate) *discordgo.Member {
	return i.Member
}

// queueFromOpts resolves the "queue" option to a stored queue.
func (h *Handler) queueFromOpts(store *repositories.Store, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (*models.Queue, error) {
	name := stringOpt(opts, "queue")
	if name == "" {
		return nil, services.ErrQueueNotFound
	}
	return h.queues.QueueByName(store, name)
}

// targetQueues resolves the "queue" option to one queue, or to every queue
// in the guild when the option is omitted. Commands like pull and clear
// accept both forms.
func (h *Handler) targetQueues(store *repositories.Store, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) ([]models.Queue, error) {
	name := stringOpt(opts, "queue")
	if name == "" {
		return store.Queues()
	}
	queue, err := h.queues.QueueByName(store, name)
	if err != nil {
		return nil, err
	}
	return []models.Queue{*queue}, nil
}

// mentionableUserIDs expands the "mentionable" option into a set of concrete
// user IDs: the user itself, or every guild member holding the role. Role
// expansion happens here at the boundary; the services only see user IDs.
func (h *Handler) mentionableUserIDs(s *discordgo.Session, i *discordgo.InteractionCreate, opt *discordgo.ApplicationCommandInteractionDataOption) ([]string, bool, string, error) {
	resolved := i.ApplicationCommandData().Resolved
	value := opt.Value.(string)

	if resolved != nil {
		if _, ok := resolved.Users[value]; ok {
			return []string{value}, false, value, nil
		}
	}

	guild, err := s.State.Guild(i.GuildID)
	if err != nil {
		return nil, true, value, fmt.Errorf("guild not in state: %w", err)
	}
	var userIDs []string
	for _, member := range guild.Members {
		for _, roleID := range member.Roles {
			if roleID == value {
				userIDs = append(userIDs, member.User.ID)
				break
			}
		}
	}
	return userIDs, true, value, nil
}

// isAdmin reports whether the invoker may run privileged commands: guild
// administrators always, otherwise anyone on the admin list directly or
// through a role.
func (h *Handler) isAdmin(store *repositories.Store, member *discordgo.Member) bool {
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	admins, err := store.Admins()
	if err != nil {
		return false
	}
	for _, admin := range admins {
		if !admin.IsRole {
			if admin.SubjectID == member.User.ID {
				return true
			}
			continue
		}
		for _, roleID := range member.Roles {
			if roleID == admin.SubjectID {
				return true
			}
		}
	}
	return false
}

var errNotAdmin = errors.New("you need to be a bot admin to do that")

func (h *Handler) requireAdmin(store *repositories.Store, i *discordgo.InteractionCreate) error {
	if !h.isAdmin(store, invoker(i)) {
		return errNotAdmin
	}
	return nil
}

func parseQueueID(customID string) (uint, bool) {
	_, raw, ok := strings.Cut(customID, ":")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
