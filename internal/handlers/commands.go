package handlers

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func queueOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "queue",
		Description: "Queue name",
		Required:    required,
	}
}

func subjectOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionMentionable,
		Name:        "subject",
		Description: "User or role",
		Required:    true,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason",
	}
}

// Commands returns the slash command set the bot registers on startup.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "join",
			Description: "Join a queue",
			Options: []*discordgo.ApplicationCommandOption{
				queueOption(true),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Message shown next to your name",
				},
			},
		},
		{
			Name:        "leave",
			Description: "Leave a queue",
			Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
		},
		{
			Name:        "show",
			Description: "Display a queue in this channel",
			Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
		},
		{
			Name:        "positions",
			Description: "Show your position in every queue",
		},
		{
			Name:        "pull",
			Description: "Pull the next members from a queue",
			Options: []*discordgo.ApplicationCommandOption{
				queueOption(false),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "How many members to pull (default: the queue's batch size)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "force",
					Description: "Pull even if fewer members are waiting",
				},
			},
		},
		{
			Name:        "kick",
			Description: "Remove a user or role from queues",
			Options: []*discordgo.ApplicationCommandOption{
				subjectOption(),
				queueOption(false),
			},
		},
		{
			Name:        "move",
			Description: "Move a member to a new position",
			Options: []*discordgo.ApplicationCommandOption{
				queueOption(true),
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member to move",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "position",
					Description: "New position (1 = front)",
					Required:    true,
				},
			},
		},
		{
			Name:        "shuffle",
			Description: "Shuffle a queue",
			Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
		},
		{
			Name:        "clear",
			Description: "Remove every member from a queue",
			Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
		},
		{
			Name:        "queues",
			Description: "Manage queues",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Create a queue",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Queue name",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "size",
							Description: "Capacity limit (omit for unlimited)",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "header",
							Description: "Text shown above the queue",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "color",
							Description: "Embed color, hex",
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "pull_batch_size",
							Description: "Members pulled per /pull (default 1)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Change a queue's settings",
					Options: []*discordgo.ApplicationCommandOption{
						queueOption(true),
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "size", Description: "Capacity limit, 0 for unlimited"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "lock", Description: "Block new joins"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "buttons", Description: "Attach buttons to displays"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "inline", Description: "Render fields inline"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "notifications", Description: "DM members when they are removed"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "autopull", Description: "Pull automatically from the source voice channel"},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "pull_batch_size", Description: "Members pulled per /pull"},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "grace_period", Description: "Seconds to rejoin without losing your spot"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "header", Description: "Text shown above the queue"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "color", Description: "Embed color, hex"},
						{
							Type: discordgo.ApplicationCommandOptionString, Name: "update_type", Description: "How displays refresh",
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "edit", Value: "edit"},
								{Name: "replace", Value: "replace"},
								{Name: "new", Value: "new"},
							},
						},
						{
							Type: discordgo.ApplicationCommandOptionString, Name: "timestamp_type", Description: "Join time shown next to members",
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "off", Value: "off"},
								{Name: "date", Value: "d"},
								{Name: "time", Value: "T"},
								{Name: "date and time", Value: "f"},
								{Name: "relative", Value: "R"},
							},
						},
						{
							Type: discordgo.ApplicationCommandOptionString, Name: "member_display_type", Description: "How members render",
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "mention", Value: "mention"},
								{Name: "plaintext", Value: "plaintext"},
							},
						},
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role_in_queue", Description: "Role granted while queued"},
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role_on_pull", Description: "Role granted when pulled"},
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "source_voice_channel", Description: "Voice channel members queue from"},
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "destination_voice_channel", Description: "Voice channel pulled members move to"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Delete a queue",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List this server's queues",
				},
			},
		},
		{
			Name:        "displays",
			Description: "Manage where queues are displayed",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Display a queue in a channel",
					Options: []*discordgo.ApplicationCommandOption{
						queueOption(true),
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel (default: here)"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Stop displaying a queue in a channel",
					Options: []*discordgo.ApplicationCommandOption{
						queueOption(true),
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel (default: here)"},
					},
				},
			},
		},
		{
			Name:        "prioritize",
			Description: "Manage queue priority",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Prioritize a user or role",
					Options: []*discordgo.ApplicationCommandOption{
						queueOption(true),
						subjectOption(),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "priority",
							Description: "Priority tier, lower serves first (default 5)",
						},
						reasonOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Remove a prioritized entry",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true), subjectOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List prioritized entries",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
				},
			},
		},
		{
			Name:        "whitelist",
			Description: "Manage queue whitelists",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Whitelist a user or role",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true), subjectOption(), reasonOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Remove a whitelist entry",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true), subjectOption()},
				},
			},
		},
		{
			Name:        "blacklist",
			Description: "Manage queue blacklists",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Blacklist a user or role",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true), subjectOption(), reasonOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Remove a blacklist entry",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true), subjectOption()},
				},
			},
		},
		{
			Name:        "admins",
			Description: "Manage who may run admin commands",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Grant bot admin access to a user or role",
					Options:     []*discordgo.ApplicationCommandOption{subjectOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Revoke bot admin access",
					Options:     []*discordgo.ApplicationCommandOption{subjectOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List bot admins",
				},
			},
		},
		{
			Name:        "schedules",
			Description: "Run queue commands on a schedule",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Schedule a queue command",
					Options: []*discordgo.ApplicationCommandOption{
						queueOption(true),
						{
							Type: discordgo.ApplicationCommandOptionString, Name: "command", Description: "Command to run", Required: true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "clear", Value: "clear"},
								{Name: "pull", Value: "pull"},
								{Name: "shuffle", Value: "shuffle"},
								{Name: "show", Value: "show"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "cron",
							Description: "Cron expression, e.g. 0 18 * * 5",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "timezone",
							Description: "IANA timezone (default UTC)",
						},
						reasonOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Remove a schedule",
					Options: []*discordgo.ApplicationCommandOption{
						queueOption(true),
						{
							Type: discordgo.ApplicationCommandOptionString, Name: "command", Description: "Scheduled command", Required: true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "clear", Value: "clear"},
								{Name: "pull", Value: "pull"},
								{Name: "shuffle", Value: "shuffle"},
								{Name: "show", Value: "show"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List a queue's schedules",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
				},
			},
		},
	}
}

// RegisterCommands upserts the slash command set. An empty guildID registers
// globally; a concrete one registers for a single guild, which propagates
// instantly and is what development setups want.
func RegisterCommands(session *discordgo.Session, guildID string) error {
	_, err := session.ApplicationCommandBulkOverwrite(session.State.User.ID, guildID, Commands())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}
