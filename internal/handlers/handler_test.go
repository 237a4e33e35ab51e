package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/services"
	"github.com/queuebot/queuebot/internal/storage"
)

const testGuildID = "guild-1"

func newTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers-%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	return repositories.New(db, testGuildID)
}

// adminsInteraction builds an /admins subcommand interaction from the given
// member. A non-empty subjectID is attached as a resolved user mention.
func adminsInteraction(member *discordgo.Member, sub, subjectID string) *discordgo.InteractionCreate {
	var opts []*discordgo.ApplicationCommandInteractionDataOption
	data := discordgo.ApplicationCommandInteractionData{Name: "admins"}
	if subjectID != "" {
		opts = append(opts, &discordgo.ApplicationCommandInteractionDataOption{
			Name:  "subject",
			Type:  discordgo.ApplicationCommandOptionMentionable,
			Value: subjectID,
		})
		data.Resolved = &discordgo.ApplicationCommandInteractionDataResolved{
			Users: map[string]*discordgo.User{subjectID: {ID: subjectID}},
		}
	}
	data.Options = []*discordgo.ApplicationCommandInteractionDataOption{{
		Name:    sub,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: opts,
	}}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: testGuildID,
		Member:  member,
		Data:    data,
	}}
}

func TestParseQueueID(t *testing.T) {
	id, ok := parseQueueID("queue_join:42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = parseQueueID("queue_join")
	assert.False(t, ok)

	_, ok = parseQueueID("queue_join:not-a-number")
	assert.False(t, ok)
}

func TestUserFacingError(t *testing.T) {
	t.Run("known errors surface their message", func(t *testing.T) {
		reply := userFacingError(services.ErrQueueLocked)
		assert.Contains(t, reply, "locked")
		assert.Contains(t, reply, "❌")
	})

	t.Run("wrapped errors are still recognized", func(t *testing.T) {
		err := fmt.Errorf("%w: queue %q has 1 of 5", services.ErrInsufficientMembers, "test")
		reply := userFacingError(err)
		assert.Contains(t, reply, "1 of 5")
	})

	t.Run("unknown errors get a generic reply", func(t *testing.T) {
		reply := userFacingError(errors.New("pq: connection refused"))
		assert.NotContains(t, reply, "pq")
		assert.Contains(t, reply, "Something went wrong")
	})
}

func TestHandleAdmins(t *testing.T) {
	store := newTestStore(t)
	h := &Handler{}
	serverAdmin := &discordgo.Member{
		User:        &discordgo.User{ID: "owner"},
		Permissions: discordgo.PermissionAdministrator,
	}
	plainMember := &discordgo.Member{User: &discordgo.User{ID: "u9"}}

	t.Run("non-admins may not manage the list", func(t *testing.T) {
		_, err := h.handleAdmins(nil, adminsInteraction(plainMember, "add", "u9"), store)
		assert.ErrorIs(t, err, errNotAdmin)
	})

	t.Run("add grants list-based admin access", func(t *testing.T) {
		reply, err := h.handleAdmins(nil, adminsInteraction(serverAdmin, "add", "u9"), store)
		require.NoError(t, err)
		assert.Contains(t, reply, "<@u9>")

		assert.True(t, h.isAdmin(store, plainMember))
	})

	t.Run("duplicate add is rejected", func(t *testing.T) {
		_, err := h.handleAdmins(nil, adminsInteraction(serverAdmin, "add", "u9"), store)
		assert.ErrorIs(t, err, services.ErrEntryExists)
	})

	t.Run("list shows the entry", func(t *testing.T) {
		reply, err := h.handleAdmins(nil, adminsInteraction(serverAdmin, "list", ""), store)
		require.NoError(t, err)
		assert.Contains(t, reply, "<@u9>")
	})

	t.Run("list-based admins may manage the list themselves", func(t *testing.T) {
		_, err := h.handleAdmins(nil, adminsInteraction(plainMember, "list", ""), store)
		assert.NoError(t, err)
	})

	t.Run("delete revokes access", func(t *testing.T) {
		reply, err := h.handleAdmins(nil, adminsInteraction(serverAdmin, "delete", "u9"), store)
		require.NoError(t, err)
		assert.Contains(t, reply, "no longer")

		assert.False(t, h.isAdmin(store, plainMember))
	})

	t.Run("deleting an unknown subject fails", func(t *testing.T) {
		_, err := h.handleAdmins(nil, adminsInteraction(serverAdmin, "delete", "ghost"), store)
		assert.ErrorIs(t, err, services.ErrMemberNotFound)
	})
}

func TestIsAdmin_RoleMembership(t *testing.T) {
	store := newTestStore(t)
	h := &Handler{}
	serverAdmin := &discordgo.Member{
		User:        &discordgo.User{ID: "owner"},
		Permissions: discordgo.PermissionAdministrator,
	}

	// Grant through a role; subjectFromOpt treats unresolved mentions as roles.
	i := adminsInteraction(serverAdmin, "add", "mod-role")
	i.ApplicationCommandData().Resolved.Users = nil
	_, err := h.handleAdmins(nil, i, store)
	require.NoError(t, err)

	modMember := &discordgo.Member{
		User:  &discordgo.User{ID: "u5"},
		Roles: []string{"mod-role"},
	}
	assert.True(t, h.isAdmin(store, modMember))
	assert.False(t, h.isAdmin(store, &discordgo.Member{User: &discordgo.User{ID: "u6"}}))
}
