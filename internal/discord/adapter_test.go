package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuebot/queuebot/internal/services"
)

func TestParseColor(t *testing.T) {
	assert.Equal(t, 0xFF0000, parseColor("FF0000"))
	assert.Equal(t, 0xFF0000, parseColor("#FF0000"))
	assert.Equal(t, 0xABCDEF, parseColor(" #abcdef "))
	assert.Equal(t, defaultEmbedColor, parseColor(""))
	assert.Equal(t, defaultEmbedColor, parseColor("not-a-color"))
}

func TestPagesToEmbeds(t *testing.T) {
	pages := []services.Page{
		{
			Title:       "queue",
			Description: "desc",
			Fields: []services.PageField{
				{Name: "size: 2", Value: "line1\nline2", Inline: true},
			},
		},
		{Title: "queue"},
	}

	embeds := pagesToEmbeds(pages)
	require.Len(t, embeds, 2)
	assert.Equal(t, "queue", embeds[0].Title)
	assert.Equal(t, "desc", embeds[0].Description)
	require.Len(t, embeds[0].Fields, 1)
	assert.Equal(t, "size: 2", embeds[0].Fields[0].Name)
	assert.True(t, embeds[0].Fields[0].Inline)
	assert.Empty(t, embeds[1].Fields)
}

func TestControlRows(t *testing.T) {
	t.Run("no controls yields no components", func(t *testing.T) {
		assert.Nil(t, controlRows(services.Controls{QueueID: 1}))
	})

	t.Run("buttons carry the queue ID", func(t *testing.T) {
		rows := controlRows(services.Controls{QueueID: 42, JoinLeave: true, Positions: true, Pull: true})
		require.Len(t, rows, 1)

		row, ok := rows[0].(discordgo.ActionsRow)
		require.True(t, ok)
		require.Len(t, row.Components, 4)

		var ids []string
		for _, component := range row.Components {
			button, ok := component.(discordgo.Button)
			require.True(t, ok)
			ids = append(ids, button.CustomID)
		}
		assert.Equal(t, []string{
			"queue_join:42", "queue_leave:42", "queue_positions:42", "queue_pull:42",
		}, ids)
	})

	t.Run("voice queues omit join and leave", func(t *testing.T) {
		rows := controlRows(services.Controls{QueueID: 7, Positions: true, Pull: true})
		require.Len(t, rows, 1)
		row := rows[0].(discordgo.ActionsRow)
		assert.Len(t, row.Components, 2)
	})
}

func TestMapRESTError(t *testing.T) {
	restErr := func(code int) error {
		return &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: code, Message: "nope"}}
	}

	t.Run("permission codes map to ErrSurfaceForbidden", func(t *testing.T) {
		for _, code := range []int{
			discordgo.ErrCodeMissingAccess,
			discordgo.ErrCodeMissingPermissions,
			discordgo.ErrCodeUnknownChannel,
		} {
			assert.ErrorIs(t, mapRESTError(restErr(code)), services.ErrSurfaceForbidden)
		}
	})

	t.Run("unknown message maps to ErrMessageNotFound", func(t *testing.T) {
		assert.ErrorIs(t, mapRESTError(restErr(discordgo.ErrCodeUnknownMessage)), services.ErrMessageNotFound)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		err := restErr(discordgo.ErrCodeCannotSendEmptyMessage)
		assert.Equal(t, err, mapRESTError(err))
		assert.NoError(t, mapRESTError(nil))
	})
}
