package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/hamoonbot/core/dialog"
)

func TestMarkupForMenus(t *testing.T) {
	assert.Nil(t, markupFor(dialog.MenuNone))

	main := markupFor(dialog.MenuMain)
	require.NotNil(t, main)
	require.NotEmpty(t, main.ReplyKeyboard)
	assert.Equal(t, dialog.BtnLogin, main.ReplyKeyboard[0][0].Text)

	authed := markupFor(dialog.MenuAuthenticated)
	require.NotNil(t, authed)
	assert.Len(t, authed.ReplyKeyboard, 4)
	assert.Equal(t, dialog.BtnTrack, authed.ReplyKeyboard[0][0].Text)
	assert.Equal(t, dialog.BtnMyOrders, authed.ReplyKeyboard[0][1].Text)
	assert.Equal(t, dialog.BtnRate, authed.ReplyKeyboard[2][0].Text)

	cancel := markupFor(dialog.MenuCancel)
	require.NotNil(t, cancel)
	assert.Equal(t, dialog.BtnCancel, cancel.ReplyKeyboard[0][0].Text)
}

func TestReplyButtonsResize(t *testing.T) {
	markup := ReplyButtons([]string{"a", "b"}, []string{"c"})
	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 2)
	assert.Len(t, markup.ReplyKeyboard[0], 2)
}
