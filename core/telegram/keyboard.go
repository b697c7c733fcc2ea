package telegram

import (
	"github.com/m3rciful/hamoonbot/core/dialog"

	tele "gopkg.in/telebot.v4"
)

// ReplyButtons builds a reply keyboard from rows of text.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	var keyboard []tele.Row
	for _, row := range rows {
		var buttons []tele.Btn
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// markupFor maps a reply menu directive onto a reply keyboard. MenuNone
// returns nil so the current keyboard stays as is.
func markupFor(menu dialog.Menu) *tele.ReplyMarkup {
	switch menu {
	case dialog.MenuMain:
		return ReplyButtons(
			[]string{dialog.BtnLogin},
			[]string{dialog.BtnHelp},
		)
	case dialog.MenuAuthenticated:
		return ReplyButtons(
			[]string{dialog.BtnTrack, dialog.BtnMyOrders},
			[]string{dialog.BtnComplaint, dialog.BtnRepair},
			[]string{dialog.BtnRate},
			[]string{dialog.BtnHelp, dialog.BtnLogout},
		)
	case dialog.MenuCancel:
		return ReplyButtons(
			[]string{dialog.BtnCancel},
		)
	default:
		return nil
	}
}
