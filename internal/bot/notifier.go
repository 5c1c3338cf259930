package bot

import (
	"rps_challenge/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// The bot is a game.Notifier for matches that were started in a chat.

func (b *Bot) OnChallengeExpired(m domain.Match) {
	if m.Chat.IsZero() {
		return
	}
	if msgID, ok := b.board(m.ID); ok {
		b.edit(m.Chat.ChatID, msgID, invitationText(m)+"\n\n⌛ Challenge expired.", nil)
	}
	b.forgetBoard(m.ID)
}

func (b *Bot) OnRoundResolved(m domain.Match, round domain.RoundRecord) {
	if m.Chat.IsZero() {
		return
	}
	text := roundResult(m, round)
	var kb *tgbotapi.InlineKeyboardMarkup
	if m.Status == domain.MatchActive {
		k := moveKeyboard(m.ID)
		kb = &k
	}
	if msgID, ok := b.board(m.ID); ok {
		b.edit(m.Chat.ChatID, msgID, text, kb)
		return
	}
	out := tgbotapi.NewMessage(m.Chat.ChatID, text)
	out.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		out.ReplyMarkup = *kb
	}
	if sent, ok := b.send(out); ok && kb != nil {
		b.setBoard(m.ID, sent.MessageID)
	}
}

// OnMatchCompleted posts the final score with a Rematch button.
func (b *Bot) OnMatchCompleted(m domain.Match, _ domain.MatchResult, eval domain.Evaluation) {
	if m.Chat.IsZero() {
		return
	}
	b.forgetBoard(m.ID)

	out := tgbotapi.NewMessage(m.Chat.ChatID, finalText(m, eval))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = rematchKeyboard(m.ID)
	b.send(out)
}
