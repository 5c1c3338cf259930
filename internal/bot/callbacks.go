package bot

import (
	"context"
	"strings"

	"rps_challenge/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleCallback dispatches acc:<id>, dec:<id>, mv:<id>:<move> and rm:<id>.
func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil {
		return
	}
	if !b.allow(ctx, q.From.ID) {
		b.answer(q, "⏳ Slow down!")
		return
	}

	parts := strings.SplitN(q.Data, ":", 3)
	if len(parts) < 2 || parts[1] == "" {
		b.answer(q, "")
		return
	}
	action, id := parts[0], parts[1]
	log := b.log.With("match_id", id, "user", q.From.ID, "action", action)

	switch action {
	case cbAccept:
		b.remember(ctx, q.From)
		m, err := b.engine.AcceptChallenge(ctx, id, q.From.ID)
		if err != nil {
			log.Debug("accept rejected", "error", err)
			b.answer(q, userText(err))
			return
		}
		b.answer(q, "Challenge accepted!")
		b.showRound(m)

	case cbDecline:
		err := b.engine.DeclineChallenge(ctx, id, q.From.ID)
		if err != nil {
			log.Debug("decline rejected", "error", err)
			b.answer(q, userText(err))
			return
		}
		b.answer(q, "Challenge declined.")
		if q.Message != nil {
			b.edit(q.Message.Chat.ID, q.Message.MessageID,
				name(domain.Participant{ID: q.From.ID, Name: playerOf(q.From).DisplayName()})+" declined the challenge.", nil)
		}
		b.forgetBoard(id)

	case cbMove:
		if len(parts) != 3 {
			b.answer(q, userText(nil))
			return
		}
		move, ok := domain.ParseMove(parts[2])
		if !ok {
			b.answer(q, "Invalid move.")
			return
		}
		res, err := b.engine.SubmitMove(ctx, id, q.From.ID, move)
		if err != nil {
			log.Debug("move rejected", "error", err)
			b.answer(q, userText(err))
			return
		}
		b.answer(q, "You chose "+moveLabel(move))
		if res.Round == nil {
			// resolved rounds are rendered by the notifier
			b.showRound(res.Match)
		}

	case cbRematch:
		b.remember(ctx, q.From)
		m, err := b.engine.RequestRematch(ctx, id, q.From.ID)
		if err != nil {
			log.Debug("rematch rejected", "error", err)
			b.answer(q, userText(err))
			return
		}
		b.answer(q, "Rematch requested!")
		if m.Chat.IsZero() && q.Message != nil {
			m.Chat = domain.ChatRef{ChatID: q.Message.Chat.ID}
		}
		b.postInvitation(m)

	default:
		b.answer(q, "")
	}
}

// showRound puts the current round prompt with move buttons on the board.
func (b *Bot) showRound(m domain.Match) {
	if m.Chat.IsZero() {
		return
	}
	kb := moveKeyboard(m.ID)
	if msgID, ok := b.board(m.ID); ok {
		b.edit(m.Chat.ChatID, msgID, roundPrompt(m), &kb)
		return
	}
	out := tgbotapi.NewMessage(m.Chat.ChatID, roundPrompt(m))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = kb
	if sent, ok := b.send(out); ok {
		b.setBoard(m.ID, sent.MessageID)
	}
}
