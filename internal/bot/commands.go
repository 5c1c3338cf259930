package bot

import (
	"context"
	"strconv"
	"strings"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/game"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.allow(ctx, msg.From.ID) {
		b.reply(msg, "⏳ Slow down, try again in a minute.")
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.remember(ctx, msg.From)
		b.reply(msg, helpText)
	case "challenge":
		b.handleChallenge(ctx, msg)
	case "stats":
		b.handleStats(ctx, msg)
	case "achievements":
		b.handleAchievements(ctx, msg)
	}
}

// handleChallenge opens a challenge against the author of the replied message.
func (b *Bot) handleChallenge(ctx context.Context, msg *tgbotapi.Message) {
	target := msg.ReplyToMessage
	if target == nil || target.From == nil {
		b.reply(msg, "Please reply to a user's message to challenge them.")
		return
	}
	if target.From.IsBot {
		b.reply(msg, "Bots do not play.")
		return
	}

	rounds := 1
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			b.reply(msg, "Usage: /challenge [rounds] (max 10)")
			return
		}
		rounds = n
	}

	m, err := b.engine.CreateChallenge(ctx, game.Challenge{
		Challenger: b.remember(ctx, msg.From),
		Challenged: b.remember(ctx, target.From),
		Rounds:     rounds,
		Chat:       domain.ChatRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
	})
	if err != nil {
		b.reply(msg, userText(err))
		return
	}
	b.postInvitation(m)
}

// postInvitation sends the Accept/Decline message and tracks it as the board.
func (b *Bot) postInvitation(m domain.Match) {
	out := tgbotapi.NewMessage(m.Chat.ChatID, invitationText(m))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyToMessageID = m.Chat.MessageID
	out.ReplyMarkup = invitationKeyboard(m.ID)
	if sent, ok := b.send(out); ok {
		b.setBoard(m.ID, sent.MessageID)
	}
}

// subject is the replied-to user when there is one, the author otherwise.
func subject(msg *tgbotapi.Message) *tgbotapi.User {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From
	}
	return msg.From
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	b.remember(ctx, msg.From)
	u := subject(msg)
	who := playerOf(u).DisplayName()

	stats, err := b.players.GetStats(ctx, u.ID)
	if err != nil {
		b.log.Error("failed to load stats", "player_id", u.ID, "error", err)
		b.reply(msg, userText(err))
		return
	}
	progress, err := b.players.GetProgress(ctx, u.ID)
	if err != nil {
		b.log.Warn("failed to load progress", "player_id", u.ID, "error", err)
	}
	b.reply(msg, statsText(who, stats, progress))
}

func (b *Bot) handleAchievements(ctx context.Context, msg *tgbotapi.Message) {
	b.remember(ctx, msg.From)
	u := subject(msg)

	list, err := b.players.GetPlayerAchievements(ctx, u.ID)
	if err != nil {
		b.log.Error("failed to load achievements", "player_id", u.ID, "error", err)
		b.reply(msg, userText(err))
		return
	}
	b.reply(msg, achievementsText(playerOf(u).DisplayName(), list))
}
