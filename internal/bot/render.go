package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/game"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbAccept  = "acc"
	cbDecline = "dec"
	cbMove    = "mv"
	cbRematch = "rm"
)

func name(p domain.Participant) string {
	if p.Name == "" {
		return fmt.Sprintf("player %d", p.ID)
	}
	return html.EscapeString(p.Name)
}

func moveLabel(m domain.Move) string {
	return m.Emoji() + " " + strings.ToUpper(string(m[:1])) + string(m[1:])
}

func header(m domain.Match) string {
	return fmt.Sprintf("🎮 <b>%s</b> vs <b>%s</b> 🎮", name(m.Challenger), name(m.Challenged))
}

func score(m domain.Match) string {
	return fmt.Sprintf("Score:\n%s: %d\n%s: %d",
		name(m.Challenger), m.ChallengerScore,
		name(m.Challenged), m.ChallengedScore,
	)
}

func turnHolder(m domain.Match) domain.Participant {
	p, _ := m.Participant(m.CurrentTurn)
	return p
}

func invitationText(m domain.Match) string {
	text := fmt.Sprintf("%s, you have been challenged by %s for %d round(s)!",
		name(m.Challenged), name(m.Challenger), m.TotalRounds)
	if m.RematchOf != "" {
		text = "🔁 Rematch! " + text
	}
	return text
}

func invitationKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Accept", cbAccept+":"+id),
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline", cbDecline+":"+id),
		),
	)
}

func moveKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(domain.Moves))
	for _, mv := range domain.Moves {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(moveLabel(mv), cbMove+":"+id+":"+string(mv)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func rematchKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Rematch", cbRematch+":"+id),
		),
	)
}

// roundPrompt is the board while a round waits for moves.
func roundPrompt(m domain.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nRound %d of %d\n\n%s\n\n", header(m), m.CurrentRound, m.TotalRounds, score(m))
	if m.PendingMover != 0 {
		mover, _ := m.Participant(m.PendingMover)
		fmt.Fprintf(&b, "%s has made a move! ", name(mover))
	}
	fmt.Fprintf(&b, "%s, it's your turn!", name(turnHolder(m)))
	return b.String()
}

// roundResult describes a resolved round, followed by the next prompt when
// the match goes on.
func roundResult(m domain.Match, rec domain.RoundRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nRound %d\n\n%s\n\n", header(m), rec.Round, score(m))
	fmt.Fprintf(&b, "%s chose %s\n%s chose %s\n\n",
		name(m.Challenger), moveLabel(rec.ChallengerMove),
		name(m.Challenged), moveLabel(rec.ChallengedMove),
	)
	switch {
	case rec.WinnerID == nil:
		b.WriteString("🤝 It's a tie!")
	default:
		w, _ := m.Participant(*rec.WinnerID)
		fmt.Fprintf(&b, "🏆 %s wins this round! 🏆", name(w))
	}
	if m.Status == domain.MatchActive {
		fmt.Fprintf(&b, "\n\nRound %d! %s, it's your turn!", m.CurrentRound, name(turnHolder(m)))
	}
	return b.String()
}

func finalText(m domain.Match, eval domain.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nFinal %s\n\n", header(m), score(m))
	if w := m.Winner(); w != nil {
		p, _ := m.Participant(*w)
		fmt.Fprintf(&b, "🏆 %s wins the challenge! 🏆", name(p))
	} else {
		b.WriteString("🤝 It's a tie!")
	}

	for _, p := range []domain.Participant{m.Challenger, m.Challenged} {
		pe, ok := eval.For(p.ID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s: +%d XP, level %d", name(p), pe.XPGained, pe.Level)
		if pe.LeveledUp {
			b.WriteString(" ⬆️")
		}
		for _, a := range pe.Achievements {
			fmt.Fprintf(&b, "\n%s %s", a.Type.Icon(), html.EscapeString(a.Description))
		}
	}
	return b.String()
}

func statsText(who string, s domain.PlayerStats, p domain.PlayerProgress) string {
	if s.TotalGames == 0 {
		return fmt.Sprintf("No stats found for %s. Start playing to record your stats!", html.EscapeString(who))
	}
	fav := "none"
	if m := s.FavoriteMove(); m != "" {
		fav = moveLabel(m)
	}
	return fmt.Sprintf(`<b>📊 Stats for %s</b>

• Level: %d (%d XP)
• Games: %d
• Wins: %d
• Losses: %d
• Ties: %d
• Win rate: %.1f%%
• Favourite move: %s
• Win streak: %d`,
		html.EscapeString(who),
		s.Level, s.ExperiencePts,
		s.TotalGames, s.Wins, s.Losses, s.Ties,
		s.WinRate(), fav, p.WinStreak,
	)
}

func achievementsText(who string, list []domain.Achievement) string {
	if len(list) == 0 {
		return fmt.Sprintf("%s has no achievements yet.", html.EscapeString(who))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🏅 Achievements of %s</b>\n", html.EscapeString(who))
	for _, a := range list {
		fmt.Fprintf(&b, "\n%s %s <i>(%s)</i>", a.Type.Icon(), html.EscapeString(a.Description), a.AwardedAt.Format("02.01.2006"))
	}
	return b.String()
}

const helpText = `<b>🎮 Rock Paper Scissor</b>

/challenge [rounds] - reply to someone's message to challenge them (1-10 rounds)
/stats - your stats, or reply to see someone else's
/achievements - your achievements, or reply to see someone else's
/help - show this message`

// userText maps engine errors to short texts for callback alerts and replies.
func userText(err error) string {
	switch {
	case errors.Is(err, game.ErrAlreadyChallenged):
		return "There is already an open challenge between you two."
	case errors.Is(err, game.ErrSelfChallenge):
		return "You cannot challenge yourself!"
	case errors.Is(err, game.ErrInvalidRoundCount):
		return "Number of rounds must be between 1 and 10."
	case errors.Is(err, game.ErrNotFound):
		return "Challenge expired or not found."
	case errors.Is(err, game.ErrWrongTurn):
		return "It's not your turn!"
	case errors.Is(err, game.ErrAlreadyMoved):
		return "You already made your move."
	case errors.Is(err, game.ErrMatchNotActive):
		return "This match is not running."
	case errors.Is(err, game.ErrMatchNotPending):
		return "This challenge was already answered."
	case errors.Is(err, game.ErrNotChallenged):
		return "Only the challenged player can answer."
	case errors.Is(err, game.ErrNotParticipant):
		return "You are not playing in this match."
	case errors.Is(err, game.ErrInvalidMove):
		return "Invalid move."
	}
	return "Something went wrong, try again later."
}
