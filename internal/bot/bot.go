package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/game"
	"rps_challenge/internal/logger"
	"rps_challenge/internal/ratelimit"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const handlerTimeout = 30 * time.Second

// Sender is the part of *tgbotapi.BotAPI used for output.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Engine is the part of game.Engine the bot drives.
type Engine interface {
	CreateChallenge(ctx context.Context, c game.Challenge) (domain.Match, error)
	AcceptChallenge(ctx context.Context, id string, userID int64) (domain.Match, error)
	DeclineChallenge(ctx context.Context, id string, userID int64) error
	SubmitMove(ctx context.Context, id string, userID int64, move domain.Move) (game.MoveResult, error)
	RequestRematch(ctx context.Context, id string, requesterID int64) (domain.Match, error)
}

// Players is the gateway view used by /stats and /achievements.
type Players interface {
	Upsert(ctx context.Context, p *domain.Player) error
	GetStats(ctx context.Context, playerID int64) (domain.PlayerStats, error)
	GetProgress(ctx context.Context, playerID int64) (domain.PlayerProgress, error)
	GetPlayerAchievements(ctx context.Context, playerID int64) ([]domain.Achievement, error)
}

// Bot presents challenges in Telegram chats
type Bot struct {
	api     *tgbotapi.BotAPI
	out     Sender
	engine  Engine
	players Players
	limiter *ratelimit.Limiter
	stopCh  chan struct{}
	wg      sync.WaitGroup
	log     *slog.Logger

	mu sync.Mutex
	// boards maps a match id to the chat message that shows its state.
	boards map[string]int
}

// NewBot connects to the Bot API with token.
func NewBot(token string, engine Engine, players Players, limiter *ratelimit.Limiter) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b := New(api, engine, players, limiter)
	b.api = api
	b.log.Info("bot authorized", "username", api.Self.UserName)
	return b, nil
}

// New builds a bot around an existing sender. The engine may be set later
// with SetEngine, since the engine takes the bot as a notifier.
func New(out Sender, engine Engine, players Players, limiter *ratelimit.Limiter) *Bot {
	return &Bot{
		out:     out,
		engine:  engine,
		players: players,
		limiter: limiter,
		stopCh:  make(chan struct{}),
		log:     logger.With("component", "bot"),
		boards:  make(map[string]int),
	}
}

func (b *Bot) SetEngine(e Engine) {
	b.engine = e
}

// Start starts listening for updates. It blocks until Stop.
func (b *Bot) Start() {
	if b.api == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(u)
			}(update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *Bot) handleUpdate(u tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in update handler", "panic", r)
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.IsCommand():
		b.handleCommand(ctx, u.Message)
	}
}

// allow runs the per-user throttle shared by commands and callbacks.
func (b *Bot) allow(ctx context.Context, userID int64) bool {
	d := b.limiter.Allow(ctx, "bot", userID)
	if !d.Allowed {
		b.log.Debug("bot action throttled", "user", userID, "retry_after", d.RetryAfter)
	}
	return d.Allowed
}

// remember upserts a Telegram user as a player. Failures only get logged.
func (b *Bot) remember(ctx context.Context, u *tgbotapi.User) domain.Participant {
	p := playerOf(u)
	if b.players != nil && !u.IsBot {
		if err := b.players.Upsert(ctx, &p); err != nil {
			b.log.Warn("failed to upsert player", "player_id", p.ID, "error", err)
		}
	}
	return domain.Participant{ID: p.ID, Name: p.DisplayName()}
}

func playerOf(u *tgbotapi.User) domain.Player {
	return domain.Player{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}

func (b *Bot) setBoard(matchID string, messageID int) {
	b.mu.Lock()
	b.boards[matchID] = messageID
	b.mu.Unlock()
}

func (b *Bot) board(matchID string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.boards[matchID]
	return id, ok
}

func (b *Bot) forgetBoard(matchID string) {
	b.mu.Lock()
	delete(b.boards, matchID)
	b.mu.Unlock()
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, bool) {
	msg, err := b.out.Send(c)
	if err != nil {
		b.log.Error("error sending message", "error", err)
		return msg, false
	}
	return msg, true
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyToMessageID = msg.MessageID
	b.send(out)
}

// edit rewrites a board message. A nil keyboard removes the buttons.
func (b *Bot) edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	e := tgbotapi.NewEditMessageText(chatID, messageID, text)
	e.ParseMode = tgbotapi.ModeHTML
	e.ReplyMarkup = kb
	b.send(e)
}

func (b *Bot) answer(q *tgbotapi.CallbackQuery, text string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(q.ID, text)); err != nil {
		b.log.Debug("error answering callback", "error", err)
	}
}
