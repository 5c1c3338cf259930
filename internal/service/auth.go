package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/telegram"
)

// PlayerUpserter stores the player behind a successful login.
type PlayerUpserter interface {
	Upsert(ctx context.Context, p *domain.Player) error
}

// AuthService exchanges Telegram WebApp init data for an API token.
type AuthService struct {
	botToken string
	players  PlayerUpserter
	now      func() time.Time
}

func NewAuthService(botToken string, players PlayerUpserter) *AuthService {
	return &AuthService{botToken: botToken, players: players, now: time.Now}
}

// Login validates initData, upserts the player and returns a signed token.
// Validation failures wrap telegram.ErrInvalidInitData or ErrStaleInitData.
func (s *AuthService) Login(ctx context.Context, initData string) (string, domain.Player, error) {
	values, err := telegram.ValidateInitData(initData, s.botToken, s.now())
	if err != nil {
		return "", domain.Player{}, err
	}
	user, err := telegram.ParseUser(values)
	if err != nil {
		return "", domain.Player{}, fmt.Errorf("%w: %v", telegram.ErrInvalidInitData, err)
	}

	p := user.Player()
	if s.players != nil {
		if err := s.players.Upsert(ctx, &p); err != nil {
			return "", domain.Player{}, fmt.Errorf("upsert player: %w", err)
		}
	}

	token, err := GenerateJWT(p.ID)
	if err != nil {
		return "", domain.Player{}, fmt.Errorf("sign token: %w", err)
	}
	return token, p, nil
}

// IsAuthError reports whether err came from rejected init data.
func IsAuthError(err error) bool {
	return errors.Is(err, telegram.ErrInvalidInitData) || errors.Is(err, telegram.ErrStaleInitData) || errors.Is(err, telegram.ErrNoUser)
}
