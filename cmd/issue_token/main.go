package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"rps_challenge/internal/db"
	"rps_challenge/internal/domain"
	"rps_challenge/internal/logger"
	"rps_challenge/internal/repository"
	"rps_challenge/internal/service"

	"github.com/joho/godotenv"
)

// Upserts a player and prints an API token for it.
func main() {
	id := flag.Int64("id", 1234567890, "telegram user id")
	username := flag.String("username", "testuser", "telegram username")
	firstName := flag.String("name", "Tester", "first name")
	flag.Parse()

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewPlayerRepository(pool)
	ctx := context.Background()

	p := &domain.Player{ID: *id, Username: *username, FirstName: *firstName}
	if err := repo.Upsert(ctx, p); err != nil {
		logger.Fatal("upsert player failed", "error", err)
	}

	// verify read
	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		logger.Fatal("get player failed", "error", err)
	}
	logger.Info("player ready", "id", got.ID, "username", got.Username, "first_name", got.FirstName, "created_at", got.CreatedAt)

	service.InitJWT(os.Getenv("JWT_SECRET"))
	token, err := service.GenerateJWT(got.ID)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
