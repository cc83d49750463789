package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"authkit/internal/auth"
	"authkit/internal/config"
	"authkit/internal/db"
	"authkit/internal/repository"
	"authkit/internal/service"
)

// Usage: seed [source]
//
// source is an http(s) URL or a file path holding a JSON array of
// {"name","email","password","role"} objects. It defaults to SEED_SOURCE.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	source := os.Getenv("SEED_SOURCE")
	if len(os.Args) > 1 {
		source = os.Args[1]
	}
	if source == "" {
		log.Fatal().Msg("no seed source: pass a URL or file path, or set SEED_SOURCE")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// Connect to database
	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	log.Info().Str("source", source).Msg("loading seed accounts")
	accounts, err := loadSeedAccounts(source)
	if err != nil {
		log.Fatal().Err(err).Msg("load seed accounts")
	}

	accountService := service.NewAccountService(
		repository.NewAccountRepository(gormDB),
		auth.NewBcryptHasher(cfg.BcryptCost),
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := accountService.SeedAccounts(ctx, accounts)
	if err != nil {
		log.Fatal().Err(err).Int("seeded", count).Msg("seed accounts")
	}
	log.Info().Int("accounts", count).Msg("seed completed")
}

// loadSeedAccounts reads the seed document from a URL or a file.
func loadSeedAccounts(source string) ([]service.SeedAccount, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
	} else {
		var err error
		if body, err = os.ReadFile(source); err != nil {
			return nil, err
		}
	}

	var accounts []service.SeedAccount
	if err := json.Unmarshal(body, &accounts); err != nil {
		return nil, fmt.Errorf("parse seed JSON: %w", err)
	}
	return accounts, nil
}
