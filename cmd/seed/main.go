package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/victornm/quizbot/internal/config"
	"github.com/victornm/quizbot/internal/question"
	"github.com/victornm/quizbot/internal/server"
)

func main() {
	file := flag.String("file", "data/questions.yaml", "YAML file with the questions to insert")
	flag.Parse()

	if err := run(*file); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}

func run(file string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	c := server.DefaultConfig()
	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		return fmt.Errorf("CONFIG_PATH not set")
	}
	if err := config.Load(p, &c, config.WithEnvPrefix("QUIZBOT")); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	qs, err := question.LoadFile(file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := server.Connect(ctx, c.Postgres.Addr, c.Postgres.User, c.Postgres.Pass, c.Postgres.Name)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.Close()

	n, err := question.NewPostgres(question.Config{DB: db}).Seed(ctx, qs)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "seed: done", "file", file, "read", len(qs), "inserted", n)
	return nil
}
