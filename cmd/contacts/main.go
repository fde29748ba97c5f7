package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/conf"
	"github.com/futurelink/zbot/internal/data"
)

// contacts inspects the on-disk contact book without starting the bot.
func main() {
	_ = godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	store, err := data.NewStore(cfg.StateDir, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	repos := data.NewRepositories(store)

	ctx := context.Background()
	book, err := repos.Contacts.Book(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	mode := "summary"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "summary":
		fmt.Printf("Contacts: %d ordinary, %d special\n", len(book.Ordinary), len(book.Special))
	case "special":
		printContacts(book.Special)
	case "ordinary":
		printContacts(book.Ordinary)
	default:
		fmt.Println("Usage: contacts [summary|special|ordinary]")
		os.Exit(1)
	}
}

func printContacts(list []domain.Contact) {
	for i, c := range list {
		name := c.Name
		if name == "" {
			name = "-"
		}
		fmt.Printf("%3d. %-20s %s (since %s)\n", i+1, name, domain.PhonePart(c.JID), c.FirstSeen.Format("2006-01-02"))
	}
}
