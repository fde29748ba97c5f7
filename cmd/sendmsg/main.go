package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/conf"
	"github.com/futurelink/zbot/internal/data"
	"github.com/futurelink/zbot/internal/infra/wa"
)

// sendmsg sends one text message through an already-paired session and
// exits. Useful for smoke-testing a deployment.
func main() {
	_ = godotenv.Load()

	if len(os.Args) < 3 {
		fmt.Println("Usage: sendmsg <number-or-jid> <message>")
		os.Exit(1)
	}
	to := os.Args[1]
	text := os.Args[2]

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := data.NewStore(cfg.StateDir, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	repos := data.NewRepositories(store)

	manager, err := wa.NewManager(ctx, cfg.SessionDB, "", cfg.SendRatePerMinute, cfg.ReconnectDelay(), repos.Settings, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	connected := make(chan struct{})
	manager.OnConnected(func() { close(connected) })

	go func() {
		if err := manager.Run(ctx); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}()

	select {
	case <-connected:
	case <-ctx.Done():
		fmt.Println("Error: connection timed out (is the session paired?)")
		os.Exit(1)
	}

	if err := manager.Transport().SendText(ctx, to, text); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Message sent successfully!")
	cancel()
}
