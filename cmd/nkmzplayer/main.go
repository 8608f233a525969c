package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/susu3304/nkmzplayer/internal/api"
	"github.com/susu3304/nkmzplayer/internal/bot"
	"github.com/susu3304/nkmzplayer/internal/commands"
	"github.com/susu3304/nkmzplayer/internal/config"
	"github.com/susu3304/nkmzplayer/internal/db"
	"github.com/susu3304/nkmzplayer/internal/lavalink"
	"github.com/susu3304/nkmzplayer/internal/logging"
	"github.com/susu3304/nkmzplayer/internal/player"
	"github.com/susu3304/nkmzplayer/internal/surface"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logFile, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Play history is optional
	var (
		history    player.History
		historyAPI api.History
		historyCmd commands.HistoryReader
	)
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer database.Close()

		if err := database.RunMigrations(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		history, historyAPI, historyCmd = database, database, database
	} else {
		log.Info().Msg("DATABASE_URL not set, play history disabled")
	}

	discordBot, err := bot.New(cfg.DiscordToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create discord bot")
	}

	registry := player.NewRegistry()
	voice := lavalink.NewVoice()
	dispatcher := player.NewDispatcher(registry, voice)
	node := lavalink.NewClient(lavalink.Config{
		Host:         cfg.LavalinkHost,
		Port:         cfg.LavalinkPort,
		Password:     cfg.LavalinkPassword,
		Secure:       cfg.LavalinkSecure,
		SearchPrefix: cfg.SearchPrefix,
	}, voice, dispatcher)

	controller := player.NewController(player.Options{
		Gateway:     bot.NewGateway(discordBot.Session()),
		Node:        node,
		Renderer:    surface.NewRenderer(discordBot.Session()),
		History:     history,
		Registry:    registry,
		JoinTimeout: cfg.JoinTimeout,
	})
	discordBot.Attach(controller, dispatcher, historyCmd)

	if err := discordBot.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start discord bot")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return node.Run(gctx, discordBot.UserID())
	})
	if cfg.APIEnabled() {
		apiServer := api.New(cfg, controller, historyAPI)
		g.Go(func() error {
			return apiServer.Start(gctx)
		})
	} else {
		log.Info().Msg("DISCORD_CLIENT_ID not set, web API disabled")
	}

	<-gctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := controller.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("player shutdown incomplete")
	}
	if err := discordBot.Stop(); err != nil {
		log.Warn().Err(err).Msg("failed to close discord session")
	}

	cancel()
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
	}
}
