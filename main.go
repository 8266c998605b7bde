package main

import (
	"Nocturne/commands"
	"Nocturne/config"
	"Nocturne/db_client"
	"Nocturne/handlers"
	"Nocturne/history"
	"Nocturne/player"
	"Nocturne/queue"
	"Nocturne/redis_client"
	"Nocturne/searchy"
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var production *bool

func main() {
	// Sets Flag to Debug Mode
	production = flag.Bool("p", false, "enables production with json logging")
	flag.Parse()
	if *production {
		log.InitJSONLogger(&log.Config{Output: os.Stdout})
	} else {
		log.InitSimpleLogger(&log.Config{Output: os.Stdout})
	}

	// Sets up Configurations for Viper
	config.InitConfig()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Optional search cache
	var (
		rdb         *redis.Client
		searchyOpts []searchy.Option
	)
	if cfg.RedisAddress != "" {
		rdb, err = redis_client.New(ctx, cfg.RedisAddress)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, running without a search cache")
			rdb.Close()
			rdb = nil
		} else {
			searchyOpts = append(searchyOpts, searchy.WithCache(searchy.NewRedisCache(rdb)))
		}
	}

	searchyClient := searchy.NewClient(searchy.Config{
		BaseURL:           cfg.SearchyURL,
		MaxResults:        cfg.MaxResults,
		RetryAttempts:     cfg.RetryAttempts,
		RetryDelay:        cfg.RetryDelay,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.RequestTimeout,
		SearchCacheTTL:    cfg.SearchCacheTTL,
	}, searchyOpts...)

	// Optional play history
	var (
		db           *gorm.DB
		historyStore *history.Store
		queueOpts    = []queue.Option{queue.WithTTL(cfg.QueueTTL), queue.WithSweepInterval(cfg.QueueSweepInterval)}
	)
	if cfg.DatabaseDSN != "" {
		db, err = db_client.Open(ctx, cfg.DatabaseDSN, &history.Play{})
		if err != nil {
			log.WithError(err).Warn("Database unavailable, play history disabled")
		} else {
			historyStore = history.NewStore(db)
			queueOpts = append(queueOpts, queue.WithRecorder(historyStore))
		}
	}

	players := player.NewPool(
		func() player.Player { return player.NewAudioPlayer() },
		player.WithTTL(cfg.PlayerTTL),
		player.WithSweepInterval(cfg.PlayerSweepInterval),
	)
	queueManager := queue.NewManager(
		searchyClient,
		player.NewFetcher(searchyClient.HTTPClient(), cfg.Volume),
		players,
		queueOpts...,
	)

	// Creates Discord Bot Session
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.WithError(err).Error("Failed to create discord session")
		os.Exit(1)
	}

	// Configuring Intents and Adding Handlers
	handlers.HandlerConfig(s)

	// Register Slash and Component Commands
	commands.RegisterSlashCommands(s, &commands.Services{
		Config:  cfg,
		Queue:   queueManager,
		Players: players,
		Searchy: searchyClient,
		History: historyStore,
	})

	// Connecting to Discord Server Gateway
	if err := s.Open(); err != nil {
		log.WithError(err).Error("Failed to open discord gateway connection")
		os.Exit(1)
	}
	log.WithFields(log.Fields{"searchy_url": cfg.SearchyURL}).Info("Bot is initialising")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc
	gracefulShutdown(s, queueManager, rdb, db)
}

// gracefulShutdown handles cleaning up after the bot is shutdown
func gracefulShutdown(s *discordgo.Session, queueManager *queue.Manager, rdb *redis.Client, db *gorm.DB) {
	log.Info("Starting graceful shutdown...")

	stats := queueManager.Stats()
	log.WithFields(log.Fields{
		"queues":         stats.TotalQueues,
		"playing_queues": stats.PlayingQueues,
		"players":        stats.Players.TotalPlayers,
	}).Info("Stopping playback")

	// Also destroys the player pool
	queueManager.Destroy()
	commands.Shutdown()

	for _, vc := range s.VoiceConnections {
		if vc != nil {
			vc.Disconnect()
		}
	}

	if err := s.Close(); err != nil {
		log.WithError(err).Warn("Error closing discord session")
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Warn("Error closing redis client")
		}
	}
	if db != nil {
		if err := db_client.Close(db); err != nil {
			log.WithError(err).Warn("Error closing database")
		}
	}

	log.Info("Cleanly exiting")
}
