// Package main is the entry point for HelperBot.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/HelperBot/internal/commands"
	"github.com/PancyStudios/HelperBot/internal/events"
	"github.com/PancyStudios/HelperBot/internal/remote"
	"github.com/PancyStudios/HelperBot/pkg/anticrash"
	"github.com/PancyStudios/HelperBot/pkg/config"
	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/metrics"
	"github.com/PancyStudios/HelperBot/pkg/mqtt"
	"github.com/PancyStudios/HelperBot/pkg/web"
)

// memoryStatus reports the in-memory backend in /status and /api/status
type memoryStatus struct{}

func (memoryStatus) GetStatus() (string, bool) { return "💾 En memoria", true }

// stores holds the persistence backend chosen by STORAGE
type stores struct {
	users     database.UserStore
	tags      database.TagStore
	blacklist database.BlacklistStore
	status    web.StatusProvider
	db        *database.Database
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando HelperBot %s (build %s)...", config.Version, config.BuildTime), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	if cfg.BotToken == "" {
		logger.Critical("BOT_TOKEN no está configurado", "Main")
		os.Exit(1)
	}

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	anticrash.Init(cfg.ErrorWebhook, func() {
		if discordClient != nil {
			if err := discordClient.Stop(); err != nil {
				logger.Error(fmt.Sprintf("Error cerrando la sesión: %v", err), "Main")
			}
		}
	})
	defer anticrash.Get().Stop()

	// Initialize storage
	st := openStores(cfg)
	if st.db != nil {
		defer func() {
			if err := st.db.Disconnect(); err != nil {
				logger.Error(fmt.Sprintf("Error desconectando la base de datos: %v", err), "Main")
			}
		}()
	}

	// Services
	tagService := database.NewTagService(st.tags)
	userService := database.NewUserService(st.users)
	blacklistService := database.NewBlacklistService(st.blacklist)
	if err := blacklistService.Refresh(); err != nil {
		logger.Warn(fmt.Sprintf("Error inicializando caché de blacklist: %v", err), "Main")
	}
	blacklistService.StartAutoRefresh(5 * time.Minute)
	defer blacklistService.Stop()

	// Metrics
	m := metrics.New()

	// Initialize Discord client
	discordClient, err = discord.Init(discord.Options{
		Token:            cfg.BotToken,
		Prefix:           cfg.Prefix,
		DevGuildID:       cfg.DevGuildID,
		IsDeveloper:      cfg.IsDeveloper,
		DefaultCooldown:  cfg.CommandCooldown,
		PaginatorMode:    discord.ParsePaginatorMode(cfg.PaginatorMode),
		PaginatorTimeout: cfg.PaginatorTimeout,
		Blacklist:        blacklistService,
		Usage:            userService,
		Metrics:          m,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	services := commands.Services{
		Tags:      tagService,
		Users:     userService,
		Blacklist: blacklistService,
		Database:  st.status,
		Config:    cfg,
	}
	if err := commands.RegisterAll(discordClient, services); err != nil {
		logger.Critical(fmt.Sprintf("Error registrando comandos: %v", err), "Main")
		os.Exit(1)
	}

	err = events.Register(discordClient, events.Deps{
		Users:       userService,
		Blacklist:   blacklistService,
		MentionHint: cfg.MentionHint,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error registrando eventos: %v", err), "Main")
		os.Exit(1)
	}

	// Initialize MQTT
	mqttClientID := "helperbot"
	if !cfg.IsProd() {
		mqttClientID = "helperbot_canary"
	}
	mqttClient := mqtt.Init(mqtt.Options{
		Host:        cfg.MQTTHost,
		Port:        cfg.MQTTPort,
		Username:    cfg.MQTTUser,
		Password:    cfg.MQTTPassword,
		ClientID:    mqttClientID,
		TopicPrefix: cfg.MQTTTopicPrefix,
	})
	defer mqttClient.Destroy()
	mqttClient.SetMetrics(m)

	err = remote.Register(mqttClient, remote.Handlers{
		Bot:        discordClient,
		Commands:   discordClient.Registry,
		Tags:       tagService,
		Paginators: discordClient.Paginators,
	})
	if err != nil {
		logger.Warn(fmt.Sprintf("Error registrando handlers MQTT: %v", err), "Main")
	}
	discordClient.Dispatcher.AddObserver(remote.NewAuditObserver(mqttClient))

	// Initialize web server
	webServer, err := web.Init(web.Options{WebhookURL: cfg.LogsWebServerHook})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creando el servidor web: %v", err), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer, web.Dependencies{
		Bot:      discordClient,
		Database: st.status,
		Commands: discordClient.Registry,
		Tags:     tagService,
		Metrics:  m,
		Version:  config.Version,
	})
	webServer.StartAsync(cfg.Port)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webServer.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("Error cerrando el servidor web: %v", err), "Main")
		}
	}()

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := discordClient.Stop(); err != nil {
			logger.Error(fmt.Sprintf("Error cerrando la sesión: %v", err), "Main")
		}
	}()

	stopQueue := make(chan struct{})
	defer close(stopQueue)
	if st.db != nil {
		go watchWriteQueue(st.db, m, stopQueue)
	}

	logger.Success("HelperBot iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando HelperBot...", "Main")
}

// openStores connects to MongoDB or falls back to memory stores when STORAGE=memory
func openStores(cfg *config.Config) stores {
	if cfg.UsesMemoryStorage() {
		logger.Warn("STORAGE=memory: los datos se perderán al reiniciar", "Main")
		return stores{
			users:     database.NewMemoryUserStore(),
			tags:      database.NewMemoryTagStore(),
			blacklist: database.NewMemoryBlacklistStore(),
			status:    memoryStatus{},
		}
	}

	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		// The database keeps retrying in the background and queues writes meanwhile
		logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
		logger.Debug(fmt.Sprintf("Error connecting to database: %v", cfg.MongoDBURL), "Main")
	}
	db.StartHealthCheck(30 * time.Second)
	return stores{
		users:     database.NewMongoUserStore(db),
		tags:      database.NewMongoTagStore(db),
		blacklist: database.NewMongoBlacklistStore(db),
		status:    db,
		db:        db,
	}
}

// watchWriteQueue publishes the offline write queue length until stop closes
func watchWriteQueue(db *database.Database, m *metrics.Metrics, stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.SetDBQueuedWrites(db.QueueLength())
		case <-stop:
			return
		}
	}
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
