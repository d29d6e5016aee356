// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with a command registry, a dispatcher, reflective event
// subscription and paginated replies.
package discord

import (
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/metrics"
	"github.com/bwmarrin/discordgo"
)

// discordgo.Logger is a function, not an interface; route it into our logger
func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		case discordgo.LogInformational:
			logger.Info(msg, "DiscordGo")
		default:
			logger.Debug(msg, "DiscordGo")
		}
	}
}

// Options configures a new client
type Options struct {
	Token            string
	Prefix           string
	DevGuildID       string
	IsDeveloper      func(userID string) bool
	DefaultCooldown  time.Duration
	PaginatorMode    PaginatorMode
	PaginatorTimeout time.Duration
	Blacklist        BlacklistChecker
	Usage            UsageRecorder
	Metrics          *metrics.Metrics
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Registry       *Registry
	Dispatcher     *Dispatcher
	Events         *EventManager
	Paginators     *PaginatorManager
	CommandHandler *CommandHandler
	Metrics        *metrics.Metrics
	StartTime      time.Time

	mu       sync.RWMutex
	isReady  bool
	stop     chan struct{}
	stopOnce sync.Once
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(opts Options) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(opts)
	})
	return client, err
}

// Get returns the global Discord client
func Get() *ExtendedClient {
	return client
}

// NewClient creates a new ExtendedClient
func NewClient(opts Options) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentsMessageContent

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	return NewClientFromSession(session, opts), nil
}

// NewClientFromSession builds the client around an existing session without opening it
func NewClientFromSession(session *discordgo.Session, opts Options) *ExtendedClient {
	registry := NewRegistry()

	dispatcher := NewDispatcher(registry, opts.Prefix)
	dispatcher.IsDeveloper = opts.IsDeveloper
	dispatcher.DefaultCooldown = opts.DefaultCooldown
	dispatcher.Blacklist = opts.Blacklist
	dispatcher.Usage = opts.Usage
	dispatcher.Metrics = opts.Metrics

	c := &ExtendedClient{
		Session:        session,
		Registry:       registry,
		Dispatcher:     dispatcher,
		Events:         NewEventManager(session, opts.Metrics),
		Paginators:     NewPaginatorManager(opts.PaginatorMode, opts.PaginatorTimeout, opts.Metrics),
		CommandHandler: NewCommandHandler(registry, session, opts.DevGuildID),
		Metrics:        opts.Metrics,
		stop:           make(chan struct{}),
	}
	dispatcher.Client = c

	return c
}

// RegisterCommands adds command trees to the registry
func (c *ExtendedClient) RegisterCommands(cmds ...*Command) error {
	for _, cmd := range cmds {
		if err := c.Registry.Register(cmd); err != nil {
			return fmt.Errorf("registrando %s: %w", cmd.Name, err)
		}
		logger.Debug("Comando registrado: "+cmd.Name, "Client")
	}
	return nil
}

// Start opens the gateway connection. Slash definitions are published once Ready arrives.
func (c *ExtendedClient) Start() error {
	logger.System(fmt.Sprintf("%d comandos y %d eventos cargados", c.Registry.Size(), c.Events.Handlers()), "Client")

	if _, err := c.Events.On(c.onReady); err != nil {
		return err
	}

	c.StartTime = time.Now()
	if err := c.Session.Open(); err != nil {
		return err
	}

	c.Paginators.Run(15 * time.Second)
	go c.maintenance(time.Minute)
	return nil
}

func (c *ExtendedClient) onReady(s *discordgo.Session, r *discordgo.Ready) {
	c.mu.Lock()
	c.isReady = true
	c.mu.Unlock()

	logger.Success("Bot conectado como: "+r.User.Username, "Client")

	c.CommandHandler.SetApplicationID(r.User.ID)
	if err := c.CommandHandler.RegisterCommands(); err != nil {
		logger.Error("Error publicando comandos: "+err.Error(), "Client")
	}
}

// maintenance sweeps cooldowns and refreshes gauges until Stop
func (c *ExtendedClient) maintenance(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Dispatcher.Cooldowns().Sweep(time.Now())
			c.Metrics.SetGuilds(c.GuildCount())
			c.Metrics.SetGatewayLatency(c.Latency())
		case <-c.stop:
			return
		}
	}
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	c.stopOnce.Do(func() { close(c.stop) })
	c.Paginators.Stop()

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// Latency returns the last heartbeat latency
func (c *ExtendedClient) Latency() time.Duration {
	if c.Session == nil {
		return 0
	}
	return c.Session.HeartbeatLatency()
}

// Uptime returns the time since Start
func (c *ExtendedClient) Uptime() time.Duration {
	if c.StartTime.IsZero() {
		return 0
	}
	return time.Since(c.StartTime)
}

// BotUser returns the bot's own user, nil before Ready
func (c *ExtendedClient) BotUser() *discordgo.User {
	if c.Session == nil || c.Session.State == nil {
		return nil
	}
	return c.Session.State.User
}
