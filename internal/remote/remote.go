// Package remote exposes the bot over the MQTT bus: request handlers other
// services can query and an audit stream of executed commands.
package remote

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/config"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/PancyStudios/HelperBot/pkg/mqtt"
)

// Request topics served by Register
const (
	TopicStats    = "bot/stats"
	TopicCommands = "bot/commands"
	TopicTags     = "tags/list"
)

// EventCommand is the event name of command audit messages
const EventCommand = "command"

var ErrGuildRequired = errors.New("guildId requerido")

// Router registers MQTT request handlers
type Router interface {
	On(topic string, handler mqtt.RequestHandler) error
}

// Bot is the part of the Discord client reported by bot/stats
type Bot interface {
	IsReady() bool
	GuildCount() int
	Latency() time.Duration
	Uptime() time.Duration
}

// Handlers holds what the request handlers read from
type Handlers struct {
	Bot        Bot
	Commands   interface{ All() []*discord.Command }
	Tags       interface{ List(guildID string) ([]*models.Tag, error) }
	Paginators interface{ Active() int }
}

// Stats is the bot/stats response
type Stats struct {
	Ready      bool   `json:"ready"`
	Guilds     int    `json:"guilds"`
	LatencyMs  int64  `json:"latencyMs"`
	Uptime     string `json:"uptime"`
	Commands   int    `json:"commands"`
	Paginators int    `json:"paginators"`
	Goroutines int    `json:"goroutines"`
	Version    string `json:"version"`
}

type tagsRequest struct {
	GuildID string `json:"guildId"`
}

// Register subscribes every request handler on the router
func Register(router Router, h Handlers) error {
	routes := map[string]mqtt.RequestHandler{
		TopicStats:    h.stats,
		TopicCommands: h.commands,
		TopicTags:     h.tags,
	}
	for topic, handler := range routes {
		if err := router.On(topic, handler); err != nil {
			return fmt.Errorf("registrando %s: %w", topic, err)
		}
	}
	logger.System(fmt.Sprintf("%d rutas MQTT registradas", len(routes)), "Remote")
	return nil
}

func (h Handlers) stats(req mqtt.Request) (interface{}, error) {
	s := Stats{
		Goroutines: runtime.NumGoroutine(),
		Version:    config.Version,
	}
	if h.Bot != nil {
		s.Ready = h.Bot.IsReady()
		s.Guilds = h.Bot.GuildCount()
		s.LatencyMs = h.Bot.Latency().Milliseconds()
		s.Uptime = h.Bot.Uptime().Round(time.Second).String()
	}
	if h.Commands != nil {
		s.Commands = len(h.Commands.All())
	}
	if h.Paginators != nil {
		s.Paginators = h.Paginators.Active()
	}
	return s, nil
}

func (h Handlers) commands(req mqtt.Request) (interface{}, error) {
	if h.Commands == nil {
		return []discord.CommandInfo{}, nil
	}
	return discord.DescribeCommands(h.Commands.All()), nil
}

func (h Handlers) tags(req mqtt.Request) (interface{}, error) {
	var in tagsRequest
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	if in.GuildID == "" {
		return nil, ErrGuildRequired
	}
	if h.Tags == nil {
		return []*models.Tag{}, nil
	}

	tags, err := h.Tags.List(in.GuildID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []*models.Tag{}
	}
	return tags, nil
}

// Publisher publishes bot events on the bus
type Publisher interface {
	PublishEvent(name string, data interface{}) error
}

// AuditObserver publishes every executed command as an event
type AuditObserver struct {
	bus Publisher
}

// NewAuditObserver creates the observer
func NewAuditObserver(bus Publisher) *AuditObserver {
	return &AuditObserver{bus: bus}
}

// CommandExecuted implements discord.CommandObserver
func (a *AuditObserver) CommandExecuted(ev discord.CommandEvent) {
	err := a.bus.PublishEvent(EventCommand, ev)
	switch {
	case err == nil:
	case errors.Is(err, mqtt.ErrNotConnected):
		logger.Debug("Evento de comando descartado: MQTT desconectado", "Remote")
	default:
		logger.Warn(fmt.Sprintf("Error publicando evento de comando: %v", err), "Remote")
	}
}
