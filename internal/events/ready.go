package events

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// ReadyListener sets the presence once the gateway is ready
type ReadyListener struct {
	client *discord.ExtendedClient
}

// OnReady is called when the bot successfully connects to Discord
func (l *ReadyListener) OnReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Success(fmt.Sprintf("✅ Bot conectado: %s", r.User.Username), "Ready")
	logger.Info(fmt.Sprintf("📊 Conectado a %d servidores con %d comandos", len(r.Guilds), l.client.Registry.Size()), "Ready")
	l.client.Metrics.SetGuilds(len(r.Guilds))

	if err := s.UpdateGameStatus(0, presence(l.client.Dispatcher.Prefix)); err != nil {
		logger.Error(fmt.Sprintf("Error estableciendo estado: %v", err), "Ready")
		return
	}
	logger.Debug("Estado del bot establecido correctamente", "Ready")
}

func presence(prefix string) string {
	if prefix == "" {
		return "/help"
	}
	return fmt.Sprintf("/help | %shelp", prefix)
}
