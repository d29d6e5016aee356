package events

import (
	"fmt"
	"time"

	"github.com/PancyStudios/HelperBot/internal/membersync"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// newJoinWindow tells a fresh join apart from the GuildCreate replayed on connect
const newJoinWindow = 10 * time.Second

// GuildListener keeps user rows in step with the guilds the bot is in
type GuildListener struct {
	client *discord.ExtendedClient
	deps   Deps
	now    func() time.Time
}

func (l *GuildListener) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// OnGuildCreate is called when a guild becomes available or the bot joins one
func (l *GuildListener) OnGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if l.deps.Blacklist != nil {
		if listed, _ := l.deps.Blacklist.IsGuildBlacklisted(g.ID); listed {
			logger.Warn(fmt.Sprintf("Servidor blacklisted detectado: %s. Saliendo...", g.ID), "Guild")
			if err := l.deps.rest(s).GuildLeave(g.ID); err != nil {
				logger.Error(fmt.Sprintf("Error saliendo del servidor %s: %v", g.ID, err), "Guild")
			}
			return
		}
	}

	result, err := membersync.Guild(l.deps.Users, s.State, s, g.ID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error sincronizando miembros de %s: %v", g.ID, err), "Guild")
	} else {
		logger.Debug(fmt.Sprintf("Servidor %s sincronizado: +%d -%d", g.ID, result.Added, result.Removed), "Guild")
	}
	l.client.Metrics.SetGuilds(l.client.GuildCount())

	if l.clock().Sub(g.JoinedAt) > newJoinWindow {
		return
	}
	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")
	logger.Debug(fmt.Sprintf("   Miembros: %d | Canales: %d", g.MemberCount, len(g.Channels)), "Guild")

	if g.SystemChannelID != "" {
		l.sendWelcome(s, g.SystemChannelID)
	}
}

func (l *GuildListener) sendWelcome(s *discordgo.Session, channelID string) {
	prefix := l.client.Dispatcher.Prefix
	embed := &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🎉",
		Description: fmt.Sprintf("Hola, soy **HelperBot**. Usa `/help` o `%shelp` para ver todos mis comandos.", prefix),
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🏷️ Tags", Value: fmt.Sprintf("Guarda respuestas con `%stag create`", prefix), Inline: true},
			{Name: "🏆 Ranking", Value: "Mira quién más usa el bot con `/user top`", Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "¡Disfruta de HelperBot!"},
		Timestamp: l.clock().Format(time.RFC3339),
	}

	if _, err := l.deps.rest(s).ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

// OnGuildDelete is called when the bot leaves a guild or the guild goes unavailable.
// Rows survive outages.
func (l *GuildListener) OnGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("Servidor %s no disponible temporalmente", g.ID), "Guild")
		return
	}

	removed, err := l.deps.Users.RemoveGuild(g.ID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error eliminando usuarios de %s: %v", g.ID, err), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor %s (%d registros eliminados)", g.ID, removed), "Guild")
	l.client.Metrics.SetGuilds(l.client.GuildCount())
}
