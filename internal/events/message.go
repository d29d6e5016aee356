package events

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// MessageListener routes text commands and answers bare mentions
type MessageListener struct {
	client *discord.ExtendedClient
	deps   Deps
}

// OnMessageCreate is called when a message is created
func (l *MessageListener) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if l.client.Dispatcher.HandleMessage(s, m) {
		return
	}
	if !l.deps.MentionHint || m.Author == nil || m.Author.Bot {
		return
	}

	bot := l.client.BotUser()
	if bot == nil || !isBareMention(m.Content, bot.ID) {
		return
	}

	prefix := l.client.Dispatcher.Prefix
	embed := &discordgo.MessageEmbed{
		Title:       "👋 ¡Hola!",
		Description: fmt.Sprintf("Mi prefijo es `%s`. Usa `%shelp` o `/help` para ver mis comandos.", prefix, prefix),
		Color:       0x5865F2,
	}
	_, err := l.deps.rest(s).ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: m.Reference(),
	})
	if err != nil {
		logger.Warn(fmt.Sprintf("Error respondiendo a la mención: %v", err), "Message")
	}
}

func isBareMention(content, botID string) bool {
	content = strings.TrimSpace(content)
	return content == "<@"+botID+">" || content == "<@!"+botID+">"
}
