// Package events holds the gateway listeners of the bot. Each listener is a
// struct whose On<Event> methods are subscribed through the event manager.
package events

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// Deps are the services the listeners work with
type Deps struct {
	Users       *database.UserService
	Blacklist   discord.BlacklistChecker
	MentionHint bool
	// Rest replaces the session for outgoing REST calls; nil uses the session
	Rest func(s *discordgo.Session) discord.RestSession
}

func (d Deps) rest(s *discordgo.Session) discord.RestSession {
	if d.Rest != nil {
		return d.Rest(s)
	}
	return s
}

// Listeners builds every listener of the bot
func Listeners(client *discord.ExtendedClient, d Deps) []interface{} {
	return []interface{}{
		&ReadyListener{client: client},
		&GuildListener{client: client, deps: d},
		&MemberListener{users: d.Users},
		&MessageListener{client: client, deps: d},
		&ReactionListener{client: client},
		&InteractionListener{client: client},
		&ShardListener{},
	}
}

// Register subscribes all listeners to the client's event manager
func Register(client *discord.ExtendedClient, d Deps) error {
	logger.System("📋 Registrando eventos del bot...", "Events")

	for _, l := range Listeners(client, d) {
		if err := client.Events.Subscribe(l); err != nil {
			return fmt.Errorf("suscribiendo %T: %w", l, err)
		}
	}

	logger.Success(fmt.Sprintf("✅ %d eventos registrados correctamente", client.Events.Handlers()), "Events")
	return nil
}
