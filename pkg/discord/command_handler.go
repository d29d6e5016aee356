// Package discord provides the command handler for registering slash commands with Discord.
package discord

import (
	"errors"
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// applicationCommandAPI is the part of *discordgo.Session used to manage slash commands
type applicationCommandAPI interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

var _ applicationCommandAPI = (*discordgo.Session)(nil)

// CommandHandler publishes the registry's slash definitions to Discord
type CommandHandler struct {
	registry   *Registry
	api        applicationCommandAPI
	devGuildID string
	appID      string
}

// NewCommandHandler creates a CommandHandler. Dev commands go to devGuildID.
func NewCommandHandler(registry *Registry, session *discordgo.Session, devGuildID string) *CommandHandler {
	ch := &CommandHandler{registry: registry, devGuildID: devGuildID}
	if session != nil {
		ch.api = session
		ch.appID = botUserID(session)
	}
	return ch
}

// applicationID returns the bot's application id, asking Discord when the gateway is not open
func (ch *CommandHandler) applicationID() (string, error) {
	if ch.appID != "" {
		return ch.appID, nil
	}
	if ch.api == nil {
		return "", errors.New("no discord session")
	}
	me, err := ch.api.User("@me")
	if err != nil {
		return "", fmt.Errorf("fetching application id: %w", err)
	}
	ch.appID = me.ID
	return ch.appID, nil
}

// SetApplicationID sets the application id, normally learnt from the Ready event
func (ch *CommandHandler) SetApplicationID(id string) {
	ch.appID = id
}

// DevGuildID returns the guild that receives developer commands
func (ch *CommandHandler) DevGuildID() string {
	return ch.devGuildID
}

// ApplicationCommands splits the slash definitions into global and dev-guild commands
func (ch *CommandHandler) ApplicationCommands() (global, dev []*discordgo.ApplicationCommand) {
	global = []*discordgo.ApplicationCommand{}
	dev = []*discordgo.ApplicationCommand{}
	for _, cmd := range ch.registry.All() {
		if !cmd.AllowsSlash() {
			continue
		}
		if cmd.IsDev {
			dev = append(dev, cmd.ToApplicationCommand())
		} else {
			global = append(global, cmd.ToApplicationCommand())
		}
	}
	return global, dev
}

// RegisterCommands overwrites the global commands and, when configured, the dev guild commands
func (ch *CommandHandler) RegisterCommands() error {
	appID, err := ch.applicationID()
	if err != nil {
		return err
	}
	global, dev := ch.ApplicationCommands()

	logger.Info("🔄 Registrando comandos globales...", "CommandHandler")
	created, err := ch.api.ApplicationCommandBulkOverwrite(appID, "", global)
	if err != nil {
		logger.Error("Error registrando comandos globales: "+err.Error(), "CommandHandler")
		return err
	}
	logger.Success(fmt.Sprintf("✅ %d comandos globales registrados.", len(created)), "CommandHandler")

	if ch.devGuildID == "" {
		return nil
	}

	logger.Info("🔄 Registrando comandos de desarrollo en el servidor "+ch.devGuildID+"...", "CommandHandler")
	created, err = ch.api.ApplicationCommandBulkOverwrite(appID, ch.devGuildID, dev)
	if err != nil {
		logger.Error("Error registrando comandos de desarrollo: "+err.Error(), "CommandHandler")
		return err
	}
	logger.Success(fmt.Sprintf("✅ %d comandos de desarrollo registrados.", len(created)), "CommandHandler")
	return nil
}

// SyncCommands overwrites the commands of one scope: global when guildID is empty,
// the dev commands for the dev guild, nothing else for any other guild.
func (ch *CommandHandler) SyncCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	appID, err := ch.applicationID()
	if err != nil {
		return nil, err
	}
	global, dev := ch.ApplicationCommands()

	var wanted []*discordgo.ApplicationCommand
	switch guildID {
	case "":
		wanted = global
	case ch.devGuildID:
		wanted = dev
	default:
		wanted = []*discordgo.ApplicationCommand{}
	}
	return ch.api.ApplicationCommandBulkOverwrite(appID, guildID, wanted)
}

// ListGlobalCommands lists the global commands registered on Discord
func (ch *CommandHandler) ListGlobalCommands() ([]*discordgo.ApplicationCommand, error) {
	return ch.ListGuildCommands("")
}

// ListGuildCommands lists the commands registered on Discord for a guild
func (ch *CommandHandler) ListGuildCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	appID, err := ch.applicationID()
	if err != nil {
		return nil, err
	}
	return ch.api.ApplicationCommands(appID, guildID)
}

// UnregisterCommands removes all global commands from Discord
func (ch *CommandHandler) UnregisterCommands() error {
	return ch.UnregisterGuildCommands("")
}

// UnregisterGuildCommands removes all commands of a guild from Discord
func (ch *CommandHandler) UnregisterGuildCommands(guildID string) error {
	commands, err := ch.ListGuildCommands(guildID)
	if err != nil {
		return err
	}

	var failed int
	for _, cmd := range commands {
		if err := ch.api.ApplicationCommandDelete(ch.appID, guildID, cmd.ID); err != nil {
			logger.Error("Error eliminando comando "+cmd.Name+": "+err.Error(), "CommandHandler")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d de %d comandos no se pudieron eliminar", failed, len(commands))
	}

	logger.Success(fmt.Sprintf("%d comandos eliminados.", len(commands)), "CommandHandler")
	return nil
}
