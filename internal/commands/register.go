// Package commands assembles every command tree of the bot.
// Each category lives in its own subpackage (utils, tags, users, dev).
package commands

import (
	"github.com/PancyStudios/HelperBot/internal/commands/dev"
	"github.com/PancyStudios/HelperBot/internal/commands/tags"
	"github.com/PancyStudios/HelperBot/internal/commands/users"
	"github.com/PancyStudios/HelperBot/internal/commands/utils"
	"github.com/PancyStudios/HelperBot/pkg/config"
	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
)

// Services are the dependencies shared by the command handlers
type Services struct {
	Tags      *database.TagService
	Users     *database.UserService
	Blacklist *database.BlacklistService
	// Database reports the connection state; nil when running on memory stores
	Database utils.StatusProvider
	Config   *config.Config
}

// All builds every command tree
func All(s Services) []*discord.Command {
	cmds := utils.Commands(s.Database)
	cmds = append(cmds,
		tags.Command(s.Tags),
		users.Command(s.Users),
		dev.Command(dev.Deps{
			Users:     s.Users,
			Blacklist: s.Blacklist,
			Config:    s.Config,
		}),
	)
	return cmds
}

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, s Services) error {
	return client.RegisterCommands(All(s)...)
}
