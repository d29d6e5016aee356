// Package utils holds the general purpose commands: help and the /utils group.
package utils

import (
	"github.com/PancyStudios/HelperBot/pkg/discord"
)

// StatusProvider reports the database connection state
type StatusProvider interface {
	GetStatus() (string, bool)
}

// Commands returns the help command and the /utils group.
// db may be nil when the bot runs without a database.
func Commands(db StatusProvider) []*discord.Command {
	group := discord.NewGroup(
		"utils",
		"Comandos de utilidad",
		"utils",
		createPingCommand(),
		createStatusCommand(db),
		createStatsCommand(),
	).WithAliases("u")

	return []*discord.Command{createHelpCommand(), group}
}
