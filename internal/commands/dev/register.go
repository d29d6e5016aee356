// Package dev holds the developer only /dev group. It is published to the dev guild.
package dev

import (
	"github.com/PancyStudios/HelperBot/pkg/config"
	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
)

// Deps are the services the dev commands operate on
type Deps struct {
	Users     *database.UserService
	Blacklist *database.BlacklistService
	Config    *config.Config
}

// Command builds the /dev group
func Command(d Deps) *discord.Command {
	h := &handlers{deps: d}

	blacklist := discord.NewGroup(
		"blacklist",
		"Comandos de blacklist",
		"dev",
		h.blacklistAddCommand(),
		h.blacklistRemoveCommand(),
		h.blacklistListCommand(),
	).WithAliases("bl")

	return discord.NewGroup(
		"dev",
		"Comandos de desarrollo",
		"dev",
		h.evalCommand(),
		h.syncUsersCommand(),
		blacklist,
	).AsDev()
}

type handlers struct {
	deps Deps
}
