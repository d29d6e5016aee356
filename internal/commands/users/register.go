// Package users implements the /user group over the per guild user rows.
package users

import (
	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
)

const userColor = 0x57F287

// Command builds the /user group
func Command(svc *database.UserService) *discord.Command {
	h := &handlers{users: svc}
	return discord.NewGroup(
		"user",
		"Información de los miembros del servidor",
		"users",
		h.infoCommand(),
		h.topCommand(),
	).WithAliases("usuario").InGuildOnly()
}

type handlers struct {
	users *database.UserService
}
