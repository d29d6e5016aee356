package utils

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/discord"
)

// createStatusCommand creates the /utils status subcommand
func createStatusCommand(db StatusProvider) *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot",
		"utils",
		func(ctx *discord.CommandContext) error {
			return statusHandler(ctx, db)
		},
	)
}

func statusHandler(ctx *discord.CommandContext, db StatusProvider) error {
	dbStatus := "⚪ No configurada"
	if db != nil {
		dbStatus, _ = db.GetStatus()
	}

	return ctx.Reply(fmt.Sprintf(
		"📊 **Estado del Bot**\n"+
			"• Bot: 🟢 Online\n"+
			"• Base de datos: %s\n"+
			"• Servidores: %d\n"+
			"• Paginadores activos: %d",
		dbStatus,
		ctx.Client.GuildCount(),
		ctx.Client.Paginators.Active(),
	))
}
