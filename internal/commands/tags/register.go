// Package tags implements the /tag command group: per guild text snippets
// that members create and recall by name.
package tags

import (
	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// Command builds the /tag group. The subcommand names and aliases are
// reserved in svc so no tag can shadow them in text invocations.
func Command(svc *database.TagService) *discord.Command {
	h := &handlers{tags: svc}

	group := discord.NewGroup(
		"tag",
		"Guarda y muestra textos del servidor",
		"tags",
		h.showCommand(),
		h.createCommand(),
		h.editCommand(),
		h.deleteCommand(),
		h.listCommand(),
		h.infoCommand(),
		h.transferCommand(),
	).WithAliases("t").InGuildOnly()

	// !t <nombre> shows a tag directly
	group.Run = h.showShortcut
	group.Options = []*discordgo.ApplicationCommandOption{nameOption(false)}

	for _, sub := range group.Subcommands {
		svc.Reserve(sub.Name)
		svc.Reserve(sub.Aliases...)
	}
	return group
}

type handlers struct {
	tags *database.TagService
}

func nameOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "nombre",
		Description:  "Nombre del tag",
		Required:     required,
		Autocomplete: true,
		MaxLength:    database.MaxTagNameLength,
	}
}

func contentOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "contenido",
		Description: "Texto del tag",
		Required:    true,
		MaxLength:   database.MaxTagContentLength,
	}
}
