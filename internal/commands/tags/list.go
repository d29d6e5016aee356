package tags

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

const tagsPerPage = 15

func (h *handlers) listCommand() *discord.Command {
	return discord.NewCommand(
		"list",
		"Lista los tags del servidor",
		"tags",
		h.list,
	).WithAliases("lista", "ls")
}

func (h *handlers) list(ctx *discord.CommandContext) error {
	all, err := h.tags.List(ctx.GuildID())
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return ctx.Reply("📭 Este servidor todavía no tiene tags.")
	}

	_, err = ctx.Client.Paginators.Start(ctx, listPages(all))
	return err
}

// listPages splits the tags into pages of tagsPerPage names
func listPages(all []*models.Tag) []*discordgo.MessageEmbed {
	var pages []*discordgo.MessageEmbed
	for start := 0; start < len(all); start += tagsPerPage {
		end := start + tagsPerPage
		if end > len(all) {
			end = len(all)
		}

		var b strings.Builder
		for i, t := range all[start:end] {
			fmt.Fprintf(&b, "`%d.` %s · %d usos\n", start+i+1, t.Name, t.Uses)
		}
		pages = append(pages, &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("🏷️ Tags del servidor (%d)", len(all)),
			Description: b.String(),
			Color:       tagColor,
		})
	}
	return pages
}
