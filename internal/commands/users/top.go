package users

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

const (
	leaderboardSize = 50
	usersPerPage    = 10
)

func (h *handlers) topCommand() *discord.Command {
	return discord.NewCommand(
		"top",
		"Miembros que más comandos han usado",
		"users",
		h.top,
	).WithAliases("ranking")
}

func (h *handlers) top(ctx *discord.CommandContext) error {
	rows, err := h.users.Leaderboard(ctx.GuildID(), leaderboardSize)
	if err != nil {
		return err
	}

	var active []*models.GuildUser
	for _, r := range rows {
		if r.CommandsUsed > 0 {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return ctx.Reply("📭 Nadie ha usado comandos todavía.")
	}

	_, err = ctx.Client.Paginators.Start(ctx, leaderboardPages(active))
	return err
}

func leaderboardPages(rows []*models.GuildUser) []*discordgo.MessageEmbed {
	var pages []*discordgo.MessageEmbed
	for start := 0; start < len(rows); start += usersPerPage {
		end := start + usersPerPage
		if end > len(rows) {
			end = len(rows)
		}

		var b strings.Builder
		for i, r := range rows[start:end] {
			fmt.Fprintf(&b, "`#%d` <@%s> · %d comandos\n", start+i+1, r.UserID, r.CommandsUsed)
		}
		pages = append(pages, &discordgo.MessageEmbed{
			Title:       "🏆 Ranking de comandos",
			Description: b.String(),
			Color:       userColor,
		})
	}
	return pages
}
