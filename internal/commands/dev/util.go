package dev

import (
	"regexp"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

var snowflake = regexp.MustCompile(`^\d{15,21}$`)

func getUserName(ctx *discord.CommandContext) string {
	if u := ctx.User(); u != nil {
		return u.Username
	}
	return "Unknown"
}

// sendErrorEmbed envía un embed de error
func sendErrorEmbed(ctx *discord.CommandContext, title, description string) error {
	return ctx.ReplyEphemeralEmbed(&discordgo.MessageEmbed{
		Title:       "❌ " + title,
		Description: description,
		Color:       0xFF0000,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}
