package discord

import (
	"github.com/bwmarrin/discordgo"
)

func newTestSession() *discordgo.Session {
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.User = &discordgo.User{ID: "bot", Username: "HelperBot", Bot: true}
	return s
}

func slashInteraction(name string, userID, guildID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	i := &discordgo.Interaction{
		ID:        "i1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: "c1",
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: opts,
		},
	}
	if guildID != "" {
		i.Member = &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user-" + userID}}
	} else {
		i.User = &discordgo.User{ID: userID, Username: "user-" + userID}
	}
	return &discordgo.InteractionCreate{Interaction: i}
}

func textMessage(content, userID, guildID string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg1",
		ChannelID: "c1",
		GuildID:   guildID,
		Content:   content,
		Author:    &discordgo.User{ID: userID, Username: "user-" + userID},
	}}
}

func noop(ctx *CommandContext) error { return nil }
