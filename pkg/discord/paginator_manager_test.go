package discord

import (
	"testing"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/discord/resttest"
	"github.com/bwmarrin/discordgo"
)

func newTestManager(mode PaginatorMode, rest *resttest.Recorder, now *time.Time) *PaginatorManager {
	pm := NewPaginatorManager(mode, time.Minute, nil)
	pm.restFor = func(*discordgo.Session) RestSession { return rest }
	pm.now = func() time.Time { return *now }
	return pm
}

func slashContext(s *discordgo.Session, rest *resttest.Recorder, userID string) *CommandContext {
	return &CommandContext{Session: s, Interaction: slashInteraction("help", userID, "g1"), rest: rest}
}

func buttonPress(customID, userID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "press",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: userID}},
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func TestStartSinglePageNotRegistered(t *testing.T) {
	now := time.Now()
	rest := resttest.NewRecorder()
	pm := newTestManager(ModeButtons, rest, &now)

	if _, err := pm.Start(slashContext(newTestSession(), rest, "u1"), testPages(1)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if pm.Active() != 0 {
		t.Errorf("Active() = %v, want 0 for a single page", pm.Active())
	}
	if len(rest.Responds) != 1 || len(rest.Responds[0].Data.Components) != 0 {
		t.Error("a single page should be sent without controls")
	}
}

func TestButtonFlow(t *testing.T) {
	now := time.Now()
	rest := resttest.NewRecorder()
	pm := newTestManager(ModeButtons, rest, &now)
	s := newTestSession()

	p, err := pm.Start(slashContext(s, rest, "u1"), testPages(3))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if pm.Active() != 1 {
		t.Fatalf("Active() = %v, want 1", pm.Active())
	}
	if p.MessageID == "" {
		t.Error("Start() should remember the sent message")
	}

	if !pm.HandleInteraction(s, buttonPress("pg:"+p.ID+":next", "u1")) {
		t.Fatal("HandleInteraction() should handle its own buttons")
	}
	last := rest.Responds[len(rest.Responds)-1]
	if last.Type != discordgo.InteractionResponseUpdateMessage {
		t.Errorf("response type = %v, want UpdateMessage", last.Type)
	}
	if got := last.Data.Embeds[0].Footer.Text; got != "Página 2/3" {
		t.Errorf("footer = %q, want %q", got, "Página 2/3")
	}

	pm.HandleInteraction(s, buttonPress("pg:"+p.ID+":next", "u2"))
	denied := rest.Responds[len(rest.Responds)-1]
	if denied.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Error("non-owners should get an ephemeral denial")
	}
	if p.Index() != 1 {
		t.Errorf("Index() = %v, non-owner must not move the paginator", p.Index())
	}

	pm.HandleInteraction(s, buttonPress("pg:"+p.ID+":stop", "u1"))
	stopped := rest.Responds[len(rest.Responds)-1]
	if stopped.Data.Components == nil || len(stopped.Data.Components) != 0 {
		t.Error("stopping should send an empty component list to remove the buttons")
	}
	if pm.Active() != 0 {
		t.Errorf("Active() = %v, want 0 after stop", pm.Active())
	}
}

func TestHandleInteractionIgnoresForeignComponents(t *testing.T) {
	now := time.Now()
	rest := resttest.NewRecorder()
	pm := newTestManager(ModeButtons, rest, &now)

	if pm.HandleInteraction(newTestSession(), buttonPress("ticket:open", "u1")) {
		t.Error("components of other features must not be handled")
	}
	if !pm.HandleInteraction(newTestSession(), buttonPress("pg:gone:next", "u1")) {
		t.Error("unknown paginators are still answered")
	}
	if rest.LastText() == "" {
		t.Error("an expired paginator should be reported to the user")
	}
}

func TestSweepRemovesControls(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rest := resttest.NewRecorder()
	pm := newTestManager(ModeButtons, rest, &now)

	if _, err := pm.Start(slashContext(newTestSession(), rest, "u1"), testPages(2)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if n := pm.Sweep(now.Add(30 * time.Second)); n != 0 {
		t.Errorf("Sweep() before the deadline expired %v", n)
	}
	if n := pm.Sweep(now.Add(2 * time.Minute)); n != 1 {
		t.Fatalf("Sweep() expired %v, want 1", n)
	}
	if pm.Active() != 0 {
		t.Errorf("Active() = %v, want 0", pm.Active())
	}
	if len(rest.WebhookEdits) != 1 || rest.WebhookEdits[0].Components == nil || len(*rest.WebhookEdits[0].Components) != 0 {
		t.Error("expired interaction paginators should have their buttons removed through the interaction")
	}
}

func TestReactionFlow(t *testing.T) {
	now := time.Now()
	rest := resttest.NewRecorder()
	pm := newTestManager(ModeReactions, rest, &now)
	s := newTestSession()

	ctx := &CommandContext{Session: s, Message: textMessage("!help", "u1", "g1"), rest: rest}
	p, err := pm.Start(ctx, testPages(3))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(rest.ReactionsAdded) != len(pageControls) {
		t.Errorf("reactions added = %v, want %d", rest.ReactionsAdded, len(pageControls))
	}
	if len(rest.Sent[0].Components) != 0 {
		t.Error("reaction mode should not send buttons")
	}

	react := func(userID, emoji string) bool {
		return pm.HandleReaction(s, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
			UserID:    userID,
			MessageID: p.MessageID,
			ChannelID: p.ChannelID,
			Emoji:     discordgo.Emoji{Name: emoji},
		}})
	}

	if react("bot", "▶") {
		t.Error("the bot's own reactions must be ignored")
	}
	if !react("u1", "▶") {
		t.Fatal("owner reaction should be handled")
	}
	if p.Index() != 1 {
		t.Errorf("Index() = %v, want 1", p.Index())
	}
	if len(rest.ReactionsRemoved) != 1 {
		t.Error("the user's reaction should be removed after handling")
	}
	if len(rest.ChannelEdits) != 1 {
		t.Error("the message should be edited with the new page")
	}

	react("u1", "⏹")
	if rest.RemovedAll != 1 {
		t.Error("stopping should clear all reactions")
	}
	if pm.Active() != 0 {
		t.Errorf("Active() = %v, want 0", pm.Active())
	}
}

func TestLatePressRemovesButtons(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rest := resttest.NewRecorder()
	pm := newTestManager(ModeButtons, rest, &now)
	s := newTestSession()

	p, err := pm.Start(slashContext(s, rest, "u1"), testPages(3))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// the deadline passes before the sweep runs
	now = now.Add(2 * time.Minute)
	if !pm.HandleInteraction(s, buttonPress("pg:"+p.ID+":next", "u1")) {
		t.Fatal("HandleInteraction() should answer its own buttons")
	}
	if pm.Active() != 0 {
		t.Errorf("Active() = %v, want 0 after expiry", pm.Active())
	}

	last := rest.Responds[len(rest.Responds)-1]
	if last.Type != discordgo.InteractionResponseUpdateMessage {
		t.Fatalf("response type = %v, want UpdateMessage so the buttons go away", last.Type)
	}
	if last.Data.Components == nil || len(last.Data.Components) != 0 {
		t.Error("the update should carry an empty component list")
	}
	if len(last.Data.Embeds) != 1 || last.Data.Embeds[0].Footer.Text != "Página 1/3" {
		t.Error("the current page should stay on screen")
	}
	if p.Index() != 0 {
		t.Errorf("Index() = %v, an expired paginator must not move", p.Index())
	}

	if n := pm.Sweep(now); n != 0 {
		t.Errorf("Sweep() expired %v, the paginator was already closed", n)
	}

	pm.HandleInteraction(s, buttonPress("pg:"+p.ID+":next", "u1"))
	again := rest.Responds[len(rest.Responds)-1]
	if again.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Error("later presses should get the ephemeral expiry notice")
	}
}

func TestLateReactionClearsReactions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rest := resttest.NewRecorder()
	pm := newTestManager(ModeReactions, rest, &now)
	s := newTestSession()

	ctx := &CommandContext{Session: s, Message: textMessage("!help", "u1", "g1"), rest: rest}
	p, err := pm.Start(ctx, testPages(3))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	handled := pm.HandleReaction(s, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID:    "u1",
		MessageID: p.MessageID,
		ChannelID: p.ChannelID,
		Emoji:     discordgo.Emoji{Name: "▶"},
	}})
	if !handled {
		t.Fatal("reaction on a registered paginator should be handled")
	}
	if rest.RemovedAll != 1 {
		t.Errorf("RemovedAll = %v, want the reactions cleared on expiry", rest.RemovedAll)
	}
	if pm.Active() != 0 {
		t.Errorf("Active() = %v, want 0", pm.Active())
	}
	if len(rest.ChannelEdits) != 0 {
		t.Error("an expired paginator must not change page")
	}
}
