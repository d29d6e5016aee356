package users

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/discord/discordtest"
	"github.com/PancyStudios/HelperBot/pkg/models"
)

func newClient(t *testing.T) (*discord.ExtendedClient, *discordtest.Recorder, *database.UserService) {
	t.Helper()
	svc := database.NewUserService(database.NewMemoryUserStore())
	client, rec, err := discordtest.NewClient(discord.Options{Prefix: "!"}, Command(svc))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, rec, svc
}

func member(id string) models.Member {
	return models.Member{UserID: id, Username: "user-" + id, JoinedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func TestInfoSelf(t *testing.T) {
	client, rec, svc := newClient(t)
	if _, err := svc.EnsureMember("g1", member("u1")); err != nil {
		t.Fatalf("EnsureMember: %v", err)
	}
	for i := 0; i < 3; i++ {
		_ = svc.RecordCommand("g1", member("u1"))
	}

	client.Dispatcher.HandleInteraction(client.Session, discordtest.Slash("user info", "u1", "g1"))

	got := rec.LastText()
	if !strings.Contains(got, "user-u1") || !strings.Contains(got, "Comandos usados\n3") {
		t.Errorf("reply = %q", got)
	}
}

func TestInfoOther(t *testing.T) {
	client, rec, svc := newClient(t)
	const other = "200000000000000002"
	if _, err := svc.EnsureMember("g1", member(other)); err != nil {
		t.Fatalf("EnsureMember: %v", err)
	}

	client.Dispatcher.HandleMessage(client.Session, discordtest.Text("!user info <@"+other+">", "u1", "g1"))

	got := rec.LastText()
	if !strings.Contains(got, "user-"+other) || !strings.Contains(got, "Nunca") {
		t.Errorf("reply = %q", got)
	}
}

func TestInfoWithoutRow(t *testing.T) {
	client, rec, _ := newClient(t)

	client.Dispatcher.HandleMessage(client.Session, discordtest.Text("!usuario info", "u9", "g1"))

	if got := rec.LastText(); !strings.Contains(got, "no tiene registro") {
		t.Errorf("reply = %q", got)
	}
}

func TestTop(t *testing.T) {
	client, rec, svc := newClient(t)

	client.Dispatcher.HandleMessage(client.Session, discordtest.Text("!user top", "u1", "g1"))
	if got := rec.LastText(); !strings.Contains(got, "Nadie ha usado") {
		t.Errorf("empty top = %q", got)
	}

	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("u%02d", i)
		if _, err := svc.EnsureMember("g1", member(id)); err != nil {
			t.Fatalf("EnsureMember: %v", err)
		}
		for n := 0; n < i; n++ {
			_ = svc.RecordCommand("g1", member(id))
		}
	}

	client.Dispatcher.HandleInteraction(client.Session, discordtest.Slash("user top", "u01", "g1"))

	got := rec.LastText()
	if !strings.Contains(got, "`#1` <@u12> · 12 comandos") {
		t.Errorf("first page = %q", got)
	}
	if strings.Contains(got, "#11") {
		t.Error("first page should hold 10 members")
	}
	if client.Paginators.Active() != 1 {
		t.Errorf("active paginators = %d, want 1", client.Paginators.Active())
	}
}
