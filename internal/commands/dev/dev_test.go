package dev

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/discord/discordtest"
	"github.com/PancyStudios/HelperBot/pkg/models"
)

const devID = "900000000000000009"

type fixture struct {
	client    *discord.ExtendedClient
	rec       *discordtest.Recorder
	users     *database.UserService
	blacklist *database.BlacklistService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     database.NewUserService(database.NewMemoryUserStore()),
		blacklist: database.NewBlacklistService(database.NewMemoryBlacklistStore()),
	}
	opts := discord.Options{
		Prefix:      "!",
		IsDeveloper: func(id string) bool { return id == devID },
	}
	client, rec, err := discordtest.NewClient(opts, Command(Deps{Users: f.users, Blacklist: f.blacklist}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	f.client, f.rec = client, rec
	return f
}

func (f *fixture) text(content, userID string) string {
	f.client.Dispatcher.HandleMessage(f.client.Session, discordtest.Text(content, userID, "g1"))
	return f.rec.LastText()
}

func TestDevOnly(t *testing.T) {
	f := newFixture(t)

	if got := f.text("!dev eval 1 + 2", "u1"); !strings.Contains(got, "solo para desarrolladores") {
		t.Errorf("reply = %q", got)
	}
	if f.rec.Typing != 0 {
		t.Error("denied eval should not start evaluating")
	}
}

func TestEval(t *testing.T) {
	f := newFixture(t)

	if got := f.text("!dev eval 1 + 2", devID); !strings.Contains(got, "Resultado") || !strings.Contains(got, "3") {
		t.Errorf("reply = %q", got)
	}
	if got := f.text("!dev eval noExiste", devID); !strings.Contains(got, "Error de Ejecución") {
		t.Errorf("reply = %q", got)
	}
}

func TestEvalSlashDefers(t *testing.T) {
	f := newFixture(t)

	f.client.Dispatcher.HandleInteraction(f.client.Session,
		discordtest.Slash("dev eval", devID, "g1", discordtest.Option("codigo", "```go\n\"hola\"\n```")))

	if len(f.rec.Responds) != 1 || len(f.rec.WebhookEdits) != 1 {
		t.Fatalf("responds = %d, edits = %d; want a deferred response and one edit", len(f.rec.Responds), len(f.rec.WebhookEdits))
	}
	if got := *f.rec.WebhookEdits[0].Content; !strings.Contains(got, `"hola"`) {
		t.Errorf("edit = %q", got)
	}
}

func TestCleanCode(t *testing.T) {
	tests := map[string]string{
		"1 + 2":                 "1 + 2",
		"```go\nx := 1\nx\n```": "x := 1\nx",
		"```\nBot\n```":         "Bot",
	}
	for in, want := range tests {
		if got := cleanCode(in); got != want {
			t.Errorf("cleanCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatResult(t *testing.T) {
	if got := formatResult(reflect.Value{}); got != "nil" {
		t.Errorf("invalid value = %q, want nil", got)
	}
	long := formatResult(reflect.ValueOf(strings.Repeat("a", 3000)))
	if !strings.HasSuffix(long, "... (truncado)") || len(long) > maxEvalOutput+len("... (truncado)") {
		t.Errorf("long output not truncated: %d bytes", len(long))
	}

	accents := formatResult(reflect.ValueOf(strings.Repeat("ñ", 1500)))
	if !utf8.ValidString(accents) {
		t.Error("truncated output splits a multibyte character")
	}
	if !strings.HasSuffix(accents, "ñ... (truncado)") {
		t.Errorf("truncated output should end on a whole rune, got suffix %q", accents[len(accents)-20:])
	}
}

func TestSyncUsers(t *testing.T) {
	f := newFixture(t)
	discordtest.AddGuild(f.client.Session, "g1",
		discordtest.Member("u1", false),
		discordtest.Member("u2", false),
		discordtest.Member("b1", true),
	)
	if _, err := f.users.EnsureMember("g1", models.Member{UserID: "gone", Username: "gone"}); err != nil {
		t.Fatalf("EnsureMember: %v", err)
	}

	got := f.text("!dev syncusers", devID)

	for _, want := range []string{"Añadidos\n2", "Eliminados\n1"} {
		if !strings.Contains(got, want) {
			t.Errorf("reply = %q, want %q", got, want)
		}
	}
	if row, _ := f.users.Get("g1", "gone"); row != nil {
		t.Error("row of a former member was kept")
	}
	if row, _ := f.users.Get("g1", "b1"); row != nil {
		t.Error("bots must not get rows")
	}
}

func TestBlacklistAddRemove(t *testing.T) {
	f := newFixture(t)
	const target = "123456789012345678"

	if got := f.text("!dev blacklist add user "+target+" spam masivo", devID); !strings.Contains(got, "Añadido a la Blacklist") {
		t.Fatalf("add = %q", got)
	}
	listed, entry := f.blacklist.IsUserBlacklisted(target)
	if !listed || entry.Reason != "spam masivo" || entry.CreatedBy != devID {
		t.Fatalf("entry = %+v", entry)
	}

	if got := f.text("!dev bl add user "+target, devID); !strings.Contains(got, "ya está en la blacklist") {
		t.Errorf("duplicate = %q", got)
	}

	if got := f.text("!dev blacklist remove "+target, devID); !strings.Contains(got, "Eliminado de la Blacklist") {
		t.Errorf("remove = %q", got)
	}
	if f.blacklist.Size() != 0 {
		t.Errorf("size = %d, want 0", f.blacklist.Size())
	}
	if got := f.text("!dev blacklist remove "+target, devID); !strings.Contains(got, "no está en la blacklist") {
		t.Errorf("second remove = %q", got)
	}
}

func TestBlacklistAddRejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"id inválido", "!dev blacklist add user abc", "no es un ID válido"},
		{"desarrollador", "!dev blacklist add user " + devID, "desarrollador"},
		{"tipo inválido", "!dev blacklist add canal 123456789012345678", "Valor inválido para `tipo`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.text(tt.input, devID); !strings.Contains(got, tt.want) {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
	if f.blacklist.Size() != 0 {
		t.Errorf("size = %d, want 0", f.blacklist.Size())
	}
}

func TestBlacklistGuildLeaves(t *testing.T) {
	f := newFixture(t)
	const guild = "555555555555555555"
	discordtest.AddGuild(f.client.Session, guild)

	f.text("!dev blacklist add guild "+guild+" raids", devID)

	if len(f.rec.Left) != 1 || f.rec.Left[0] != guild {
		t.Errorf("left = %v, want [%s]", f.rec.Left, guild)
	}

	f.text("!dev blacklist add guild 666666666666666666", devID)
	if len(f.rec.Left) != 1 {
		t.Error("the bot should only leave guilds it is in")
	}
}

func TestBlacklistList(t *testing.T) {
	f := newFixture(t)

	if got := f.text("!dev blacklist list", devID); !strings.Contains(got, "vacía") {
		t.Errorf("empty list = %q", got)
	}

	if _, err := f.blacklist.Add("111111111111111111", models.BlacklistTypeUser, "spam", devID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := f.blacklist.Add("222222222222222222", models.BlacklistTypeGuild, "raids", devID); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got := f.text("!dev blacklist list guild", devID)
	if !strings.Contains(got, "(1)") || !strings.Contains(got, "222222222222222222") || strings.Contains(got, "111111111111111111") {
		t.Errorf("filtered list = %q", got)
	}
}
