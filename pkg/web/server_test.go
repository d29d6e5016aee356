package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/metrics"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

type fakeBot struct {
	ready bool
	user  *discordgo.User
}

func (b fakeBot) IsReady() bool            { return b.ready }
func (b fakeBot) GuildCount() int          { return 4 }
func (b fakeBot) Latency() time.Duration   { return 42 * time.Millisecond }
func (b fakeBot) Uptime() time.Duration    { return time.Hour }
func (b fakeBot) BotUser() *discordgo.User { return b.user }

type fakeDB struct{}

func (fakeDB) GetStatus() (string, bool) { return "Conectada", true }

type fakeTags struct {
	tags []*models.Tag
	err  error
}

func (f fakeTags) List(guildID string) ([]*models.Tag, error) { return f.tags, f.err }

func newTestServer(t *testing.T, opts Options, deps Dependencies) *Server {
	t.Helper()
	s, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	SetupAPIRoutes(s, deps)
	return s
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{}, Dependencies{Version: "1.2.3"})

	rec := do(s, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["version"] != "1.2.3" {
		t.Errorf("version = %v", body["version"])
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, Options{}, Dependencies{Bot: fakeBot{ready: true}, Database: fakeDB{}})

	body := decode(t, do(s, http.MethodGet, "/api/status"))
	db := body["database"].(map[string]interface{})
	if db["isOnline"] != true || db["status"] != "Conectada" {
		t.Errorf("database = %v", db)
	}
	bot := body["bot"].(map[string]interface{})
	if bot["isOnline"] != true || bot["guilds"].(float64) != 4 || bot["latencyMs"].(float64) != 42 {
		t.Errorf("bot = %v", bot)
	}
}

func TestBotInfo(t *testing.T) {
	offline := newTestServer(t, Options{}, Dependencies{Bot: fakeBot{}})
	if rec := do(offline, http.MethodGet, "/api/bot"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("offline bot status = %d", rec.Code)
	}

	online := newTestServer(t, Options{}, Dependencies{
		Bot: fakeBot{ready: true, user: &discordgo.User{ID: "99", Username: "HelperBot"}},
	})
	rec := do(online, http.MethodGet, "/api/bot")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["username"] != "HelperBot" || body["id"] != "99" {
		t.Errorf("body = %v", body)
	}
}

func TestCommandsHidesDeveloperCommands(t *testing.T) {
	noop := func(ctx *discord.CommandContext) error { return nil }
	reg := discord.NewRegistry()
	reg.MustRegister(
		discord.NewGroup("tag", "Tags", "Utilidad",
			discord.NewCommand("show", "Muestra un tag", "Utilidad", noop),
			discord.NewCommand("create", "Crea un tag", "Utilidad", noop),
		).WithAliases("t"),
		discord.NewCommand("dev", "Herramientas", "Dev", noop).AsDev(),
	)

	s := newTestServer(t, Options{}, Dependencies{Commands: reg})
	rec := do(s, http.MethodGet, "/api/commands")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Count    int           `json:"count"`
		Commands []discord.CommandInfo `json:"commands"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Commands[0].Name != "tag" {
		t.Fatalf("commands = %+v", body.Commands)
	}
	if len(body.Commands[0].Subcommands) != 2 || body.Commands[0].Subcommands[0].Path != "tag show" {
		t.Errorf("subcommands = %+v", body.Commands[0].Subcommands)
	}
}

func TestGuildTags(t *testing.T) {
	tags := []*models.Tag{{ID: "a", GuildID: "123456789012345678", Name: "reglas", Content: "Sé amable"}}
	s := newTestServer(t, Options{}, Dependencies{Tags: fakeTags{tags: tags}})

	if rec := do(s, http.MethodGet, "/api/guilds/abc/tags"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d", rec.Code)
	}

	rec := do(s, http.MethodGet, "/api/guilds/123456789012345678/tags")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["count"].(float64) != 1 {
		t.Errorf("body = %v", body)
	}

	failing := newTestServer(t, Options{}, Dependencies{Tags: fakeTags{err: errors.New("db caída")}})
	if rec := do(failing, http.MethodGet, "/api/guilds/123456789012345678/tags"); rec.Code != http.StatusInternalServerError {
		t.Errorf("store error status = %d", rec.Code)
	}

	missing := newTestServer(t, Options{}, Dependencies{})
	if rec := do(missing, http.MethodGet, "/api/guilds/123456789012345678/tags"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no tag source status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.SetGuilds(7)
	s := newTestServer(t, Options{}, Dependencies{Metrics: m})

	rec := do(s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "helperbot_guilds 7") {
		t.Errorf("metrics output missing guild gauge")
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, Options{}, Dependencies{})

	if rec := do(s, http.MethodGet, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("404 status = %d", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/api/health"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("405 status = %d", rec.Code)
	}
}

func TestAllowedHosts(t *testing.T) {
	s := newTestServer(t, Options{AllowedHosts: `^(.+\.)?helperbot\.dev$`}, Dependencies{})

	if rec := do(s, http.MethodGet, "/api/health"); rec.Code != http.StatusForbidden {
		t.Errorf("foreign host status = %d", rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Host = "api.helperbot.dev"
	s.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("allowed host status = %d", rec.Code)
	}

	if _, err := NewServer(Options{AllowedHosts: "("}); err == nil {
		t.Error("expected error for invalid host pattern")
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RequestsPerMinute: 2}, Dependencies{})

	for i := 0; i < 2; i++ {
		if rec := do(s, http.MethodGet, "/api/health"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if rec := do(s, http.MethodGet, "/api/health"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d", rec.Code)
	}
}

func TestIPLimiterForgetsIdleClients(t *testing.T) {
	l := newIPLimiter(rate.Every(time.Second), 1)
	now := time.Now()

	if !l.allow("1.1.1.1", now) {
		t.Fatal("first request should pass")
	}
	if l.allow("1.1.1.1", now) {
		t.Fatal("second request in the same instant should be limited")
	}
	l.allow("2.2.2.2", now)

	later := now.Add(l.idle + time.Minute)
	l.allow("3.3.3.3", later)
	if got := l.size(); got != 1 {
		t.Errorf("expected only the fresh visitor, got %d", got)
	}
}
