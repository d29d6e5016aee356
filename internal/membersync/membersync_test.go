package membersync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/discord/discordtest"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

type pagedFetcher struct {
	members []*discordgo.Member
	calls   []string
	err     error
}

func (f *pagedFetcher) GuildMembers(guildID, after string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	f.calls = append(f.calls, after)
	if f.err != nil {
		return nil, f.err
	}
	start := 0
	if after != "" {
		for i, m := range f.members {
			if m.User.ID == after {
				start = i + 1
			}
		}
	}
	end := start + limit
	if end > len(f.members) {
		end = len(f.members)
	}
	return f.members[start:end], nil
}

type recordingSyncer struct {
	guild   string
	members []models.Member
}

func (r *recordingSyncer) SyncGuild(guildID string, members []models.Member) (database.SyncResult, error) {
	r.guild, r.members = guildID, members
	return database.SyncResult{Added: len(members)}, nil
}

func TestMembersFromState(t *testing.T) {
	s := discordtest.NewSession()
	discordtest.AddGuild(s, "g1", discordtest.Member("u1", false), discordtest.Member("b1", true))

	fetcher := &pagedFetcher{}
	members, err := Members(s.State, fetcher, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || len(fetcher.calls) != 0 {
		t.Errorf("expected state members without REST, got %d members and %d calls", len(members), len(fetcher.calls))
	}
	if !members[1].Bot {
		t.Error("bot flag lost in conversion")
	}
}

func TestMembersPagesOverREST(t *testing.T) {
	fetcher := &pagedFetcher{}
	for i := 0; i < pageSize+5; i++ {
		fetcher.members = append(fetcher.members, discordtest.Member(fmt.Sprintf("u%d", i), false))
	}

	members, err := Members(nil, fetcher, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != pageSize+5 {
		t.Errorf("got %d members", len(members))
	}
	if len(fetcher.calls) != 2 || fetcher.calls[1] != fmt.Sprintf("u%d", pageSize-1) {
		t.Errorf("unexpected paging %v", fetcher.calls[:2])
	}
}

func TestMembersErrors(t *testing.T) {
	if _, err := Members(nil, nil, "g1"); err == nil {
		t.Error("expected error without state or REST")
	}

	boom := errors.New("boom")
	if _, err := Members(nil, &pagedFetcher{err: boom}, "g1"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped REST error, got %v", err)
	}
}

func TestGuild(t *testing.T) {
	s := discordtest.NewSession()
	discordtest.AddGuild(s, "g1", discordtest.Member("u1", false))

	syncer := &recordingSyncer{}
	res, err := Guild(syncer, s.State, nil, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if syncer.guild != "g1" || res.Added != 1 {
		t.Errorf("unexpected sync %q %+v", syncer.guild, res)
	}
}
