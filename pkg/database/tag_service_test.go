package database

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func newTestTagService() *TagService {
	return NewTagService(NewMemoryTagStore(), "create", "list")
}

func TestNormalizeName(t *testing.T) {
	s := newTestTagService()

	tests := []struct {
		in   string
		want string
		err  error
	}{
		{"  Reglas ", "reglas", nil},
		{"faq_2-b", "faq_2-b", nil},
		{"", "", ErrInvalidTagName},
		{"con espacio", "", ErrInvalidTagName},
		{"ñandú", "", ErrInvalidTagName},
		{strings.Repeat("a", 33), "", ErrInvalidTagName},
		{"LIST", "", ErrReservedTagName},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := s.NormalizeName(tt.in)
			if !errors.Is(err, tt.err) {
				t.Fatalf("NormalizeName(%q) error = %v, want %v", tt.in, err, tt.err)
			}
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestTagService()

	tag, err := s.Create("g1", "owner", "Reglas", "No spam")
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}
	if tag.ID == "" || tag.Name != "reglas" {
		t.Errorf("Create = %+v", tag)
	}

	if _, err := s.Create("g1", "other", "reglas", "otra"); !errors.Is(err, ErrTagExists) {
		t.Errorf("duplicate Create error = %v, want ErrTagExists", err)
	}
	if _, err := s.Create("g2", "other", "reglas", "otra"); err != nil {
		t.Errorf("same name in another guild should be allowed, got %v", err)
	}
	if _, err := s.Create("g1", "owner", "vacio", "   "); !errors.Is(err, ErrInvalidTagContent) {
		t.Errorf("empty content error = %v", err)
	}
	if _, err := s.Create("g1", "owner", "largo", strings.Repeat("x", MaxTagContentLength+1)); !errors.Is(err, ErrInvalidTagContent) {
		t.Errorf("long content error = %v", err)
	}

	got, err := s.Get("g1", "REGLAS")
	if err != nil {
		t.Fatal(err)
	}
	if got.Uses != 1 {
		t.Errorf("Uses = %d, want 1", got.Uses)
	}

	peek, _ := s.Peek("g1", "reglas")
	if peek.Uses != 1 {
		t.Errorf("Peek must not count a use, Uses = %d", peek.Uses)
	}

	if _, err := s.Get("g1", "nada"); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("missing Get error = %v", err)
	}
}

func TestOwnershipRules(t *testing.T) {
	s := newTestTagService()
	s.Create("g1", "owner", "faq", "contenido")

	stranger := TagActor{UserID: "stranger"}
	moderator := TagActor{UserID: "mod", CanManage: true}
	owner := TagActor{UserID: "owner"}

	if _, err := s.Edit("g1", "faq", "nuevo", stranger); !errors.Is(err, ErrTagNotOwner) {
		t.Errorf("stranger Edit error = %v", err)
	}
	if err := s.Delete("g1", "faq", stranger); !errors.Is(err, ErrTagNotOwner) {
		t.Errorf("stranger Delete error = %v", err)
	}

	edited, err := s.Edit("g1", "faq", "nuevo", owner)
	if err != nil || edited.Content != "nuevo" {
		t.Fatalf("owner Edit = %+v, %v", edited, err)
	}

	moved, err := s.Transfer("g1", "faq", "stranger", moderator)
	if err != nil || moved.OwnerID != "stranger" {
		t.Fatalf("moderator Transfer = %+v, %v", moved, err)
	}

	if err := s.Delete("g1", "faq", owner); !errors.Is(err, ErrTagNotOwner) {
		t.Errorf("previous owner Delete error = %v", err)
	}
	if err := s.Delete("g1", "faq", stranger); err != nil {
		t.Errorf("new owner Delete error = %v", err)
	}
	if _, err := s.Peek("g1", "faq"); !errors.Is(err, ErrTagNotFound) {
		t.Error("tag should be deleted")
	}
}

func TestListAndSearch(t *testing.T) {
	s := newTestTagService()
	for _, n := range []string{"beta", "alpha", "alpine"} {
		s.Create("g1", "o", n, "x")
	}

	all, _ := s.List("g1")
	if len(all) != 3 || all[0].Name != "alpha" {
		t.Errorf("List = %v", all)
	}

	found, _ := s.Search("g1", "ALP", 0)
	if len(found) != 2 {
		t.Errorf("Search(alp) = %d results, want 2", len(found))
	}
}

func TestConcurrentEditKeepsUses(t *testing.T) {
	s := newTestTagService()
	if _, err := s.Create("g1", "owner", "reglas", "v0"); err != nil {
		t.Fatal(err)
	}
	owner := TagActor{UserID: "owner"}

	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			if _, err := s.Get("g1", "reglas"); err != nil {
				t.Error(err)
			}
		}()
		go func(i int) {
			defer wg.Done()
			if _, err := s.Edit("g1", "reglas", fmt.Sprintf("v%d", i+1), owner); err != nil {
				t.Error(err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := s.Transfer("g1", "reglas", "owner", owner); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	tag, err := s.Peek("g1", "reglas")
	if err != nil {
		t.Fatal(err)
	}
	if tag.Uses != rounds {
		t.Errorf("Uses = %d, want %d", tag.Uses, rounds)
	}
}

func TestEditMissingTag(t *testing.T) {
	s := newTestTagService()
	if _, err := s.Edit("g1", "nada", "x", TagActor{UserID: "u", CanManage: true}); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("Edit error = %v, want ErrTagNotFound", err)
	}
	if _, err := s.Transfer("g1", "nada", "u2", TagActor{UserID: "u", CanManage: true}); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("Transfer error = %v, want ErrTagNotFound", err)
	}
}
