package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/google/uuid"
)

// Tag limits
const (
	MaxTagNameLength    = 32
	MaxTagContentLength = 2000
)

var (
	ErrTagExists         = errors.New("ya existe un tag con ese nombre")
	ErrTagNotFound       = errors.New("tag no encontrado")
	ErrTagNotOwner       = errors.New("no eres el dueño de este tag")
	ErrInvalidTagName    = fmt.Errorf("el nombre debe tener entre 1 y %d caracteres [a-z0-9_-]", MaxTagNameLength)
	ErrReservedTagName   = errors.New("ese nombre está reservado")
	ErrInvalidTagContent = fmt.Errorf("el contenido debe tener entre 1 y %d caracteres", MaxTagContentLength)
)

var tagNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// TagStore persists tags. Lookups and field updates return (nil, nil) when the tag does not exist.
type TagStore interface {
	Insert(t *models.Tag) error
	FindByName(guildID, name string) (*models.Tag, error)
	SetContent(guildID, name, content string, at time.Time) (*models.Tag, error)
	SetOwner(guildID, name, ownerID string, at time.Time) (*models.Tag, error)
	IncrementUses(guildID, name string) (*models.Tag, error)
	Delete(guildID, name string) error
	List(guildID string) ([]*models.Tag, error)
	Search(guildID, prefix string, limit int) ([]*models.Tag, error)
}

// TagActor identifies who is changing a tag. CanManage is true for members with Manage Messages.
type TagActor struct {
	UserID    string
	CanManage bool
}

// TagService implements tag rules on top of a TagStore
type TagService struct {
	store    TagStore
	reserved map[string]struct{}
	now      func() time.Time
}

// NewTagService creates a TagService. reserved names cannot be used as tag names.
func NewTagService(store TagStore, reserved ...string) *TagService {
	s := &TagService{
		store:    store,
		reserved: make(map[string]struct{}, len(reserved)),
		now:      time.Now,
	}
	for _, r := range reserved {
		s.reserved[strings.ToLower(r)] = struct{}{}
	}
	return s
}

// Reserve adds names that tags may not use
func (s *TagService) Reserve(names ...string) {
	for _, n := range names {
		s.reserved[strings.ToLower(n)] = struct{}{}
	}
}

// NormalizeName lower-cases and validates a tag name
func (s *TagService) NormalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || len(name) > MaxTagNameLength || !tagNamePattern.MatchString(name) {
		return "", ErrInvalidTagName
	}
	if _, ok := s.reserved[name]; ok {
		return "", ErrReservedTagName
	}
	return name, nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxTagContentLength {
		return "", ErrInvalidTagContent
	}
	return content, nil
}

// Create stores a new tag owned by ownerID
func (s *TagService) Create(guildID, ownerID, name, content string) (*models.Tag, error) {
	name, err := s.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	content, err = validateContent(content)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindByName(guildID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTagExists
	}

	now := s.now()
	tag := &models.Tag{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		Name:      name,
		Content:   content,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(tag); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrTagExists
		}
		return nil, err
	}
	return tag, nil
}

// Get returns a tag and counts the use
func (s *TagService) Get(guildID, name string) (*models.Tag, error) {
	tag, err := s.store.IncrementUses(guildID, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, ErrTagNotFound
	}
	return tag, nil
}

// Peek returns a tag without counting a use
func (s *TagService) Peek(guildID, name string) (*models.Tag, error) {
	tag, err := s.store.FindByName(guildID, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, ErrTagNotFound
	}
	return tag, nil
}

// editable loads a tag and checks that actor may change it
func (s *TagService) editable(guildID, name string, actor TagActor) (*models.Tag, error) {
	tag, err := s.Peek(guildID, name)
	if err != nil {
		return nil, err
	}
	if tag.OwnerID != actor.UserID && !actor.CanManage {
		return nil, ErrTagNotOwner
	}
	return tag, nil
}

// Edit replaces the content of a tag
func (s *TagService) Edit(guildID, name, content string, actor TagActor) (*models.Tag, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	tag, err := s.editable(guildID, name, actor)
	if err != nil {
		return nil, err
	}
	return found(s.store.SetContent(guildID, tag.Name, content, s.now()))
}

// Delete removes a tag
func (s *TagService) Delete(guildID, name string, actor TagActor) error {
	tag, err := s.editable(guildID, name, actor)
	if err != nil {
		return err
	}
	return s.store.Delete(guildID, tag.Name)
}

// Transfer hands a tag over to another member
func (s *TagService) Transfer(guildID, name, newOwnerID string, actor TagActor) (*models.Tag, error) {
	tag, err := s.editable(guildID, name, actor)
	if err != nil {
		return nil, err
	}
	return found(s.store.SetOwner(guildID, tag.Name, newOwnerID, s.now()))
}

// found maps a store miss to ErrTagNotFound
func found(tag *models.Tag, err error) (*models.Tag, error) {
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, ErrTagNotFound
	}
	return tag, nil
}

// List returns every tag of a guild sorted by name
func (s *TagService) List(guildID string) ([]*models.Tag, error) {
	return s.store.List(guildID)
}

// Search returns up to limit tags whose name starts with prefix
func (s *TagService) Search(guildID, prefix string, limit int) ([]*models.Tag, error) {
	if limit <= 0 || limit > 25 {
		limit = 25
	}
	return s.store.Search(guildID, strings.ToLower(strings.TrimSpace(prefix)), limit)
}
