package database

import (
	"errors"
	"regexp"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TagsCollection is the collection holding tags
const TagsCollection = "tags"

// MongoTagStore is the TagStore backed by the tags collection
type MongoTagStore struct {
	dm *DataManager[models.Tag]
}

// NewMongoTagStore creates the store and its (guildId, name) unique index
func NewMongoTagStore(db *Database) *MongoTagStore {
	ensureIndex(db, TagsCollection, bson.D{{Key: "guildId", Value: 1}, {Key: "name", Value: 1}}, true)
	return &MongoTagStore{dm: NewDataManager[models.Tag](TagsCollection, db)}
}

func tagQuery(guildID, name string) bson.M {
	return bson.M{"guildId": guildID, "name": name}
}

// Insert implements TagStore
func (s *MongoTagStore) Insert(t *models.Tag) error {
	err := s.dm.Insert(t)
	if errors.Is(err, ErrDuplicate) {
		return ErrTagExists
	}
	return err
}

// FindByName implements TagStore
func (s *MongoTagStore) FindByName(guildID, name string) (*models.Tag, error) {
	return s.dm.Get(tagQuery(guildID, name))
}

// SetContent implements TagStore
func (s *MongoTagStore) SetContent(guildID, name, content string, at time.Time) (*models.Tag, error) {
	return s.dm.Update(tagQuery(guildID, name), bson.M{"$set": bson.M{"content": content, "updatedAt": at}})
}

// SetOwner implements TagStore
func (s *MongoTagStore) SetOwner(guildID, name, ownerID string, at time.Time) (*models.Tag, error) {
	return s.dm.Update(tagQuery(guildID, name), bson.M{"$set": bson.M{"ownerId": ownerID, "updatedAt": at}})
}

// IncrementUses implements TagStore
func (s *MongoTagStore) IncrementUses(guildID, name string) (*models.Tag, error) {
	return s.dm.Update(tagQuery(guildID, name), bson.M{"$inc": bson.M{"uses": 1}})
}

// Delete implements TagStore
func (s *MongoTagStore) Delete(guildID, name string) error {
	return s.dm.Delete(tagQuery(guildID, name))
}

// List implements TagStore
func (s *MongoTagStore) List(guildID string) ([]*models.Tag, error) {
	return s.dm.GetAll(bson.M{"guildId": guildID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// Search implements TagStore
func (s *MongoTagStore) Search(guildID, prefix string, limit int) ([]*models.Tag, error) {
	query := bson.M{"guildId": guildID}
	if prefix != "" {
		query["name"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(int64(limit))
	return s.dm.GetAll(query, opts)
}
