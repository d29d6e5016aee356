package database

import (
	"time"

	"github.com/PancyStudios/HelperBot/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection is the collection holding guild user rows
const UsersCollection = "users"

// MongoUserStore is the UserStore backed by the users collection
type MongoUserStore struct {
	dm *DataManager[models.GuildUser]
}

// NewMongoUserStore creates the store and its (guildId, userId) unique index
func NewMongoUserStore(db *Database) *MongoUserStore {
	ensureIndex(db, UsersCollection, bson.D{{Key: "guildId", Value: 1}, {Key: "userId", Value: 1}}, true)
	return &MongoUserStore{dm: NewDataManager[models.GuildUser](UsersCollection, db)}
}

func userQuery(guildID, userID string) bson.M {
	return bson.M{"guildId": guildID, "userId": userID}
}

// Get implements UserStore
func (s *MongoUserStore) Get(guildID, userID string) (*models.GuildUser, error) {
	return s.dm.Get(userQuery(guildID, userID))
}

// Create implements UserStore
func (s *MongoUserStore) Create(u *models.GuildUser) (*models.GuildUser, error) {
	stored, err := s.dm.SetOnInsert(userQuery(u.GuildID, u.UserID), u)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		// queued while offline
		return u, nil
	}
	return stored, nil
}

// SetUsername implements UserStore
func (s *MongoUserStore) SetUsername(guildID, userID, username string) (*models.GuildUser, error) {
	return s.dm.Update(userQuery(guildID, userID), bson.M{"$set": bson.M{"username": username}})
}

// Delete implements UserStore
func (s *MongoUserStore) Delete(guildID, userID string) error {
	return s.dm.Delete(userQuery(guildID, userID))
}

// DeleteGuild implements UserStore
func (s *MongoUserStore) DeleteGuild(guildID string) (int64, error) {
	return s.dm.DeleteMany(bson.M{"guildId": guildID})
}

// ListGuild implements UserStore
func (s *MongoUserStore) ListGuild(guildID string) ([]*models.GuildUser, error) {
	return s.dm.GetAll(bson.M{"guildId": guildID})
}

// IncrementCommands implements UserStore
func (s *MongoUserStore) IncrementCommands(guildID, userID string, at time.Time) (*models.GuildUser, error) {
	return s.dm.Update(userQuery(guildID, userID), bson.M{
		"$inc": bson.M{"commandsUsed": 1},
		"$set": bson.M{"lastCommandAt": at},
	})
}

// Top implements UserStore
func (s *MongoUserStore) Top(guildID string, limit int) ([]*models.GuildUser, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "commandsUsed", Value: -1}, {Key: "joinedAt", Value: 1}}).
		SetLimit(int64(limit))
	return s.dm.GetAll(bson.M{"guildId": guildID}, opts)
}
