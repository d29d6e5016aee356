package database

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
)

// ensureIndex creates the index now if online and again after every reconnection
func ensureIndex(db *Database, collection string, keys bson.D, unique bool) {
	db.OnConnect(func() {
		if err := db.EnsureIndex(collection, keys, unique); err != nil {
			logger.Error(fmt.Sprintf("No se pudieron crear los índices de '%s': %v", collection, err), "DB")
		}
	})
}
