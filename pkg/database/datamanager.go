package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned by Insert when a unique index rejects the document
var ErrDuplicate = errors.New("duplicate document")

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	MaxCacheSize int
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{
		MaxCacheSize: 1000,
	}
}

// DataManager provides cached access to a MongoDB collection.
// Single document reads go through an LRU cache; any write purges it.
type DataManager[T any] struct {
	collectionName string
	dbInstance     *Database
	options        DataManagerOptions
	cache          *lruCache
}

// NewDataManager creates a new DataManager for a collection
func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
	}

	return &DataManager[T]{
		collectionName: collectionName,
		dbInstance:     db,
		options:        dmOptions,
		cache:          newLRUCache(dmOptions.MaxCacheSize),
	}
}

// Name returns the collection name
func (dm *DataManager[T]) Name() string {
	return dm.collectionName
}

// collection resolves the collection, or nil while the database is offline
func (dm *DataManager[T]) collection() *mongo.Collection {
	if !dm.dbInstance.Connected() {
		return nil
	}
	return dm.dbInstance.GetCollection(dm.collectionName)
}

// generateCacheKey creates a unique, deterministic key from a query.
// Keys are sorted so map iteration order does not matter.
func (dm *DataManager[T]) generateCacheKey(query bson.M) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}

	return fmt.Sprintf("%s:{%s}", dm.collectionName, strings.Join(parts, ","))
}

// remember caches a private copy of doc so callers never share the cached value
func (dm *DataManager[T]) remember(query bson.M, doc T) {
	dm.cache.Put(dm.generateCacheKey(query), &doc)
}

// failed marks the database offline when err means the server is unreachable
func (dm *DataManager[T]) failed(err error) {
	if isConnectionError(err) {
		dm.dbInstance.MarkOffline()
	}
}

func (dm *DataManager[T]) enqueue(op string, query bson.M, data interface{}) {
	dm.dbInstance.AddToWriteQueue(QueuedOperation{
		CollectionName: dm.collectionName,
		Query:          query,
		Operation:      op,
		Data:           data,
	})
}

// Get retrieves a document from cache or database. A missing document yields (nil, nil).
func (dm *DataManager[T]) Get(query bson.M) (*T, error) {
	cacheKey := dm.generateCacheKey(query)

	if cached, ok := dm.cache.Get(cacheKey); ok {
		doc := *cached.(*T)
		return &doc, nil
	}

	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result T
	err := col.FindOne(ctx, query).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Warn(fmt.Sprintf("Fallo al leer de la DB (%s): %v", dm.collectionName, err), "DataManager")
		dm.failed(err)
		return nil, err
	}

	dm.remember(query, result)
	return &result, nil
}

// GetAll retrieves all documents matching a query from the database
func (dm *DataManager[T]) GetAll(query bson.M, opts ...*options.FindOptions) ([]*T, error) {
	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := col.Find(ctx, query, opts...)
	if err != nil {
		dm.failed(err)
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var results []*T
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			logger.Warn(fmt.Sprintf("Documento inválido en '%s': %v", dm.collectionName, err), "DataManager")
			continue
		}
		results = append(results, &doc)
	}

	return results, cursor.Err()
}

// Count returns the number of documents matching query
func (dm *DataManager[T]) Count(query bson.M) (int64, error) {
	col := dm.collection()
	if col == nil {
		return 0, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := col.CountDocuments(ctx, query)
	if err != nil {
		dm.failed(err)
	}
	return n, err
}

// Set updates or inserts a document in the database and cache.
// While offline the write is queued and (nil, nil) is returned.
func (dm *DataManager[T]) Set(query bson.M, data interface{}) (*T, error) {
	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando escritura para '%s'", dm.collectionName), "DataManager")
		dm.cache.Purge()
		dm.enqueue(OpSet, query, data)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	err := col.FindOneAndUpdate(ctx, query, bson.M{"$set": data}, opts).Decode(&result)
	dm.cache.Purge()
	if err != nil {
		logger.Error("Error en 'set' con DB conectada. Encolando por seguridad.", "DataManager")
		dm.enqueue(OpSet, query, data)
		dm.failed(err)
		return nil, err
	}

	dm.remember(query, result)
	return &result, nil
}

// SetOnInsert inserts doc when nothing matches query and leaves an existing
// document untouched. It returns the stored document.
// While offline the insert is queued and (nil, nil) is returned.
func (dm *DataManager[T]) SetOnInsert(query bson.M, doc interface{}) (*T, error) {
	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando inserción para '%s'", dm.collectionName), "DataManager")
		dm.cache.Purge()
		dm.enqueue(OpSetOnInsert, query, doc)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	err := col.FindOneAndUpdate(ctx, query, bson.M{"$setOnInsert": doc}, opts).Decode(&result)
	dm.cache.Purge()
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// a concurrent upsert won the race; the document exists now
			return dm.Get(query)
		}
		logger.Error(fmt.Sprintf("Error en 'setOnInsert' sobre '%s': %v", dm.collectionName, err), "DataManager")
		if isConnectionError(err) {
			dm.enqueue(OpSetOnInsert, query, doc)
			dm.failed(err)
		}
		return nil, err
	}

	dm.remember(query, result)
	return &result, nil
}

// Update applies an update document ($inc, $set, ...) to an existing document
// and returns it after the update, or (nil, nil) when nothing matched.
func (dm *DataManager[T]) Update(query bson.M, update bson.M) (*T, error) {
	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando actualización para '%s'", dm.collectionName), "DataManager")
		dm.cache.Purge()
		dm.enqueue(OpUpdate, query, update)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result T
	err := col.FindOneAndUpdate(ctx, query, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&result)
	dm.cache.Purge()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Error(fmt.Sprintf("Error en 'update' sobre '%s': %v", dm.collectionName, err), "DataManager")
		if isConnectionError(err) {
			dm.enqueue(OpUpdate, query, update)
			dm.failed(err)
		}
		return nil, err
	}

	dm.remember(query, result)
	return &result, nil
}

// Insert adds a new document. Unique index violations are reported as ErrDuplicate.
// Inserts are never queued: uniqueness can only be checked online.
func (dm *DataManager[T]) Insert(doc *T) error {
	col := dm.collection()
	if col == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", dm.collectionName, ErrDuplicate)
		}
		dm.failed(err)
		return err
	}
	return nil
}

// Delete removes a document from the database and cache
func (dm *DataManager[T]) Delete(query bson.M) error {
	dm.cache.Purge()

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando eliminación para '%s'", dm.collectionName), "DataManager")
		dm.enqueue(OpDelete, query, nil)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := col.DeleteOne(ctx, query); err != nil {
		logger.Error("Error en 'delete' con DB conectada. Encolando por seguridad.", "DataManager")
		dm.enqueue(OpDelete, query, nil)
		dm.failed(err)
		return err
	}

	return nil
}

// DeleteMany removes every document matching query and returns how many were removed.
// While offline the deletion is queued and 0 is returned.
func (dm *DataManager[T]) DeleteMany(query bson.M) (int64, error) {
	dm.cache.Purge()

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando eliminación múltiple para '%s'", dm.collectionName), "DataManager")
		dm.enqueue(OpDeleteMany, query, nil)
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := col.DeleteMany(ctx, query)
	if err != nil {
		logger.Error("Error en 'deleteMany' con DB conectada. Encolando por seguridad.", "DataManager")
		dm.enqueue(OpDeleteMany, query, nil)
		dm.failed(err)
		return 0, err
	}
	return res.DeletedCount, nil
}

// Invalidate drops the cached document for query
func (dm *DataManager[T]) Invalidate(query bson.M) {
	dm.cache.Remove(dm.generateCacheKey(query))
}

// ClearCache clears the entire cache
func (dm *DataManager[T]) ClearCache() {
	dm.cache.Purge()
}

// CacheSize returns the current cache size
func (dm *DataManager[T]) CacheSize() int {
	return dm.cache.Len()
}

// PrimeCache logs that the cache is ready (caches are filled on demand)
func (dm *DataManager[T]) PrimeCache() {
	logger.System(fmt.Sprintf("Caché para '%s' preparada (tamaño máx: %d). Se llenará bajo demanda.", dm.collectionName, dm.options.MaxCacheSize), "DataManager")
}
