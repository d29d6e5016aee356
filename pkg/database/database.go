// Package database provides MongoDB database connection and data management.
// It includes a DataManager with caching capabilities and an offline write queue
// that is replayed once the connection comes back.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// ErrNotConnected is returned by operations that cannot be queued while offline
var ErrNotConnected = errors.New("database not connected")

// Queued operation kinds
const (
	OpSet         = "set"
	OpSetOnInsert = "setOnInsert"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpDeleteMany  = "deleteMany"
)

// QueuedOperation represents a pending database operation
type QueuedOperation struct {
	CollectionName string
	Query          bson.M
	Operation      string
	Data           interface{}
}

// Database manages the MongoDB connection and data managers
type Database struct {
	client          *mongo.Client
	db              *mongo.Database
	IsConnected     bool
	mongoURL        string
	dbName          string
	writeQueue      []QueuedOperation
	reconnectTicker *time.Ticker
	reconnectEvery  time.Duration
	stopReconnect   chan struct{}
	stopOnce        sync.Once
	mu              sync.RWMutex
	queueMu         sync.Mutex
	collections     map[string]*mongo.Collection
	onConnect       []func()

	// dial opens and verifies a client; apply replays one queued write
	dial  func(ctx context.Context, mongoURL string) (*mongo.Client, error)
	apply func(op QueuedOperation) error
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init initializes the global database instance
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

// NewDatabase creates a new Database instance
func NewDatabase() *Database {
	return &Database{
		IsConnected:    false,
		writeQueue:     make([]QueuedOperation, 0),
		reconnectEvery: 15 * time.Second,
		stopReconnect:  make(chan struct{}),
		collections:    make(map[string]*mongo.Collection),
		dial:           dialMongo,
	}
}

// dialMongo connects to mongoURL and pings the primary
func dialMongo(ctx context.Context, mongoURL string) (*mongo.Client, error) {
	clientOpts := options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}

// isConnectionError reports whether err means the server could not be reached,
// as opposed to a rejected query
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, topology.ErrServerSelectionTimeout) {
		return true
	}
	var selErr topology.ServerSelectionError
	return errors.As(err, &selErr)
}

// Connect establishes a connection to MongoDB. On failure the database stays in
// offline mode and keeps retrying in the background.
func (d *Database) Connect(mongoURL, dbName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.IsConnected {
		return nil
	}
	d.mongoURL, d.dbName = mongoURL, dbName

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := d.dial(ctx, mongoURL)
	if err != nil {
		logger.Critical("Fallo al conectar con la base de datos: "+err.Error(), "DB")
		d.handleDisconnection()
		return err
	}

	if old := d.client; old != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = old.Disconnect(ctx)
		}()
	}
	d.client = client
	d.db = client.Database(dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.IsConnected = true

	logger.Success("Conectado exitosamente a la base de datos.", "DB")

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}

	hooks := append([]func(){}, d.onConnect...)
	go func() {
		for _, hook := range hooks {
			hook()
		}
		d.syncOfflineWrites()
	}()

	return nil
}

// OnConnect registers fn to run after every successful (re)connection.
// If the database is already online fn also runs right away.
func (d *Database) OnConnect(fn func()) {
	d.mu.Lock()
	d.onConnect = append(d.onConnect, fn)
	connected := d.IsConnected
	d.mu.Unlock()

	if connected {
		fn()
	}
}

// handleDisconnection switches to offline mode and schedules reconnection attempts.
// Callers must hold d.mu.
func (d *Database) handleDisconnection() {
	if d.IsConnected {
		logger.Warn("Se perdió la conexión con la base de datos. Activando modo offline.", "DB")
	}
	d.IsConnected = false

	if d.reconnectTicker != nil {
		return
	}

	ticker := time.NewTicker(d.reconnectEvery)
	d.reconnectTicker = ticker
	mongoURL, dbName := d.mongoURL, d.dbName
	go func() {
		for {
			select {
			case <-ticker.C:
				logger.Info("Intentando reconectar a la base de datos...", "DB")
				if err := d.Connect(mongoURL, dbName); err == nil {
					return
				}
			case <-d.stopReconnect:
				return
			}
		}
	}()
}

// MarkOffline is called when an operation fails because the server went away.
// Writes are queued from then on and replayed after the next reconnection.
func (d *Database) MarkOffline() {
	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-d.stopReconnect:
		// shut down on purpose, nothing to reconnect
		d.IsConnected = false
		return
	default:
	}
	d.handleDisconnection()
}

// StartHealthCheck pings the server every interval and switches to offline mode
// when it stops answering, so an idle bot notices an outage too
func (d *Database) StartHealthCheck(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !d.Connected() {
					continue
				}
				if _, err := d.Ping(); isConnectionError(err) {
					logger.Warn("La base de datos no responde: "+err.Error(), "DB")
					d.MarkOffline()
				}
			case <-d.stopReconnect:
				return
			}
		}
	}()
}

// Connected reports whether the database is currently reachable
func (d *Database) Connected() bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.IsConnected
}

// Disconnect closes the database connection
func (d *Database) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reconnectTicker != nil {
		d.reconnectTicker.Stop()
		d.reconnectTicker = nil
	}
	d.stopOnce.Do(func() { close(d.stopReconnect) })

	if d.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.client.Disconnect(ctx); err != nil {
			return err
		}
		d.IsConnected = false
		logger.Warn("La base de datos ha sido desconectada", "DB")
	}
	return nil
}

// Ping measures the database response time
func (d *Database) Ping() (time.Duration, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.IsConnected || d.client == nil {
		return 0, ErrNotConnected
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := d.client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns the database connection status
func (d *Database) GetStatus() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.client == nil {
		return "🔴 | Desconectado", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// GetCollection returns a MongoDB collection, or nil while offline
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	if col, exists := d.collections[name]; exists {
		d.mu.RUnlock()
		return col
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	col := d.db.Collection(name)
	d.collections[name] = col
	return col
}

// EnsureIndex creates an index on the collection if it does not exist yet
func (d *Database) EnsureIndex(collectionName string, keys bson.D, unique bool) error {
	col := d.GetCollection(collectionName)
	if col == nil || !d.Connected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(unique),
	})
	if err != nil {
		return fmt.Errorf("creating index on %s: %w", collectionName, err)
	}
	return nil
}

// AddToWriteQueue adds an operation to the offline write queue
func (d *Database) AddToWriteQueue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.writeQueue = append(d.writeQueue, op)
}

// QueueLength returns the number of writes waiting for the connection
func (d *Database) QueueLength() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.writeQueue)
}

// applyOperation runs a queued operation against its collection
func applyOperation(ctx context.Context, col *mongo.Collection, op QueuedOperation) error {
	var err error
	switch op.Operation {
	case OpSet:
		_, err = col.UpdateOne(ctx, op.Query, bson.M{"$set": op.Data}, options.Update().SetUpsert(true))
	case OpSetOnInsert:
		_, err = col.UpdateOne(ctx, op.Query, bson.M{"$setOnInsert": op.Data}, options.Update().SetUpsert(true))
	case OpUpdate:
		_, err = col.UpdateOne(ctx, op.Query, op.Data)
	case OpDelete:
		_, err = col.DeleteOne(ctx, op.Query)
	case OpDeleteMany:
		_, err = col.DeleteMany(ctx, op.Query)
	default:
		err = fmt.Errorf("unknown queued operation %q", op.Operation)
	}
	return err
}

// syncOfflineWrites syncs queued operations with the database
func (d *Database) syncOfflineWrites() {
	d.queueMu.Lock()
	if len(d.writeQueue) == 0 {
		d.queueMu.Unlock()
		return
	}

	logger.System(fmt.Sprintf("Sincronizando %d operaciones pendientes con la DB...", len(d.writeQueue)), "DB-Sync")

	operations := make([]QueuedOperation, len(d.writeQueue))
	copy(operations, d.writeQueue)
	d.writeQueue = make([]QueuedOperation, 0)
	d.queueMu.Unlock()

	failedOps := make([]QueuedOperation, 0)
	lostConnection := false

	for _, op := range operations {
		if err := d.replay(op); err != nil {
			logger.Error(fmt.Sprintf("Error al sincronizar operación '%s' para '%s': %v. La operación se volverá a encolar.", op.Operation, op.CollectionName, err), "DB-Sync")
			failedOps = append(failedOps, op)
			if isConnectionError(err) {
				lostConnection = true
			}
		}
	}

	if len(failedOps) > 0 {
		d.queueMu.Lock()
		d.writeQueue = append(failedOps, d.writeQueue...)
		d.queueMu.Unlock()
		logger.Warn(fmt.Sprintf("%d operaciones no pudieron sincronizarse y se reintentarán.", len(failedOps)), "DB-Sync")
		if lostConnection {
			d.MarkOffline()
		}
	} else {
		logger.Success("Sincronización completada exitosamente.", "DB-Sync")
	}
}

// replay runs one queued write against the live connection
func (d *Database) replay(op QueuedOperation) error {
	if d.apply != nil {
		return d.apply(op)
	}
	col := d.GetCollection(op.CollectionName)
	if col == nil {
		return fmt.Errorf("collection %s: %w", op.CollectionName, ErrNotConnected)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return applyOperation(ctx, col, op)
}

// Client returns the underlying MongoDB client
func (d *Database) Client() *mongo.Client {
	return d.client
}

// DB returns the underlying MongoDB database
func (d *Database) DB() *mongo.Database {
	return d.db
}
