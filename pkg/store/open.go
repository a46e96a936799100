package store

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

var Backends = []string{BackendFile, BackendMemory, BackendMongo, BackendRedis}

type Options struct {
	Backend string

	DataDir string

	Mongo        *mongo.Database
	MongoTimeout time.Duration

	Redis       *redis.Client
	RedisPrefix string
}

// Open returns the table for one entity kind on the configured backend.
func Open[T Entity](opts Options, table string) (Store[T], error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore[T](opts.DataDir, table)
	case BackendMemory:
		return NewMemoryStore[T](), nil
	case BackendMongo:
		if opts.Mongo == nil {
			return nil, fmt.Errorf("mongo backend selected but no database configured")
		}
		return NewMongoStore[T](opts.Mongo, table, opts.MongoTimeout), nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis backend selected but no client configured")
		}
		return NewRedisStore[T](opts.Redis, opts.RedisPrefix, table), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
