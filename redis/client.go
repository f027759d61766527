package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
	"time"
)

type DB int

// ReleaseLock frees a lock obtained with Lock.
type ReleaseLock = func() error

const (
	CacheDB DB = 0
	RunsDB  DB = 1
)

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
	cacheTTL       time.Duration
}

type Config struct {
	LockExpirationSeconds   int     `envconfig:"MDL_COMN_REDIS_LOCK_EXPIRATION" default:"3"`
	Host                    string  `envconfig:"MDL_COMN_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"MDL_COMN_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"MDL_COMN_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"MDL_COMN_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"MDL_COMN_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"MDL_COMN_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"MDL_COMN_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"MDL_COMN_REDIS_SOCKET_TIMEOUT" default:"0.5"`
	CacheTTLHours           int     `envconfig:"ANNEVAL_CACHE_TTL_HOURS" default:"168"`
}

func NewClient(db DB) (Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = CreateClusterClient(cfg, db)
	} else {
		client = CreateClient(cfg, db)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing connection.
func NewWithClient(client redis.UniversalClient, cfg *Config) Client {
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
		cacheTTL:       time.Duration(cfg.CacheTTLHours) * time.Hour,
	}
}

func CreateClusterClient(cfg *Config, db DB) *redis.ClusterClient {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)
	timeout := time.Duration(cfg.HASentinelSocketTimeout * float32(time.Second))
	options := redis.FailoverOptions{
		SentinelAddrs: []string{addr},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewFailoverClusterClient(&options)
}

func CreateClient(cfg *Config, db DB) *redis.Client {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	options := redis.Options{
		Addr:       addr,
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

// Get returns the cached value of key; a missing key is not an error.
func (client Client) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := client.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key for the configured cache TTL.
func (client Client) Set(ctx context.Context, key string, value string) error {
	return client.client.Set(ctx, key, value, client.cacheTTL).Err()
}

// Lock obtains "lock:<key>", retrying for up to 20 seconds. A non-positive
// ttl means the configured lock expiration.
func (client Client) Lock(ctx context.Context, key string, ttl time.Duration) (ReleaseLock, error) {
	if ttl <= 0 {
		ttl = client.lockExpiration
	}
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lockKey := fmt.Sprintf("lock:%s", key)
	lock, err := lockCl.Obtain(ctx, lockKey, ttl, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(context.Background())
	}, nil
}

// GetDoc decodes the JSON document stored at key into doc. It reports false
// when the key does not exist.
func (client Client) GetDoc(ctx context.Context, key string, doc interface{}) (bool, error) {
	b, err := client.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, doc); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (client Client) SaveDoc(ctx context.Context, key string, doc interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return client.client.Set(ctx, key, b, 0).Err()
}

// UpdateDoc reads the document at key into doc under the key's lock, applies
// update and writes the result back. A missing key leaves doc untouched
// before update runs.
func (client Client) UpdateDoc(ctx context.Context, key string, doc interface{}, update func() error) (err error) {
	releaseLock, err := client.Lock(ctx, key, 0)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()
	if _, err = client.GetDoc(ctx, key, doc); err != nil {
		return err
	}
	if err = update(); err != nil {
		return err
	}
	return client.SaveDoc(ctx, key, doc)
}

func (client Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
