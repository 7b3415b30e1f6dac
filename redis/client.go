package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
)

type DB int
type ReleaseLock func() error

var ErrNotFound = errors.New("redis: key not found")

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
}

var ctx = context.Background()

type Config struct {
	LockExpirationSeconds   int     `envconfig:"BSC_REDIS_LOCK_EXPIRATION" default:"3"`
	Host                    string  `envconfig:"BSC_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"BSC_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"BSC_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"BSC_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"BSC_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"BSC_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"BSC_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"BSC_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

const maxRetries = 6

func NewClient(db DB) (Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		return Client{}, err
	}
	return NewClientFrom(cfg.newUniversalClient(db), cfg.lockExpiration()), nil
}

// NewClientFrom wraps an existing connection.
func NewClientFrom(client redis.UniversalClient, lockExpiration time.Duration) Client {
	return Client{client: client, lockExpiration: lockExpiration}
}

func (cfg *Config) lockExpiration() time.Duration {
	return time.Duration(cfg.LockExpirationSeconds) * time.Second
}

func (cfg *Config) password() string {
	if !cfg.AuthRequired {
		return ""
	}
	return cfg.Password
}

// newUniversalClient connects through the sentinel in HA mode and directly
// otherwise.
func (cfg *Config) newUniversalClient(db DB) redis.UniversalClient {
	if !cfg.HAMode {
		return redis.NewClient(&redis.Options{
			Addr:       fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			MaxRetries: maxRetries,
			DB:         int(db),
			Password:   cfg.password(),
		})
	}
	timeout := time.Duration(cfg.HASentinelSocketTimeout * float32(time.Second))
	return redis.NewFailoverClusterClient(&redis.FailoverOptions{
		SentinelAddrs: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    maxRetries,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
		Password:      cfg.password(),
	})
}

// GetJSON decodes the value stored at redisKey into v.
func (client *Client) GetJSON(redisKey string, v interface{}) error {
	b, err := client.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, redisKey)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// SaveJSON stores v at redisKey. A zero expiration keeps the key forever.
func (client *Client) SaveJSON(redisKey string, v interface{}, expiration time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.client.Set(ctx, redisKey, b, expiration).Err()
}

// UpdateJSON reads, modifies and writes back the value at redisKey while
// holding its lock. A missing key leaves v untouched before update runs.
func (client *Client) UpdateJSON(redisKey string, v interface{}, update func() error) (err error) {
	releaseLock, err := client.Lock(redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()
	if err = client.GetJSON(redisKey, v); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err = update(); err != nil {
		return err
	}
	return client.SaveJSON(redisKey, v, 0)
}

func (client *Client) Lock(redisKey string) (ReleaseLock, error) {
	retry := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lock, err := redislock.New(client.client).Obtain(
		ctx,
		"lock:"+redisKey,
		client.lockExpiration,
		&redislock.Options{RetryStrategy: retry},
	)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", redisKey, err)
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func (client *Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("redis environment: %w", err)
	}
	return &cfg, nil
}
