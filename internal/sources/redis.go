package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/carprice-engine/internal/models"
)

// DefaultRedisPrefix namespaces artifact keys
const DefaultRedisPrefix = "carprice:artifact:"

// RedisProvider reads artifacts stored as Redis hashes
type RedisProvider struct {
	BaseProvider
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// NewRedisProvider connects to Redis and verifies the connection
func NewRedisProvider(ctx context.Context, cfg RedisConfig) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisProvider(client, cfg.Prefix), nil
}

func newRedisProvider(client *redis.Client, prefix string) *RedisProvider {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisProvider{
		BaseProvider: BaseProvider{providerType: "redis"},
		client:       client,
		prefix:       prefix,
	}
}

// Key returns the Redis key holding an artifact
func (p *RedisProvider) Key(name string) string {
	return p.prefix + name
}

// Fetch reads the content field of the artifact hash and checks it against
// the stored checksum
func (p *RedisProvider) Fetch(ctx context.Context, name string) ([]byte, error) {
	fields, err := p.client.HMGet(ctx, p.Key(name), "content", "checksum").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.Key(name), err)
	}

	content, ok := fields[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, p.Key(name))
	}
	checksum, _ := fields[1].(string)

	data := []byte(content)
	if err := verifyChecksum(name, data, checksum); err != nil {
		return nil, err
	}

	slog.Debug("artifact fetched from redis", "key", p.Key(name), "bytes", len(data))
	return data, nil
}

// Publish writes the artifact hash
func (p *RedisProvider) Publish(ctx context.Context, a *models.Artifact) error {
	err := p.client.HSet(ctx, p.Key(a.Name), map[string]interface{}{
		"content":      a.Content,
		"content_type": a.ContentType,
		"checksum":     a.Checksum,
		"updated_at":   time.Now().UTC().Format(time.RFC3339),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", p.Key(a.Name), err)
	}
	return nil
}

// HealthCheck pings Redis
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
