package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

// Cache persists serialized graph definitions in Redis so processes can skip
// re-parsing declarative sources on startup. Only the Definition is cached;
// compiling still resolves names against the local catalog, so cached graphs
// always bind to the current process's functions.
type Cache struct {
	client  *redis.Client
	catalog *Catalog
	prefix  string
}

// CacheOption configures the definition cache.
type CacheOption func(*Cache)

// WithCachePrefix overrides the default "stateflow:def" key prefix.
func WithCachePrefix(prefix string) CacheOption {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// NewCache creates a redis-backed definition cache.
func NewCache(client *redis.Client, catalog *Catalog, opts ...CacheOption) (*Cache, error) {
	if client == nil {
		return nil, errors.New("registry: redis client cannot be nil")
	}
	if catalog == nil {
		return nil, errors.New("registry: catalog cannot be nil")
	}
	c := &Cache{client: client, catalog: catalog, prefix: "stateflow:def"}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cache) key(entityType, attribute string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, entityType, attribute)
}

// Store serializes the definition under its (entity type, attribute) key.
func (c *Cache) Store(ctx context.Context, def Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("registry: marshal definition %s.%s: %w", def.EntityType, def.Attribute, err)
	}
	if err := c.client.Set(ctx, c.key(def.EntityType, def.Attribute), data, 0).Err(); err != nil {
		return fmt.Errorf("registry: cache definition %s.%s: %w", def.EntityType, def.Attribute, err)
	}
	return nil
}

// Load fetches and compiles a cached definition.
func (c *Cache) Load(ctx context.Context, entityType, attribute string) (*graph.Graph, error) {
	data, err := c.client.Get(ctx, c.key(entityType, attribute)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s.%s", ErrCacheMiss, entityType, attribute)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: load cached definition %s.%s: %w", entityType, attribute, err)
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return def.Compile(c.catalog)
}

// Source adapts a cached definition as a discovery Source.
func (c *Cache) Source(entityType, attribute string) Source {
	return cacheSource{cache: c, entityType: entityType, attribute: attribute}
}

type cacheSource struct {
	cache      *Cache
	entityType string
	attribute  string
}

func (s cacheSource) Name() string {
	return "cache:" + s.entityType + "." + s.attribute
}

func (s cacheSource) Load(ctx context.Context) (*graph.Graph, error) {
	return s.cache.Load(ctx, s.entityType, s.attribute)
}
