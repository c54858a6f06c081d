package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/config"
	"github.com/hyperjump/finbot/internal/models"
)

const (
	fieldContent   = "content"
	fieldEmbedding = "embedding"
	scanBatch      = 500
)

// RedisStore keeps each chunk in a hash "<index>:doc:<id>" holding its content,
// its embedding as little-endian float32 bytes, and its metadata fields. A set
// "<index>:ids" lists the members and "<index>:schema" records the dimension.
// Search is an exact cosine scan over the members.
type RedisStore struct {
	client     *redis.Client
	index      string
	dimensions int
	flushScope string
	logger     *zap.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisLogger sets a logger for schema and flush events.
func WithRedisLogger(l *zap.Logger) RedisOption {
	return func(s *RedisStore) { s.logger = l }
}

// WithFlushScope selects what Flush deletes: config.FlushScopeDatabase empties
// the logical database, config.FlushScopeIndex only the index keys.
func WithFlushScope(scope string) RedisOption {
	return func(s *RedisStore) { s.flushScope = scope }
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, index string, dimensions int, opts ...RedisOption) (*RedisStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	s := &RedisStore{
		client:     client,
		index:      index,
		dimensions: dimensions,
		flushScope: config.FlushScopeDatabase,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewRedisStoreFromURL connects to a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, url, index string, dimensions int, opts ...RedisOption) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	s, err := NewRedisStore(client, index, dimensions, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *RedisStore) docKey(id string) string { return s.index + ":doc:" + id }
func (s *RedisStore) idsKey() string          { return s.index + ":ids" }
func (s *RedisStore) schemaKey() string       { return s.index + ":schema" }

// Type returns the backend name.
func (s *RedisStore) Type() string {
	return "redis"
}

// EnsureSchema records the index definition, or checks that an existing one
// has the same dimension.
func (s *RedisStore) EnsureSchema(ctx context.Context) error {
	existing, err := s.client.HGet(ctx, s.schemaKey(), "dims").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read schema: %w", err)
	}
	if err == nil {
		dims, err := strconv.Atoi(existing)
		if err != nil {
			return fmt.Errorf("parse schema dims %q: %w", existing, err)
		}
		if dims != s.dimensions {
			return fmt.Errorf("%w: index %s has %d, expected %d", ErrDimensionMismatch, s.index, dims, s.dimensions)
		}
		return nil
	}
	if err := s.client.HSet(ctx, s.schemaKey(),
		"dims", s.dimensions,
		"distance", "COSINE",
		"prefix", s.index+":doc:",
	).Err(); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	s.logger.Info("redis index created", zap.String("index", s.index), zap.Int("dims", s.dimensions))
	return nil
}

// Upsert writes every chunk in one MULTI/EXEC transaction.
func (s *RedisStore) Upsert(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := checkChunks(chunks, s.dimensions); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ids := make([]any, len(chunks))
		for i, c := range chunks {
			fields := map[string]any{
				fieldContent:   c.Content,
				fieldEmbedding: float32SliceToBytes(c.Embedding),
			}
			for k, v := range c.Metadata.Map() {
				fields[k] = v
			}
			pipe.HSet(ctx, s.docKey(c.ID), fields)
			ids[i] = c.ID
		}
		pipe.SAdd(ctx, s.idsKey(), ids...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}
	return nil
}

// Search ranks every member by cosine similarity. Only the embeddings are
// read for ranking; content and metadata are loaded for the k best.
func (s *RedisStore) Search(ctx context.Context, query []float32, k int) ([]*models.RetrievedChunk, error) {
	if err := checkQuery(query, s.dimensions); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	embCmds := make([]*redis.StringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			embCmds[i] = pipe.HGet(ctx, s.docKey(id), fieldEmbedding)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	ranked := make([]*models.RetrievedChunk, 0, len(ids))
	for i, cmd := range embCmds {
		raw, err := cmd.Bytes()
		if err != nil || len(raw) != s.dimensions*4 {
			// Member without a usable hash; it cannot be ranked.
			continue
		}
		ranked = append(ranked, &models.RetrievedChunk{
			ID:    ids[i],
			Score: Cosine(query, bytesToFloat32Slice(raw)),
		})
	}
	best := topK(ranked, k)
	if len(best) == 0 {
		return nil, nil
	}

	docCmds := make([]*redis.MapStringStringCmd, len(best))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, hit := range best {
			docCmds[i] = pipe.HGetAll(ctx, s.docKey(hit.ID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	hits := make([]*models.RetrievedChunk, 0, len(best))
	for i, cmd := range docCmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		hit := best[i]
		hit.Content = fields[fieldContent]
		hit.Metadata = models.MetadataFromMap(fields)
		hits = append(hits, hit)
	}
	return hits, nil
}

// Flush empties the logical database or only this index, depending on the flush scope.
func (s *RedisStore) Flush(ctx context.Context) error {
	if s.flushScope != config.FlushScopeIndex {
		if err := s.client.FlushDB(ctx).Err(); err != nil {
			return fmt.Errorf("flushdb: %w", err)
		}
		s.logger.Info("redis database flushed", zap.String("index", s.index))
		return nil
	}
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.index+":*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan index keys: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete index keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	s.logger.Info("redis index flushed", zap.String("index", s.index), zap.Int("keys", deleted))
	return nil
}

// Size returns the number of members in the index.
func (s *RedisStore) Size(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.idsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return int(n), nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
