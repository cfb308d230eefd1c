package stream

import (
	"context"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Compile-time check that RedisClient implements the substrate contract.
var _ Client = (*RedisClient)(nil)

// RedisClient implements the substrate contract on Redis Streams. One pooled
// client serves every goroutine in the process.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient connects a pooled client to the given server.
func NewRedisClient(addr, password string, db int) *RedisClient {
	return &RedisClient{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewRedisClientFrom wraps an existing client (tests inject miniredis here).
func NewRedisClientFrom(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

func (c *RedisClient) Append(ctx context.Context, topic string, fields map[string]string, maxLen int64) (string, error) {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	args := &redis.XAddArgs{
		Stream: topic,
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return c.rdb.XAdd(ctx, args).Result()
}

func (c *RedisClient) EnsureGroup(ctx context.Context, topic, group, start string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, topic, group, start).Err()
	if err != nil && strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

func (c *RedisClient) ReadGroup(ctx context.Context, args ReadGroupArgs) ([]Message, error) {
	if len(args.Topics) == 0 {
		return nil, nil
	}

	// XREADGROUP wants topics followed by one cursor per topic. ">" delivers
	// new entries; "0" re-delivers this consumer's pending entries.
	cursor := ">"
	block := args.Block
	if args.Pending {
		cursor = "0"
		block = -1 // pending reads never block
	}
	streams := make([]string, 0, len(args.Topics)*2)
	streams = append(streams, args.Topics...)
	for range args.Topics {
		streams = append(streams, cursor)
	}

	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    args.Group,
		Consumer: args.Consumer,
		Streams:  streams,
		Count:    args.Count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			// Block timeout expired with nothing available.
			return nil, nil
		}
		return nil, err
	}

	var msgs []Message
	for _, s := range res {
		for _, m := range s.Messages {
			msgs = append(msgs, Message{
				Topic:  s.Stream,
				ID:     m.ID,
				Fields: stringFields(m.Values),
			})
		}
	}
	return msgs, nil
}

func (c *RedisClient) Ack(ctx context.Context, topic, group, id string) error {
	return c.rdb.XAck(ctx, topic, group, id).Err()
}

func (c *RedisClient) DiscoverTopics(ctx context.Context, prefix string) ([]string, error) {
	var (
		cursor uint64
		topics []string
	)
	pattern := prefix + "*"
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		topics = append(topics, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	// SCAN order is unspecified; keep the read priority stable.
	sort.Strings(topics)
	return topics, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

func stringFields(values map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	return fields
}
