package remote

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/talkincode/smartstock/internal/domain"
	"go.uber.org/zap"
)

const (
	// KeyProducts is the hash holding the collection: field = record id,
	// value = JSON document.
	KeyProducts = "smartstock:products"

	// ChannelChanges carries a message per remote mutation; payload is the
	// mutated record id, subscribers re-fetch the full set.
	ChannelChanges = "smartstock:products:changes"
)

// RedisStore keeps the remote collection in a redis hash and signals changes
// over pub/sub.
type RedisStore struct {
	rdb     *redis.Client
	key     string
	channel string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, key: KeyProducts, channel: ChannelChanges}
}

// NewClient dials the configured redis backend.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisStore) Put(ctx context.Context, id string, doc domain.Document) error {
	data, err := domain.EncodeDocument(doc)
	if err != nil {
		return errors.Wrapf(err, "encode document %s", id)
	}
	if err := r.rdb.HSet(ctx, r.key, id, data).Err(); err != nil {
		return errors.Wrapf(err, "put document %s", id)
	}
	if err := r.rdb.Publish(ctx, r.channel, id).Err(); err != nil {
		zap.L().Warn("publish change notification failed", zap.String("id", id), zap.Error(err))
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.HDel(ctx, r.key, id).Err(); err != nil {
		return errors.Wrapf(err, "delete document %s", id)
	}
	if err := r.rdb.Publish(ctx, r.channel, id).Err(); err != nil {
		zap.L().Warn("publish change notification failed", zap.String("id", id), zap.Error(err))
	}
	return nil
}

func (r *RedisStore) FetchAll(ctx context.Context) (map[string]domain.Document, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "fetch remote documents")
	}
	docs := make(map[string]domain.Document, len(fields))
	for id, raw := range fields {
		doc, err := domain.DecodeDocument([]byte(raw))
		if err != nil {
			// one mangled document must not sink the whole pull
			zap.L().Warn("skipping undecodable remote document",
				zap.String("id", id), zap.Error(err))
			continue
		}
		docs[id] = doc
	}
	return docs, nil
}

func (r *RedisStore) SubscribeChanges(ctx context.Context, fn ChangeFunc) (func(), error) {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "subscribe remote changes")
	}

	var once sync.Once
	done := make(chan struct{})
	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				docs, err := r.FetchAll(ctx)
				if err != nil {
					zap.L().Warn("remote change fetch failed", zap.Error(err))
					continue
				}
				fn(docs)
			}
		}
	}()

	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return cancel, nil
}
