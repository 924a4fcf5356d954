package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisCASRetries = 4

// Redis is a table-style Store backed by a Redis keyspace, one JSON value per
// username. Writes use WATCH/MULTI so a concurrent mutation of the same key
// aborts the transaction instead of clobbering it.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps client as a credential store. prefix defaults to "enroll:cred".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "enroll:cred"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(username string) string {
	return r.prefix + ":" + username
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, username string) (Record, bool, error) {
	data, err := r.client.Get(ctx, r.key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("%w: corrupt record: %v", ErrUnavailable, err)
	}
	return rec, true, nil
}

// Put implements Store. The version check and the write happen inside one
// WATCH-guarded transaction; a concurrent write to the same key fails the
// transaction and the check is retried against the fresh value.
func (r *Redis) Put(ctx context.Context, rec Record) error {
	key := r.key(rec.Username)

	next := rec
	next.Version = rec.Version + 1
	encoded, err := json.Marshal(next)
	if err != nil {
		return err
	}

	for i := 0; i < redisCASRetries; i++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				if rec.Version != 0 {
					return ErrVersionConflict
				}
			case err != nil:
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			default:
				var current Record
				if err := json.Unmarshal(data, &current); err != nil {
					return fmt.Errorf("%w: corrupt record: %v", ErrUnavailable, err)
				}
				if current.Version != rec.Version {
					return ErrVersionConflict
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrUnavailable):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	// The key changed under us on every attempt; report it as a conflict so
	// the engine re-reads and re-decides.
	return ErrVersionConflict
}
