package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/weftworks/weft/pkg/domain"
)

const (
	templateKeyPrefix = "weft:template:"
	nextIDKey         = "weft:templates:next_id"
)

type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(addr string, db int, password string) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisRegistry{client: client}, nil
}

func templateKey(id domain.TemplateID) string {
	return fmt.Sprintf("%s%d", templateKeyPrefix, id)
}

func (r *RedisRegistry) Register(ctx context.Context, tpl *domain.Template) (*domain.Template, error) {
	if !ValidPrice(tpl.Price) {
		return nil, ErrPriceOutOfBounds
	}

	if tpl.ParentID != nil {
		if _, err := r.Get(ctx, *tpl.ParentID); err != nil {
			if errors.Is(err, ErrTemplateNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	id, err := r.client.Incr(ctx, nextIDKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate template id: %w", err)
	}

	stored := cloneTemplate(tpl)
	stored.ID = domain.TemplateID(id)
	stored.CloneCount = 0
	stored.ForkCount = 0
	stored.CreatedAt = time.Now()

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template: %w", err)
	}
	if err := r.client.Set(ctx, templateKey(stored.ID), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to store template: %w", err)
	}

	// Child first, parent counter last: a failure here deletes the child
	// again so the two writes stay all-or-nothing.
	if tpl.ParentID != nil {
		if err := r.mutate(ctx, *tpl.ParentID, func(parent *domain.Template) error {
			parent.ForkCount++
			return nil
		}); err != nil {
			if derr := r.client.Del(ctx, templateKey(stored.ID)).Err(); derr != nil {
				return nil, errors.Join(err, derr)
			}
			if errors.Is(err, ErrTemplateNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}
	return stored, nil
}

func (r *RedisRegistry) Get(ctx context.Context, id domain.TemplateID) (*domain.Template, error) {
	val, err := r.client.Get(ctx, templateKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	var tpl domain.Template
	if err := json.Unmarshal([]byte(val), &tpl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	return &tpl, nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]*domain.Template, error) {
	var templates []*domain.Template
	iter := r.client.Scan(ctx, 0, templateKeyPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // Key removed during iteration
			}
			return nil, fmt.Errorf("failed to get template key %s: %w", iter.Val(), err)
		}

		var tpl domain.Template
		if err := json.Unmarshal([]byte(val), &tpl); err != nil {
			continue // skip corrupt entries
		}
		templates = append(templates, &tpl)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan templates: %w", err)
	}
	return templates, nil
}

// mutate applies fn to a template under an optimistic WATCH transaction.
func (r *RedisRegistry) mutate(ctx context.Context, id domain.TemplateID, fn func(*domain.Template) error) error {
	key := templateKey(id)

	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrTemplateNotFound
			}
			return err
		}

		var tpl domain.Template
		if err := json.Unmarshal([]byte(val), &tpl); err != nil {
			return fmt.Errorf("failed to unmarshal template: %w", err)
		}

		if err := fn(&tpl); err != nil {
			return err
		}

		data, err := json.Marshal(&tpl)
		if err != nil {
			return fmt.Errorf("failed to marshal template: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
}

func (r *RedisRegistry) SetListed(ctx context.Context, id domain.TemplateID, caller domain.AccountID, listed bool) error {
	return r.mutate(ctx, id, func(tpl *domain.Template) error {
		if tpl.Creator != caller {
			return ErrNotCreator
		}
		if listed && tpl.CloneCount > 0 {
			return ErrHasClones
		}
		tpl.Listed = listed
		return nil
	})
}

func (r *RedisRegistry) SetPrice(ctx context.Context, id domain.TemplateID, caller domain.AccountID, price domain.Amount) error {
	if !ValidPrice(price) {
		return ErrPriceOutOfBounds
	}
	return r.mutate(ctx, id, func(tpl *domain.Template) error {
		if tpl.Creator != caller {
			return ErrNotCreator
		}
		tpl.Price = price
		return nil
	})
}

func (r *RedisRegistry) UpdateConfigDefaults(ctx context.Context, id domain.TemplateID, caller domain.AccountID, defaults map[string]any) error {
	return r.mutate(ctx, id, func(tpl *domain.Template) error {
		if tpl.Creator != caller {
			return ErrNotCreator
		}
		tpl.ConfigDefaults = copyDefaults(defaults)
		return nil
	})
}

func (r *RedisRegistry) RecordClone(ctx context.Context, id domain.TemplateID) (uint64, error) {
	var count uint64
	err := r.mutate(ctx, id, func(tpl *domain.Template) error {
		tpl.CloneCount++
		count = tpl.CloneCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
