package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"satnam/internal/onboarding/models"
	id "satnam/pkg/domain"
	"satnam/pkg/platform/sentinel"
)

const defaultKeyPrefix = "satnam:onboarding:"

// Redis stores each session as a JSON document and indexes sessions per
// coordinator in a set.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

type RedisOption func(*Redis)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) sessionKey(sessionID id.SessionID) string {
	return r.prefix + "session:" + sessionID.String()
}

func (r *Redis) coordinatorKey(coordinator id.UserID) string {
	return r.prefix + "coordinator:" + coordinator.String()
}

func (r *Redis) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	created, err := r.client.SetNX(ctx, r.sessionKey(session.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	if err := r.client.SAdd(ctx, r.coordinatorKey(session.CoordinatorUserID), session.ID.String()).Err(); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

func (r *Redis) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Save overwrites an existing session. The key is watched so a session
// finished by another process in between is reported as a conflict.
func (r *Redis) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := r.sessionKey(session.ID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var stored struct {
			Status models.SessionStatus `json:"status"`
		}
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if stored.Status.IsTerminal() {
			return sentinel.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return sentinel.ErrConflict
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrConflict):
		return err
	case err != nil:
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *Redis) ListResumable(ctx context.Context, coordinator id.UserID) ([]*models.Session, error) {
	ids, err := r.client.SMembers(ctx, r.coordinatorKey(coordinator)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var out []*models.Session
	for _, raw := range ids {
		sessionID, err := id.ParseSessionID(raw)
		if err != nil {
			continue
		}
		session, err := r.FindByID(ctx, sessionID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if resumable(session) {
			out = append(out, session)
		}
	}
	sortByRecency(out)
	return out, nil
}
