package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/encoding"
	"github.com/cloudstok/mines-game-backend/internal/biz"
	"github.com/cloudstok/mines-game-backend/internal/conf"
)

const (
	sessionKeyPrefix = "PL:"
	roundKeyPrefix   = "GM:"
)

type sessionRepo struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *zap.Logger
}

// NewSessionRepo builds the redis-backed session store. Session and round
// keys both carry the configured TTL, refreshed on every write, so a crashed
// process cannot leak keys past it.
func NewSessionRepo(data *Data, g *conf.Game, logger *zap.Logger) biz.SessionRepo {
	return &sessionRepo{rdb: data.rdb, ttl: g.TTL(), log: logger}
}

func sessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }
func roundKey(playerKey string) string   { return roundKeyPrefix + playerKey }

func (r *sessionRepo) GetSession(ctx context.Context, sessionID string) (*biz.PlayerSession, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s := new(biz.PlayerSession)
	if err := encoding.JSON.UnmarshalFromString(raw, s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) SetSession(ctx context.Context, s *biz.PlayerSession) error {
	raw, err := encoding.JSON.MarshalToString(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.SessionID), raw, r.ttl).Err(); err != nil {
		r.log.Error("SetSession", zap.Error(err), zap.String("sessionId", s.SessionID))
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetRound(ctx context.Context, playerKey string) (*biz.RoundState, error) {
	raw, err := r.rdb.Get(ctx, roundKey(playerKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get round: %w", err)
	}
	round := new(biz.RoundState)
	if err := encoding.JSON.UnmarshalFromString(raw, round); err != nil {
		return nil, fmt.Errorf("decode round: %w", err)
	}
	return round, nil
}

// SetRound writes the round under WATCH so an interleaved writer is detected
// instead of overwritten: the stored version must still match the version the
// caller read. On success the caller's Version is bumped and the TTL
// refreshed.
func (r *sessionRepo) SetRound(ctx context.Context, playerKey string, round *biz.RoundState) error {
	key := roundKey(playerKey)
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if round.Version != 0 {
				return biz.ErrRoundConflict
			}
		case err != nil:
			return err
		default:
			stored := new(biz.RoundState)
			if err := encoding.JSON.UnmarshalFromString(cur, stored); err != nil {
				return fmt.Errorf("decode stored round: %w", err)
			}
			if stored.Version != round.Version {
				return biz.ErrRoundConflict
			}
		}

		next := *round
		next.Version++
		raw, err := encoding.JSON.MarshalToString(&next)
		if err != nil {
			return fmt.Errorf("encode round: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, r.ttl)
			return nil
		})
		if err == nil {
			round.Version = next.Version
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return biz.ErrRoundConflict
	}
	return err
}

func (r *sessionRepo) DeleteRound(ctx context.Context, playerKey string) error {
	if err := r.rdb.Del(ctx, roundKey(playerKey)).Err(); err != nil {
		return fmt.Errorf("delete round: %w", err)
	}
	return nil
}
