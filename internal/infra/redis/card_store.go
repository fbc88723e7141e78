package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"persona-card-service/internal/domain"
)

// CardStore keeps targets and records in Redis.
//
//	HSET  persona:targets {targetID} {target JSON}
//	RPUSH persona:records:{targetID} {record JSON}
type CardStore struct {
	client *redis.Client
}

func NewCardStore(client *redis.Client) *CardStore {
	return &CardStore{client: client}
}

func (s *CardStore) ListByTarget(ctx context.Context, targetID string) ([]domain.AnswerRecord, error) {
	raw, err := s.client.LRange(ctx, s.recordsKey(targetID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange records: %w", err)
	}
	out := make([]domain.AnswerRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.AnswerRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *CardStore) Append(ctx context.Context, rec domain.AnswerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.client.RPush(ctx, s.recordsKey(rec.ScoringTargetID), data).Err()
}

func (s *CardStore) DeleteByTarget(ctx context.Context, targetID string) error {
	return s.client.Del(ctx, s.recordsKey(targetID)).Err()
}

func (s *CardStore) GetTarget(ctx context.Context, id string) (domain.Target, error) {
	raw, err := s.client.HGet(ctx, targetsKey, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Target{}, domain.ErrTargetNotFound
	}
	if err != nil {
		return domain.Target{}, fmt.Errorf("hget target: %w", err)
	}
	var t domain.Target
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Target{}, fmt.Errorf("unmarshal target: %w", err)
	}
	return t, nil
}

func (s *CardStore) SaveTarget(ctx context.Context, t domain.Target) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal target: %w", err)
	}
	return s.client.HSet(ctx, targetsKey, t.ID, data).Err()
}

func (s *CardStore) DeleteTarget(ctx context.Context, id string) error {
	return s.client.HDel(ctx, targetsKey, id).Err()
}

func (s *CardStore) ListTargets(ctx context.Context) ([]domain.Target, error) {
	all, err := s.client.HGetAll(ctx, targetsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall targets: %w", err)
	}
	out := make([]domain.Target, 0, len(all))
	for _, raw := range all {
		var t domain.Target
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("unmarshal target: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

const targetsKey = "persona:targets"

func (s *CardStore) recordsKey(targetID string) string {
	return "persona:records:" + targetID
}
