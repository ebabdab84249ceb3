package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/putaway/internal/core/domain"
)

const (
	assignmentKeyPrefix = "assignment:"
	assignmentListKey   = "assignments"
)

// appendAssignmentScript claims the per-unit key and appends to the ordered
// log in one round trip, so a crash between the two can never leave the log
// half-written.
var appendAssignmentScript = redis.NewScript(`
local key = KEYS[1]
local list = KEYS[2]
local payload = ARGV[1]

if redis.call('SETNX', key, payload) == 0 then
	return 0
end

redis.call('RPUSH', list, payload)
return 1
`)

// RedisLog is an AssignmentLog shared across engine instances: SETNX per unit
// for idempotency, a list for commit-ordered audit.
type RedisLog struct {
	client *redis.Client
}

func NewRedisLog(client *redis.Client) *RedisLog {
	return &RedisLog{client: client}
}

func (r *RedisLog) Append(ctx context.Context, a domain.Assignment) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assignment: %w", err)
	}

	key := assignmentKeyPrefix + a.UnitID
	_, err = appendAssignmentScript.Run(ctx, r.client, []string{key, assignmentListKey}, payload).Int()
	if err != nil {
		return fmt.Errorf("append assignment: %w", err)
	}
	return nil
}

func (r *RedisLog) Get(ctx context.Context, unitID string) (*domain.Assignment, error) {
	payload, err := r.client.Get(ctx, assignmentKeyPrefix+unitID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}

	var a domain.Assignment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assignment: %w", err)
	}
	return &a, nil
}

func (r *RedisLog) Entries(ctx context.Context) ([]domain.Assignment, error) {
	payloads, err := r.client.LRange(ctx, assignmentListKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	entries := make([]domain.Assignment, 0, len(payloads))
	for _, payload := range payloads {
		var a domain.Assignment
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("unmarshal assignment: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, nil
}
