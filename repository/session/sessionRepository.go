// Redis-backed session registry. Tokens are JWTs, but every login also
// records its session id here so logout and logout-all can revoke tokens
// before they expire.
package sessionrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Repo interface {
	Create(ctx context.Context, sessionID string, userID int64, ttl time.Duration) error
	// Validate reports whether the session is still live and extends its
	// expiry when it is.
	Validate(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
}

type repo struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) Repo {
	return &repo{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string { return "session:" + sessionID }
func userKey(userID int64) string        { return fmt.Sprintf("user_sessions:%d", userID) }

func (r *repo) Create(ctx context.Context, sessionID string, userID int64, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sessionID), userID, ttl)
	pipe.SAdd(ctx, userKey(userID), sessionID)
	pipe.Expire(ctx, userKey(userID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *repo) Validate(ctx context.Context, sessionID string) (bool, error) {
	err := r.client.Get(ctx, sessionKey(sessionID)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// Sliding expiry: activity keeps the session alive.
	r.client.Expire(ctx, sessionKey(sessionID), r.ttl)
	return true, nil
}

func (r *repo) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil && err != redis.Nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repo) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	ids, err := r.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	var removed int64
	for _, sid := range ids {
		n, err := r.client.Del(ctx, sessionKey(sid)).Result()
		if err != nil && err != redis.Nil {
			return removed, err
		}
		removed += n
	}
	if err := r.client.Del(ctx, userKey(userID)).Err(); err != nil && err != redis.Nil {
		return removed, err
	}
	return removed, nil
}
