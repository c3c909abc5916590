package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps any Redis transport failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrSessionNotFound is returned for missing or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)

const minSlidingTTL = time.Second

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store persists sessions under prefix:tenant:sessionID and indexes them per
// user under prefix:u:tenant:userID.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	sliding bool
	idleTTL time.Duration
	now     func() time.Time
}

// NewStore returns a Store. With sliding enabled, every Get pushes the key
// expiry out to idleTTL, capped by the session's absolute ExpiresAt.
func NewStore(redisClient redis.UniversalClient, prefix string, sliding bool, idleTTL time.Duration) *Store {
	if prefix == "" {
		prefix = "as"
	}
	return &Store{
		redis:   redisClient,
		prefix:  prefix,
		sliding: sliding,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (s *Store) key(tenantID, sessionID string) string {
	return s.prefix + ":" + normalizeTenantID(tenantID) + ":" + sessionID
}

func (s *Store) userKey(tenantID, userID string) string {
	return s.prefix + ":u:" + normalizeTenantID(tenantID) + ":" + userID
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}

// Save writes sess and adds it to the user index.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	userKey := s.userKey(sess.TenantID, sess.UserID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.TenantID, sess.SessionID), data, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads a session. Sessions past ExpiresAt are deleted and reported as
// ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	key := s.key(tenantID, sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	now := s.now()
	remaining := time.Unix(sess.ExpiresAt, 0).Sub(now)
	if remaining <= 0 {
		if err := s.deleteSessionAndIndex(ctx, sess.TenantID, sess.UserID, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	if s.sliding && s.idleTTL > 0 {
		next := s.idleTTL
		if next > remaining {
			next = remaining
		}
		if next < minSlidingTTL {
			next = minSlidingTTL
		}
		if err := s.redis.Expire(ctx, key, next).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sess, nil
}

// Delete removes one session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, tenantID, sessionID string) error {
	data, err := s.redis.Get(ctx, s.key(tenantID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return err
	}

	return s.deleteSessionAndIndex(ctx, tenantID, sess.UserID, sessionID)
}

// DeleteAllForUser removes every indexed session of the user.
func (s *Store) DeleteAllForUser(ctx context.Context, tenantID, userID string) error {
	userKey := s.userKey(tenantID, userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(sessionIDs)+1)
	for _, sessionID := range sessionIDs {
		keys = append(keys, s.key(tenantID, sessionID))
	}
	keys = append(keys, userKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs lists the user's indexed session IDs. The index may lag
// behind key expiry.
func (s *Store) ActiveSessionIDs(ctx context.Context, tenantID, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(tenantID, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, tenantID, userID, sessionID string) error {
	err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(tenantID, sessionID), s.userKey(tenantID, userID)},
		sessionID,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// GetManyReadOnly loads the given sessions in one pipeline without touching
// their TTL. Missing and expired sessions are skipped.
func (s *Store) GetManyReadOnly(ctx context.Context, tenantID string, sessionIDs []string) ([]*Session, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, len(sessionIDs))
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, sessionID := range sessionIDs {
			cmds[i] = pipe.Get(ctx, s.key(tenantID, sessionID))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := s.now().Unix()
	out := make([]*Session, 0, len(sessionIDs))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		sess, err := Decode(data)
		if err != nil || sess.ExpiresAt <= now {
			continue
		}
		sess.SessionID = sessionIDs[i]
		out = append(out, sess)
	}
	return out, nil
}

// Ping measures one Redis round-trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
