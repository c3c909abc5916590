package stores

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLoginTokenStore(t *testing.T) (*miniredis.Miniredis, *LoginTokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewLoginTokenStore(rdb, "")
}

func saveToken(t *testing.T, s *LoginTokenStore, tenantID, userID, token string, ttl time.Duration) {
	t.Helper()
	err := s.Save(context.Background(), tenantID, &LoginTokenRecord{
		UserID:     userID,
		SecretHash: sha256.Sum256([]byte(token)),
		ExpiresAt:  s.now().Add(ttl).Unix(),
		Strategy:   1,
	}, ttl)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestConsumeMatchDeletesRecord(t *testing.T) {
	mr, s := newLoginTokenStore(t)
	ctx := context.Background()
	saveToken(t, s, "0", "u1", "secret", time.Minute)

	if !mr.Exists("alt:0:u1") {
		t.Fatalf("expected record under default prefix")
	}

	rec, err := s.Consume(ctx, "", "u1", sha256.Sum256([]byte("secret")), 1, 5)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if rec.UserID != "u1" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := s.Consume(ctx, "0", "u1", sha256.Sum256([]byte("secret")), 1, 5); !errors.Is(err, ErrLoginTokenNotFound) {
		t.Fatalf("expected single use, got %v", err)
	}
}

func TestConsumeCountsAttempts(t *testing.T) {
	mr, s := newLoginTokenStore(t)
	ctx := context.Background()
	saveToken(t, s, "0", "u1", "secret", time.Minute)
	wrong := sha256.Sum256([]byte("nope"))

	for i := 0; i < 2; i++ {
		if _, err := s.Consume(ctx, "0", "u1", wrong, 1, 3); !errors.Is(err, ErrLoginTokenMismatch) {
			t.Fatalf("attempt %d: expected mismatch, got %v", i+1, err)
		}
	}
	raw, err := mr.Get("alt:0:u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rec, err := decodeLoginTokenRecord([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", rec.Attempts)
	}

	if _, err := s.Consume(ctx, "0", "u1", wrong, 1, 3); !errors.Is(err, ErrLoginTokenAttemptsExceeded) {
		t.Fatalf("expected attempts exceeded, got %v", err)
	}
	if mr.Exists("alt:0:u1") {
		t.Fatalf("expected record removed")
	}
}

func TestConsumeExpired(t *testing.T) {
	_, s := newLoginTokenStore(t)
	saveToken(t, s, "0", "u1", "secret", time.Minute)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := s.Consume(context.Background(), "0", "u1", sha256.Sum256([]byte("secret")), 1, 5); !errors.Is(err, ErrLoginTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestConsumeStrategyMismatch(t *testing.T) {
	_, s := newLoginTokenStore(t)
	saveToken(t, s, "0", "u1", "secret", time.Minute)

	if _, err := s.Consume(context.Background(), "0", "u1", sha256.Sum256([]byte("secret")), 2, 5); !errors.Is(err, ErrLoginTokenMismatch) {
		t.Fatalf("expected mismatch for other strategy, got %v", err)
	}
}

func TestSaveReplacesPreviousToken(t *testing.T) {
	_, s := newLoginTokenStore(t)
	ctx := context.Background()
	saveToken(t, s, "0", "u1", "first", time.Minute)
	saveToken(t, s, "0", "u1", "second", time.Minute)

	if _, err := s.Consume(ctx, "0", "u1", sha256.Sum256([]byte("first")), 1, 5); !errors.Is(err, ErrLoginTokenMismatch) {
		t.Fatalf("expected old token rejected, got %v", err)
	}
	if _, err := s.Consume(ctx, "0", "u1", sha256.Sum256([]byte("second")), 1, 5); err != nil {
		t.Fatalf("expected new token accepted, got %v", err)
	}
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	_, s := newLoginTokenStore(t)
	saveToken(t, s, "0", "u1", "secret", time.Minute)
	hash := sha256.Sum256([]byte("secret"))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(context.Background(), "0", "u1", hash, 1, 5); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestRecordCodecRejectsBadVersion(t *testing.T) {
	data, err := encodeLoginTokenRecord(&LoginTokenRecord{UserID: "u1", ExpiresAt: 10, Attempts: 3, Strategy: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rec, err := decodeLoginTokenRecord(data)
	if err != nil || rec.UserID != "u1" || rec.Attempts != 3 || rec.Strategy != 2 {
		t.Fatalf("decode: %+v %v", rec, err)
	}

	data[0] = 9
	if _, err := decodeLoginTokenRecord(data); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestStoreRedisDown(t *testing.T) {
	mr, s := newLoginTokenStore(t)
	mr.Close()

	err := s.Save(context.Background(), "0", &LoginTokenRecord{UserID: "u1"}, time.Minute)
	if !errors.Is(err, ErrLoginTokenRedisUnavailable) {
		t.Fatalf("expected redis unavailable, got %v", err)
	}
}
