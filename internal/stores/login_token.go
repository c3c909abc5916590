package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginTokenRecordVersionV1 = 1
)

var (
	ErrLoginTokenNotFound         = errors.New("login token record not found")
	ErrLoginTokenExpired          = errors.New("login token record expired")
	ErrLoginTokenMismatch         = errors.New("login token mismatch")
	ErrLoginTokenAttemptsExceeded = errors.New("login token attempts exceeded")
	ErrLoginTokenRedisUnavailable = errors.New("login token redis unavailable")
)

// LoginTokenRecord is the persisted half of a one-time login token. Only the
// SHA-256 of the token is stored.
type LoginTokenRecord struct {
	UserID     string
	SecretHash [32]byte
	ExpiresAt  int64
	Attempts   uint16
	Strategy   int
}

// LoginTokenStore keeps at most one outstanding login token per user.
type LoginTokenStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewLoginTokenStore(redisClient redis.UniversalClient, prefix string) *LoginTokenStore {
	if prefix == "" {
		prefix = "alt"
	}
	return &LoginTokenStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *LoginTokenStore) key(tenantID, userID string) string {
	return s.prefix + ":" + normalizeTenantID(tenantID) + ":" + userID
}

// Save stores record for the user, replacing any token issued before it.
func (s *LoginTokenStore) Save(
	ctx context.Context,
	tenantID string,
	record *LoginTokenRecord,
	ttl time.Duration,
) error {
	encoded, err := encodeLoginTokenRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(tenantID, record.UserID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginTokenRedisUnavailable, err)
	}

	return nil
}

// Consume atomically redeems the user's token. A matching token deletes the
// record. A mismatch counts one attempt and deletes the record once
// maxAttempts is reached.
func (s *LoginTokenStore) Consume(
	ctx context.Context,
	tenantID, userID string,
	providedHash [32]byte,
	expectedStrategy int,
	maxAttempts int,
) (*LoginTokenRecord, error) {
	const maxRetries = 4
	key := s.key(tenantID, userID)

	for i := 0; i < maxRetries; i++ {
		var matched *LoginTokenRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeLoginTokenRecord(data)
			if err != nil {
				return err
			}

			del := func() error {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			now := s.now()
			if now.Unix() > record.ExpiresAt {
				if err := del(); err != nil {
					return err
				}
				return ErrLoginTokenExpired
			}

			if record.Strategy != expectedStrategy {
				if err := del(); err != nil {
					return err
				}
				return ErrLoginTokenMismatch
			}

			if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				record.Attempts++
				if int(record.Attempts) >= maxAttempts {
					if err := del(); err != nil {
						return err
					}
					return ErrLoginTokenAttemptsExceeded
				}

				ttl := time.Unix(record.ExpiresAt, 0).Sub(now)
				if ttl <= 0 {
					if err := del(); err != nil {
						return err
					}
					return ErrLoginTokenExpired
				}

				updated, err := encodeLoginTokenRecord(record)
				if err != nil {
					return err
				}

				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrLoginTokenMismatch
			}

			if err := del(); err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrLoginTokenNotFound
			case errors.Is(err, ErrLoginTokenExpired),
				errors.Is(err, ErrLoginTokenMismatch),
				errors.Is(err, ErrLoginTokenAttemptsExceeded):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrLoginTokenRedisUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, ErrLoginTokenNotFound
}

func encodeLoginTokenRecord(record *LoginTokenRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(loginTokenRecordVersionV1)
	buf.WriteByte(byte(record.Strategy))

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.UserID) > 65535 {
		return nil, errors.New("login token record user id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeLoginTokenRecord(data []byte) (*LoginTokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != loginTokenRecordVersionV1 {
		return nil, errors.New("invalid login token record version")
	}

	strategy, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &LoginTokenRecord{
		Strategy: int(strategy),
	}

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userIDLen); err != nil {
		return nil, err
	}

	userID := make([]byte, userIDLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	record.UserID = string(userID)

	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}
