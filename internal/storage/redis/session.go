// Package redis keeps delivery wizard sessions in Redis so that several
// API replicas share them. Expiry is Redis' own key TTL.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/stand-kart/internal/domain/delivery"
)

const keyPrefix = "stand:delivery:"

// SessionStore implements delivery.Store on a Redis client.
type SessionStore struct {
	rdb goredis.UniversalClient
}

var _ delivery.Store = (*SessionStore)(nil)

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return rdb, nil
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(rdb goredis.UniversalClient) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(accountID int64) string {
	return keyPrefix + strconv.FormatInt(accountID, 10)
}

func (s *SessionStore) Get(ctx context.Context, accountID int64) (*delivery.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(accountID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, delivery.ErrNoSession
	}
	if err != nil {
		return nil, errors.Wrap(err, "get session")
	}
	sess, err := decodeSession(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decode session of account %d", accountID)
	}
	return sess, nil
}

func (s *SessionStore) Put(ctx context.Context, sess delivery.Session, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, sessionKey(sess.AccountID), encodeSession(sess), ttl).Err(); err != nil {
		return errors.Wrap(err, "set session")
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, accountID int64) error {
	if err := s.rdb.Del(ctx, sessionKey(accountID)).Err(); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// Ping reports whether Redis is reachable. Used as a readiness check.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func encodeSession(sess delivery.Session) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("account_id")
	e.Int64(sess.AccountID)
	e.FieldStart("order_id")
	e.Str(sess.OrderID)
	e.FieldStart("step")
	e.Str(string(sess.Step))
	e.FieldStart("side")
	e.Str(sess.Side)
	e.FieldStart("sector")
	e.Int(sess.Sector)
	e.FieldStart("row")
	e.Str(sess.Row)
	e.FieldStart("seat")
	e.Str(sess.Seat)
	e.ObjEnd()
	return e.Bytes()
}

func decodeSession(raw []byte) (*delivery.Session, error) {
	var sess delivery.Session
	err := jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "account_id":
			sess.AccountID, err = d.Int64()
		case "order_id":
			sess.OrderID, err = d.Str()
		case "step":
			var step string
			step, err = d.Str()
			sess.Step = delivery.Step(step)
		case "side":
			sess.Side, err = d.Str()
		case "sector":
			sess.Sector, err = d.Int()
		case "row":
			sess.Row, err = d.Str()
		case "seat":
			sess.Seat, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
