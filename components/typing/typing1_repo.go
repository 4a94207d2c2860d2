package typing

import (
	"context"
	"strconv"
	"time"

	"kawan/apperr"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefixes
	typingPrefix = "typing:" // typing:{conversationId} - hash of userId -> unix milli stamp

	// keys outlive any realistic typing burst, the sweep and the TTL do
	// the fine-grained expiry
	keyExpiry = time.Minute

	opTimeout = 2 * time.Second
)

var Logger logr.Logger = logr.Discard()

type I_TypingRepo interface {
	UpsertTypingIndicator(conversationID, userID string, isTyping bool) error
	ListTyping(conversationID string) ([]string, error)
	SweepStale() (int, error)
}

type TypingStore struct {
	rdb *redis.Client
	ctx context.Context
	ttl time.Duration
	now func() time.Time
}

func NewTypingStore(rdb *redis.Client, ctx context.Context, l logr.Logger, ttl time.Duration) I_TypingRepo {
	Logger = l
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TypingStore{rdb: rdb, ctx: ctx, ttl: ttl, now: time.Now}
}

func (me *TypingStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(me.ctx, opTimeout)
}

// UpsertTypingIndicator records that a user is typing, or clears the mark.
// Lost updates are acceptable here, readers fall back to the stamp anyway.
func (me *TypingStore) UpsertTypingIndicator(conversationID, userID string, isTyping bool) error {
	ctx, cancel := me.opCtx()
	defer cancel()

	key := typingPrefix + conversationID

	if !isTyping {
		if err := me.rdb.HDel(ctx, key, userID).Err(); err != nil {
			return apperr.FromStore(err)
		}
		return nil
	}

	stamp := strconv.FormatInt(me.now().UnixMilli(), 10)
	if err := me.rdb.HSet(ctx, key, userID, stamp).Err(); err != nil {
		return apperr.FromStore(err)
	}
	me.rdb.Expire(ctx, key, keyExpiry)

	return nil
}

// ListTyping returns the users currently typing in a conversation. Entries
// older than the TTL are treated as not typing even though they are still
// stored.
func (me *TypingStore) ListTyping(conversationID string) ([]string, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	entries, err := me.rdb.HGetAll(ctx, typingPrefix+conversationID).Result()
	if err != nil {
		return nil, apperr.FromStore(err)
	}

	users := []string{}
	now := me.now()
	for user, stamp := range entries {
		if isFresh(stamp, now, me.ttl) {
			users = append(users, user)
		}
	}

	return users, nil
}

// SweepStale walks all typing hashes and drops fields past the TTL. Purely
// opportunistic, readers never depend on it.
func (me *TypingStore) SweepStale() (int, error) {
	ctx, cancel := me.opCtx()
	defer cancel()

	removed := 0
	now := me.now()

	iter := me.rdb.Scan(ctx, 0, typingPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		entries, err := me.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			Logger.Error(err, "error reading typing hash", "key", key)
			continue
		}

		for user, stamp := range entries {
			if !isFresh(stamp, now, me.ttl) {
				if err := me.rdb.HDel(ctx, key, user).Err(); err != nil {
					Logger.Error(err, "error deleting stale typing field", "key", key)
					continue
				}
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, apperr.FromStore(err)
	}

	return removed, nil
}

// isFresh reports whether a stored unix-milli stamp is within the TTL.
// Unparseable stamps count as stale.
func isFresh(stamp string, now time.Time, ttl time.Duration) bool {
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return false
	}
	return now.Sub(time.UnixMilli(ms)) <= ttl
}
