package storage

import (
	"context"
	"errors"
)

// Keys owned by the session store.
const (
	KeyToken        = "api_token"
	KeyUser         = "current_user"
	KeyTransactions = "transactions"
	KeyCart         = "cart"
)

// SessionKeys lists every key cleared on logout or corruption.
var SessionKeys = []string{KeyToken, KeyUser, KeyTransactions, KeyCart}

// ErrCorrupt reports backend content that cannot be read back at all.
var ErrCorrupt = errors.New("storage: corrupt content")

// KV is the durable key-value storage behind the session store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
