package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/storage"
)

// Initialize rehydrates the store from durable storage. Only the first call does
// any work; later calls return the first result.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		defer func() {
			s.loading.Store(false)
			close(s.ready)
		}()
		s.initErr = s.rehydrate(ctx)
	})
	return s.initErr
}

type persisted struct {
	token        string
	user         models.User
	transactions []models.Transaction
	cart         []models.CartItem
}

func (s *Store) rehydrate(ctx context.Context) error {
	state, err := s.readPersisted(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionCorrupted) || errors.Is(err, ErrSessionExpired) {
			s.logger.Warn("discarding persisted session", zap.Error(err))
			if clearErr := s.kv.Delete(ctx, storage.SessionKeys...); clearErr != nil {
				s.logger.Error("failed to clear persisted session", zap.Error(clearErr))
			}
		}
		return err
	}
	if state == nil {
		s.logger.Debug("no persisted session")
		return nil
	}

	s.mu.Lock()
	s.session = &models.Session{User: state.user, Token: state.token}
	s.transactions = state.transactions
	s.cart = dedupeCart(state.cart)
	s.sessionChangedLocked()
	s.mu.Unlock()

	s.logger.Info("session restored",
		zap.String("user_id", state.user.ID.String()),
		zap.Int("cart_items", len(state.cart)),
		zap.Int("transactions", len(state.transactions)),
	)
	return nil
}

// readPersisted returns nil state when there is no usable session.
func (s *Store) readPersisted(ctx context.Context) (*persisted, error) {
	rawToken, hasToken, err := s.get(ctx, storage.KeyToken)
	if err != nil {
		return nil, err
	}
	rawUser, hasUser, err := s.get(ctx, storage.KeyUser)
	if err != nil {
		return nil, err
	}

	token, tokenRes := storage.DecodeToken(rawToken, hasToken)
	var user models.User
	userRes, decodeErr := storage.DecodeRecord(rawUser, hasUser, &user)

	if tokenRes == storage.Corrupt {
		return nil, fmt.Errorf("%w: token", ErrSessionCorrupted)
	}
	if userRes == storage.Corrupt {
		return nil, fmt.Errorf("%w: user: %v", ErrSessionCorrupted, decodeErr)
	}
	if hasUser && userRes == storage.Absent {
		// placeholder value left by an older client
		if err := s.kv.Delete(ctx, storage.KeyUser); err != nil {
			s.logger.Warn("failed to drop empty user record", zap.Error(err))
		}
	}
	if tokenRes == storage.Absent || userRes == storage.Absent {
		return nil, nil
	}

	if tokenExpired(token, s.now()) {
		return nil, ErrSessionExpired
	}

	state := &persisted{token: token, user: user}
	if err := s.readList(ctx, storage.KeyTransactions, &state.transactions); err != nil {
		return nil, err
	}
	if err := s.readList(ctx, storage.KeyCart, &state.cart); err != nil {
		return nil, err
	}
	if state.transactions == nil {
		state.transactions = []models.Transaction{}
	}
	return state, nil
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrCorrupt) {
		return "", false, fmt.Errorf("%w: %v", ErrSessionCorrupted, err)
	}
	if err != nil {
		return "", false, fmt.Errorf("store: read %s: %w", key, err)
	}
	return raw, ok, nil
}

func (s *Store) readList(ctx context.Context, key string, out interface{}) error {
	raw, ok, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	res, decodeErr := storage.DecodeRecord(raw, ok, out)
	if res == storage.Corrupt {
		return fmt.Errorf("%w: %s: %v", ErrSessionCorrupted, key, decodeErr)
	}
	return nil
}

// tokenExpired only understands JWTs; opaque tokens never expire client-side.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

// Login sets the session after the caller authenticated against the API, and makes
// it the durable source for the next Initialize.
func (s *Store) Login(ctx context.Context, user models.User, token string) error {
	if token == "" {
		return ErrMissingToken
	}

	userRecord, err := storage.EncodeRecord(user)
	if err != nil {
		return fmt.Errorf("store: encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.User.ID != user.ID {
		s.cart = nil
		s.transactions = []models.Transaction{}
		if err := s.kv.Delete(ctx, storage.KeyCart, storage.KeyTransactions); err != nil {
			s.logger.Warn("failed to drop previous user's cart", zap.Error(err))
		}
	}
	if s.transactions == nil {
		s.transactions = []models.Transaction{}
	}
	s.session = &models.Session{User: user, Token: token}
	s.sessionChangedLocked()

	if err := s.kv.Set(ctx, storage.KeyToken, token); err != nil {
		return fmt.Errorf("store: persist token: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyUser, userRecord); err != nil {
		return fmt.Errorf("store: persist user: %w", err)
	}

	s.logger.Info("logged in", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return nil
}

// Logout tells the API the session ended and clears everything locally. The remote
// call is best-effort: its error is returned, but local state is cleared regardless.
func (s *Store) Logout(ctx context.Context) error {
	token, hasSession := s.Token()

	var remoteErr error
	if hasSession && s.api != nil {
		if err := s.api.Logout(ctx, token); err != nil {
			remoteErr = remoteError("store: logout", err)
			s.logger.Warn("remote logout failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.session = nil
	s.cart = nil
	s.transactions = nil
	s.sessionChangedLocked()
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, storage.SessionKeys...); err != nil {
		s.logger.Error("failed to clear persisted session", zap.Error(err))
		if remoteErr == nil {
			return fmt.Errorf("store: clear session: %w", err)
		}
	}
	if hasSession {
		s.logger.Info("logged out")
	}
	return remoteErr
}

// persistLocked writes the cart and transactions. Caller holds s.mu. Failures are
// logged: the in-memory state stays authoritative.
func (s *Store) persistLocked(ctx context.Context, keys ...string) {
	for _, key := range keys {
		var value interface{}
		switch key {
		case storage.KeyCart:
			value = s.cart
		case storage.KeyTransactions:
			value = s.transactions
		default:
			continue
		}
		record, err := storage.EncodeRecord(value)
		if err == nil {
			err = s.kv.Set(ctx, key, record)
		}
		if err != nil {
			s.logger.Warn("failed to persist", zap.String("key", key), zap.Error(err))
		}
	}
}
