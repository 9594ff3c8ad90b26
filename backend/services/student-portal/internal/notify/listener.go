package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/store"
)

const (
	defaultBackoff = 5 * time.Second
	readTimeout    = 90 * time.Second
	readLimit      = 64 * 1024
)

// Applier receives decoded payment notifications.
type Applier interface {
	ApplyPaymentNotification(ctx context.Context, n store.Notification) bool
}

// Source supplies the session the subscription authenticates as.
type Source interface {
	Applier
	Token() (string, bool)
	SessionChanged() <-chan struct{}
}

var errSessionChanged = errors.New("session changed")

// Listener keeps a websocket subscription to a payment relay open for the current
// session and feeds every frame to the store. It resubscribes on login and logout.
type Listener struct {
	url     string
	source  Source
	dialer  *websocket.Dialer
	backoff time.Duration
	logger  *zap.Logger
}

// NewListener builds a listener. An empty url yields a listener whose Run returns at once.
func NewListener(url string, source Source, backoff time.Duration, logger *zap.Logger) *Listener {
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Listener{
		url:    strings.TrimSpace(url),
		source: source,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		backoff: backoff,
		logger:  logger,
	}
}

// Enabled reports whether a relay url is configured.
func (l *Listener) Enabled() bool {
	return l.url != ""
}

// Run connects and reconnects until ctx is done. Without a session it waits for
// the next login.
func (l *Listener) Run(ctx context.Context) error {
	if !l.Enabled() {
		l.logger.Debug("payment notifications disabled")
		return nil
	}

	for {
		changed := l.source.SessionChanged()
		token, ok := l.source.Token()
		if !ok {
			l.logger.Debug("waiting for a session")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
				continue
			}
		}

		err := l.session(ctx, token, changed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errSessionChanged) {
			l.logger.Info("session changed, resubscribing")
			continue
		}
		l.logger.Warn("notification stream dropped", zap.String("url", l.url), zap.Error(err))

		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-changed:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (l *Listener) session(ctx context.Context, token string, changed <-chan struct{}) error {
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-changed:
			cancel()
		case <-sessCtx.Done():
		}
	}()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := l.dialer.DialContext(sessCtx, l.url, header)
	if err != nil {
		if ctx.Err() == nil && sessCtx.Err() != nil {
			return errSessionChanged
		}
		return err
	}
	defer conn.Close()
	l.logger.Info("notification stream connected", zap.String("url", l.url))

	// unblock ReadMessage when the session or ctx ends
	stop := context.AfterFunc(sessCtx, func() { _ = conn.Close() })
	defer stop()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && sessCtx.Err() != nil {
				return errSessionChanged
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("relay closed the stream")
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		l.handle(ctx, message)
	}
}

func (l *Listener) handle(ctx context.Context, message []byte) {
	var n store.Notification
	if err := json.Unmarshal(message, &n); err != nil {
		l.logger.Warn("ignoring malformed notification", zap.Error(err))
		return
	}
	if n.TransactionStatus == "" || (n.BillingID == "" && n.OrderID == "") {
		l.logger.Debug("ignoring notification without target", zap.ByteString("frame", message))
		return
	}
	applied := l.source.ApplyPaymentNotification(ctx, n)
	l.logger.Debug("notification received",
		zap.String("billing_id", n.BillingID),
		zap.String("order_id", n.OrderID),
		zap.String("status", n.TransactionStatus),
		zap.Bool("applied", applied),
	)
}
