package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/clients/clienttest"
	"tuitionpay/backend/services/student-portal/internal/config"
	"tuitionpay/backend/services/student-portal/internal/models"
)

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	return port
}

func TestServeRestoresSessionAndStops(t *testing.T) {
	api := clienttest.NewFakeAPI(t)
	api.AddUser(models.User{ID: "7", Email: "budi@kampus.ac.id", Role: models.RoleStudent}, "rahasia", "7|budi")

	cfg := config.Default()
	cfg.API.BaseURL = api.URL()
	cfg.Storage.Driver = config.DriverFile
	cfg.Storage.File.Dir = t.TempDir()
	cfg.Storage.File.Passphrase = "kunci"
	cfg.HTTP.Port = freePort(t)

	first, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := first.Service().Login(context.Background(), "budi@kampus.ac.id", "rahasia"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	first.Close()

	second, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer second.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- second.Serve(ctx) }()

	url := "http://127.0.0.1:" + cfg.HTTP.Port + "/api/session"
	deadline := time.Now().Add(2 * time.Second)
	var status int
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			status = resp.StatusCode
			resp.Body.Close()
			if status == http.StatusOK {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	if status != http.StatusOK {
		t.Fatalf("session endpoint status = %d", status)
	}
	if _, ok := second.Service().Store().Session(); !ok {
		t.Fatal("session not restored by serve")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.API.BaseURL = "http://localhost"
	cfg.Storage.Driver = "sqlite"
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestServeSubscribesAfterLogin(t *testing.T) {
	api := clienttest.NewFakeAPI(t)
	api.AddUser(models.User{ID: "7", Email: "budi@kampus.ac.id", Role: models.RoleStudent}, "rahasia", "7|budi")

	upgrader := websocket.Upgrader{}
	headers := make(chan string, 8)
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer relay.Close()

	cfg := config.Default()
	cfg.API.BaseURL = api.URL()
	cfg.Storage.Driver = config.DriverMemory
	cfg.HTTP.Port = freePort(t)
	cfg.Notify.URL = "ws" + strings.TrimPrefix(relay.URL, "http")
	cfg.Notify.BackoffSeconds = 60

	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	select {
	case <-a.Service().Store().Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("store never became ready")
	}
	select {
	case h := <-headers:
		t.Fatalf("relay dialed before login, authorization = %q", h)
	case <-time.After(100 * time.Millisecond):
	}

	if _, err := a.Service().Login(context.Background(), "budi@kampus.ac.id", "rahasia"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	select {
	case h := <-headers:
		if h != "Bearer 7|budi" {
			t.Fatalf("authorization = %q", h)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay not dialed after login")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
