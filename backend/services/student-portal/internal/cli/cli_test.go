package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tuitionpay/backend/services/student-portal/internal/clients/clienttest"
	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/storage"
)

type harness struct {
	api    *clienttest.FakeAPI
	config string
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := clienttest.NewFakeAPI(t)
	api.AddUser(models.User{ID: "7", Name: "Budi Santoso", Email: "budi@kampus.ac.id", Role: models.RoleStudent}, "rahasia", "7|budi")
	api.AddUser(models.User{ID: "1", Name: "Keuangan", Email: "keuangan@kampus.ac.id", Role: models.RoleSuperadmin}, "admin123", "1|admin")
	api.AddBilling(models.Billing{ID: "B1", UserID: "7", Description: "SPP Semester Ganjil", Amount: 3500000, Month: 8, Year: 2024, DebtID: "1", Status: models.BillingUnpaid})
	api.AddBilling(models.Billing{ID: "B2", UserID: "7", Description: "Iuran Kegiatan", Amount: 250000, Month: 8, Year: 2024, DebtID: "2", Status: models.BillingUnpaid})
	api.AddDebt(models.DebtCategory{ID: "1", Name: "SPP", Description: "Sumbangan Pembinaan Pendidikan"})

	dir := t.TempDir()
	cfg := filepath.Join(dir, "portal.yaml")
	body := fmt.Sprintf("api:\n  baseUrl: %s\nstorage:\n  driver: file\n  file:\n    dir: %s\n", api.URL(), filepath.Join(dir, "state"))
	if err := os.WriteFile(cfg, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &harness{api: api, config: cfg, dir: dir}
}

func (h *harness) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", h.config, "--log-level", "error"}, args...)
	code := Run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	code, out, errOut := h.run(t, args...)
	if code != 0 {
		t.Fatalf("%v exited %d\nstdout: %s\nstderr: %s", args, code, out, errOut)
	}
	return out
}

func TestSessionSurvivesInvocations(t *testing.T) {
	h := newHarness(t)

	if out := h.mustRun(t, "whoami"); !strings.Contains(out, "not logged in") {
		t.Fatalf("whoami = %q", out)
	}
	out := h.mustRun(t, "login", "--email", "budi@kampus.ac.id", "--password", "rahasia")
	if !strings.Contains(out, "Budi Santoso") {
		t.Fatalf("login = %q", out)
	}
	if out := h.mustRun(t, "whoami"); !strings.Contains(out, "budi@kampus.ac.id") {
		t.Fatalf("whoami after login = %q", out)
	}

	out = h.mustRun(t, "billings")
	if !strings.Contains(out, "Rp3.500.000") || !strings.Contains(out, "B2") {
		t.Fatalf("billings = %q", out)
	}

	h.mustRun(t, "cart", "add", "B1", "B2")
	code, _, errOut := h.run(t, "cart", "add", "B1")
	if code != 1 || !strings.Contains(errOut, "already in the cart") {
		t.Fatalf("duplicate add = %d %q", code, errOut)
	}
	if out := h.mustRun(t, "cart"); !strings.Contains(out, "Rp3.750.000") {
		t.Fatalf("cart = %q", out)
	}

	out = h.mustRun(t, "checkout")
	if !strings.Contains(out, "payment started for B1") || !strings.Contains(out, "https://") {
		t.Fatalf("checkout = %q", out)
	}
	if out := h.mustRun(t, "cart"); !strings.Contains(out, "cart is empty") {
		t.Fatalf("cart after checkout = %q", out)
	}
	if out := h.mustRun(t, "status", "B1"); !strings.Contains(out, "not paid yet") {
		t.Fatalf("status = %q", out)
	}
	h.api.SetStatus("B1", "settlement")
	if out := h.mustRun(t, "status", "B1"); !strings.Contains(out, "B1: paid") {
		t.Fatalf("status = %q", out)
	}
	if out := h.mustRun(t, "transactions"); !strings.Contains(out, "Paid") || !strings.Contains(out, "ORDER-B1") {
		t.Fatalf("transactions = %q", out)
	}

	h.mustRun(t, "logout")
	if out := h.mustRun(t, "whoami"); !strings.Contains(out, "not logged in") {
		t.Fatalf("whoami after logout = %q", out)
	}
}

func TestProfilesAreIsolated(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "--profile", "tab-1", "login", "--email", "budi@kampus.ac.id", "--password", "rahasia")

	if out := h.mustRun(t, "--profile", "tab-2", "whoami"); !strings.Contains(out, "not logged in") {
		t.Fatalf("tab-2 = %q", out)
	}
	if out := h.mustRun(t, "--profile", "tab-1", "whoami"); !strings.Contains(out, "Budi") {
		t.Fatalf("tab-1 = %q", out)
	}
}

func TestCorruptedSessionIsReportedAndCleared(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "login", "--email", "budi@kampus.ac.id", "--password", "rahasia")

	path := filepath.Join(h.dir, "state", "default.json")
	doc := `{"format":"student-portal/v1","entries":{"api_token":"abc","current_user":"{not valid json"}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	code, out, errOut := h.run(t, "whoami")
	if code != 0 || !strings.Contains(errOut, "unreadable") || !strings.Contains(out, "not logged in") {
		t.Fatalf("whoami = %d %q %q", code, out, errOut)
	}
	if out := h.mustRun(t, "whoami"); !strings.Contains(out, "not logged in") {
		t.Fatalf("second whoami = %q", out)
	}
}

func TestLogoutClearsOrphanedToken(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "whoami")

	// a token without a usable user restores no session but stays on disk
	path := filepath.Join(h.dir, "state", "default.json")
	doc := `{"format":"student-portal/v1","entries":{"api_token":"7|budi","current_user":"undefined"}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if out := h.mustRun(t, "logout"); !strings.Contains(out, "not logged in") {
		t.Fatalf("logout = %q", out)
	}
	if h.api.Logouts() != 0 {
		t.Fatalf("remote logout called %d times without a session", h.api.Logouts())
	}

	kv, err := storage.NewFileKV(filepath.Join(h.dir, "state"), "default", nil)
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	for _, key := range storage.SessionKeys {
		if _, ok, err := kv.Get(context.Background(), key); err != nil || ok {
			t.Fatalf("%s still stored (err %v)", key, err)
		}
	}
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "login", "--email", "budi@kampus.ac.id", "--password", "rahasia")
	code, _, errOut := h.run(t, "admin", "users")
	if code != 1 || !strings.Contains(errOut, "superadmin") {
		t.Fatalf("student admin = %d %q", code, errOut)
	}

	h.mustRun(t, "login", "--email", "keuangan@kampus.ac.id", "--password", "admin123")
	if out := h.mustRun(t, "admin", "debts"); !strings.Contains(out, "Sumbangan") {
		t.Fatalf("debts = %q", out)
	}
	if out := h.mustRun(t, "admin", "billings", "--search", "iuran"); !strings.Contains(out, "B2") || strings.Contains(out, "B1") {
		t.Fatalf("billings = %q", out)
	}
	code, _, errOut = h.run(t, "admin", "billing-create", "--amount", "0")
	if code != 1 || !strings.Contains(errOut, "invalid input") {
		t.Fatalf("invalid billing = %d %q", code, errOut)
	}
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	if code, _, _ := h.run(t); code != 2 {
		t.Fatalf("no command exit = %d", code)
	}
	if code, _, errOut := h.run(t, "fly"); code != 2 || !strings.Contains(errOut, "unknown command") {
		t.Fatalf("unknown command = %d %q", code, errOut)
	}
	if code, _, _ := h.run(t, "login"); code != 2 {
		t.Fatalf("login without email exit = %d", code)
	}
}

func TestLoginPromptsForPassword(t *testing.T) {
	h := newHarness(t)
	prev := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("rahasia"), nil }
	t.Cleanup(func() { readPassword = prev })
	t.Setenv("PORTAL_PASSWORD", "")

	if out := h.mustRun(t, "--ephemeral", "login", "--email", "budi@kampus.ac.id"); !strings.Contains(out, "Budi") {
		t.Fatalf("login = %q", out)
	}

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	if code, _, errOut := h.run(t, "--ephemeral", "login", "--email", "budi@kampus.ac.id"); code != 1 || !strings.Contains(errOut, "read password") {
		t.Fatalf("failed prompt = %d %q", code, errOut)
	}
}

func TestFormatRupiah(t *testing.T) {
	tests := map[int64]string{
		0:        "Rp0",
		999:      "Rp999",
		1000:     "Rp1.000",
		250000:   "Rp250.000",
		3500000:  "Rp3.500.000",
		-1234567: "-Rp1.234.567",
	}
	for in, want := range tests {
		if got := formatRupiah(in); got != want {
			t.Errorf("formatRupiah(%d) = %q, want %q", in, got, want)
		}
	}
}
