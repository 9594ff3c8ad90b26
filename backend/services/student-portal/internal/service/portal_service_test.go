package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/clients"
	"tuitionpay/backend/services/student-portal/internal/clients/clienttest"
	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/storage"
	"tuitionpay/backend/services/student-portal/internal/store"
)

var (
	budi  = models.User{ID: "7", Name: "Budi Santoso", Email: "budi@kampus.ac.id", Role: models.RoleStudent}
	admin = models.User{ID: "1", Name: "Bagian Keuangan", Email: "keuangan@kampus.ac.id", Role: models.RoleSuperadmin}
)

func newPortal(t *testing.T) (*PortalService, *clienttest.FakeAPI) {
	t.Helper()
	api := clienttest.NewFakeAPI(t)
	api.AddUser(budi, "rahasia", "7|budi")
	api.AddUser(admin, "admin123", "1|admin")
	api.AddBilling(models.Billing{ID: "B1", UserID: "7", Description: "SPP Semester Ganjil", Amount: 3500000, Month: 8, Year: 2024, DebtID: "1", Status: models.BillingUnpaid})
	api.AddBilling(models.Billing{ID: "B2", UserID: "7", Description: "Iuran Kegiatan", Amount: 250000, Month: 8, Year: 2024, DebtID: "2", Status: models.BillingUnpaid})
	api.AddBilling(models.Billing{ID: "B0", UserID: "7", Description: "SPP Semester Genap", Amount: 3500000, Month: 2, Year: 2024, DebtID: "1", Status: models.BillingPaid})
	api.AddBilling(models.Billing{ID: "B9", UserID: "8", Description: "SPP Semester Ganjil", Amount: 3500000, Month: 8, Year: 2024, DebtID: "1", Status: models.BillingUnpaid})
	api.AddDebt(models.DebtCategory{ID: "1", Name: "SPP", Description: "Sumbangan Pembinaan Pendidikan"})

	httpClient := clients.NewDefaultHTTPClient(2 * time.Second)
	st := store.New(storage.NewMemoryKV(), clients.NewPaymentClient(api.URL(), httpClient), zap.NewNop())
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	svc := NewPortalService(st,
		clients.NewPaymentClient(api.URL(), httpClient),
		clients.NewAdminClient(api.URL(), httpClient),
		10*time.Millisecond,
		zap.NewNop(),
	)
	return svc, api
}

func TestLoginAndBillings(t *testing.T) {
	svc, _ := newPortal(t)
	ctx := context.Background()

	if _, err := svc.Billings(ctx); !errors.Is(err, store.ErrNoSession) {
		t.Fatalf("billings before login err = %v", err)
	}
	if _, err := svc.Login(ctx, "budi@kampus.ac.id", "salah"); err == nil {
		t.Fatal("login with wrong password succeeded")
	} else {
		var apiErr *clients.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
			t.Fatalf("err = %v, want 401 APIError", err)
		}
	}
	if _, err := svc.Login(ctx, " ", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	session, err := svc.Login(ctx, " Budi@Kampus.ac.id ", "rahasia")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Token != "7|budi" || session.User.ID != "7" {
		t.Fatalf("session = %+v", session)
	}

	list, err := svc.Billings(ctx)
	if err != nil {
		t.Fatalf("Billings: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("billings = %+v", list)
	}
}

func TestRegisterOpensSession(t *testing.T) {
	svc, _ := newPortal(t)
	session, err := svc.Register(context.Background(), "Sari", "sari@kampus.ac.id", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.User.Email != "sari@kampus.ac.id" || session.Token == "" {
		t.Fatalf("session = %+v", session)
	}
	if _, err := svc.Register(context.Background(), "", "x@y.z", "pw"); !errors.Is(err, ErrNameRequired) {
		t.Fatal("register without name succeeded")
	}
}

func TestCartFlowAndCheckout(t *testing.T) {
	svc, api := newPortal(t)
	ctx := context.Background()
	if _, err := svc.Login(ctx, "budi@kampus.ac.id", "rahasia"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.AddToCart(ctx, "B1"); err != nil {
		t.Fatalf("add B1: %v", err)
	}
	if err := svc.AddToCart(ctx, "B2"); err != nil {
		t.Fatalf("add B2: %v", err)
	}
	if err := svc.AddToCart(ctx, "B0"); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("add paid err = %v", err)
	}
	if err := svc.AddToCart(ctx, "B9"); !errors.Is(err, ErrBillingNotFound) {
		t.Fatalf("add foreign billing err = %v", err)
	}
	if total := svc.Store().CartTotal(); total != 3750000 {
		t.Fatalf("total = %d", total)
	}

	res, err := svc.Checkout(ctx, nil)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if got := api.Checkouts(); len(got) != 1 || got[0] != "B1" {
		t.Fatalf("checkouts = %v", got)
	}
	if res.Transaction.Status != models.TransactionInitiated || res.OrderID == "" {
		t.Fatalf("result = %+v", res)
	}
	if len(svc.Store().Cart()) != 0 {
		t.Fatal("cart not cleared")
	}

	api.SetStatus("B1", "settlement")
	paid, err := svc.CheckPaymentStatus(ctx, "B1")
	if err != nil || !paid {
		t.Fatalf("status = %v, %v", paid, err)
	}
	if svc.Store().Transactions()[0].Status != models.TransactionPaid {
		t.Fatalf("transaction = %+v", svc.Store().Transactions()[0])
	}
}

func TestCheckoutSelectedBillingOutsideCart(t *testing.T) {
	svc, api := newPortal(t)
	ctx := context.Background()
	_, _ = svc.Login(ctx, "budi@kampus.ac.id", "rahasia")

	if _, err := svc.Checkout(ctx, []string{"B2"}); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if got := api.Checkouts(); len(got) != 1 || got[0] != "B2" {
		t.Fatalf("checkouts = %v", got)
	}
	if _, err := svc.Checkout(ctx, []string{"B0"}); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("paid checkout err = %v", err)
	}
	if _, err := svc.Checkout(ctx, nil); !errors.Is(err, store.ErrEmptyCart) {
		t.Fatalf("empty cart err = %v", err)
	}
}

func TestWatchPayment(t *testing.T) {
	svc, api := newPortal(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = svc.Login(ctx, "budi@kampus.ac.id", "rahasia")

	go func() {
		time.Sleep(30 * time.Millisecond)
		api.SetStatus("B1", "settlement")
	}()
	if err := svc.WatchPayment(ctx, "B1"); err != nil {
		t.Fatalf("WatchPayment: %v", err)
	}
}

func TestLogoutCallsAPI(t *testing.T) {
	svc, api := newPortal(t)
	ctx := context.Background()
	_, _ = svc.Login(ctx, "budi@kampus.ac.id", "rahasia")
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if api.Logouts() != 1 {
		t.Fatalf("logout calls = %d", api.Logouts())
	}
	if _, ok := svc.Store().Session(); ok {
		t.Fatal("session survived logout")
	}
}

func TestConnectionErrorsMapToErrConnection(t *testing.T) {
	svc, api := newPortal(t)
	ctx := context.Background()
	_, _ = svc.Login(ctx, "budi@kampus.ac.id", "rahasia")
	api.Server.Close()

	if _, err := svc.Billings(ctx); !errors.Is(err, store.ErrConnection) {
		t.Fatalf("err = %v, want ErrConnection", err)
	}
}
