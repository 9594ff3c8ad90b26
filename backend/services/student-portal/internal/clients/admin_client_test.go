package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tuitionpay/backend/services/student-portal/internal/models"
)

func TestAdminValidationStopsRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	client := NewAdminClient(srv.URL, NewDefaultHTTPClient(time.Second))
	err := client.CreateBilling(context.Background(), "tok", BillingInput{
		Amount:      250000,
		Description: "Iuran Kegiatan",
		Month:       13,
		Year:        2024,
		DebtID:      "2",
		UserID:      "7",
		Status:      "unpaid",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if err := client.CreateDebt(context.Background(), "tok", DebtInput{Name: "SPP"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("invalid input reached the API %d times", hits)
	}
}

func TestAdminUpdateUsesMethodOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/debts/3" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("_method") != http.MethodPut || r.PostForm.Get("name") != "SPP" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"status":true,"message":"updated"}`))
	}))
	defer srv.Close()

	client := NewAdminClient(srv.URL, NewDefaultHTTPClient(time.Second))
	if err := client.UpdateDebt(context.Background(), "tok", "3", DebtInput{Name: "SPP", Description: "Semester fee"}); err != nil {
		t.Fatalf("UpdateDebt: %v", err)
	}
}

func TestAdminListsUnwrapData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/debts":
			_, _ = w.Write([]byte(`{"data":{"debts":[{"id":1,"name":"SPP"},{"id":2,"name":"Non-SPP"}]}}`))
		case "/v1/superadmin/role/user":
			_, _ = w.Write([]byte(`{"data":{"users":[{"id":7,"name":"Budi","email":"b@k.id","role":"student"}]}}`))
		case "/v1/billings":
			_, _ = w.Write([]byte(`{"data":[{"id":1,"description":"SPP","amount":10}]}`))
		}
	}))
	defer srv.Close()

	client := NewAdminClient(srv.URL, NewDefaultHTTPClient(time.Second))
	ctx := context.Background()

	debts, err := client.ListDebts(ctx, "tok")
	if err != nil || len(debts) != 2 || debts[1].Name != "Non-SPP" {
		t.Fatalf("debts = %+v, %v", debts, err)
	}
	users, err := client.ListUsers(ctx, "tok")
	if err != nil || len(users) != 1 || users[0].ID != "7" {
		t.Fatalf("users = %+v, %v", users, err)
	}
	billings, err := client.ListBillings(ctx, "tok")
	if err != nil || len(billings) != 1 {
		t.Fatalf("billings = %+v, %v", billings, err)
	}
}

func TestFilterBillings(t *testing.T) {
	list := []models.Billing{
		{ID: "1", Description: "SPP Semester Ganjil", DebtID: "1", UserID: "7", Status: "unpaid"},
		{ID: "2", Description: "SPP Semester Genap", DebtID: "1", UserID: "8", Status: "paid"},
		{ID: "3", Description: "Iuran Kegiatan", DebtID: "2", UserID: "7", Status: "unpaid"},
	}
	tests := []struct {
		name   string
		filter BillingFilter
		want   []models.ID
	}{
		{"no filter", BillingFilter{}, []models.ID{"1", "2", "3"}},
		{"search is case insensitive", BillingFilter{Search: "spp"}, []models.ID{"1", "2"}},
		{"debt and user", BillingFilter{DebtID: "1", UserID: "7"}, []models.ID{"1"}},
		{"status", BillingFilter{Status: "paid"}, []models.ID{"2"}},
		{"nothing matches", BillingFilter{Search: "denda"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterBillings(list, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d billings, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Fatalf("got[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}
