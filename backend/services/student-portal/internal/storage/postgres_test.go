package storage

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresKVRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	kv := NewPostgresKV(db, "default")
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS client_state")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO client_state")).
		WithArgs("default", KeyToken, "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).
		WithArgs("default", KeyToken).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("abc"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).
		WithArgs("default", KeyCart).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM client_state WHERE profile = $1 AND key IN ($2, $3)")).
		WithArgs("default", KeyToken, KeyUser).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := kv.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := kv.Set(ctx, KeyToken, "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := kv.Get(ctx, KeyToken); err != nil || !ok || v != "abc" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if _, ok, err := kv.Get(ctx, KeyCart); err != nil || ok {
		t.Fatalf("Get missing = %v, %v", ok, err)
	}
	if err := kv.Delete(ctx, KeyToken, KeyUser); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
