package store

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/xdido2/finance-tracker-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.BillCategory{}, &models.Bill{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeBlob records deletes and can be told to fail for specific keys.
type fakeBlob struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]bool
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{failOn: map[string]bool{}}
}

func (f *fakeBlob) Upload(_ context.Context, key, _ string, _ io.Reader) error {
	return nil
}

func (f *fakeBlob) PresignGet(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (f *fakeBlob) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[key] {
		return fmt.Errorf("delete %s: simulated failure", key)
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlob) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func strptr(s string) *string { return &s }
