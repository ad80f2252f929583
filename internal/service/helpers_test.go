package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"pindrop/pin-api/internal/billing"
	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/pinerr"
	"pindrop/pin-api/internal/quota"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.UnixMilli(1_756_684_800_000)

// newTestDB opens a per-test in-memory database with the production
// schema. cache=shared keeps the database alive across the pool's
// connections for the test's duration.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Pin{}, &model.ReclaimLog{}))

	return db
}

// fakeStorage is an in-memory ObjectStorage. Metadata records exist for
// exactly the keys in objects; Delete can be rigged to fail per key.
type fakeStorage struct {
	mu sync.Mutex

	objects    map[string]model.FileMetadata
	deleted    []string
	failDelete map[string]error

	// metadata lookups to fail with not-found before the record appears,
	// keyed by object key
	pendingReads map[string]int

	getCalls int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:      map[string]model.FileMetadata{},
		failDelete:   map[string]error{},
		pendingReads: map[string]int{},
	}
}

func (f *fakeStorage) put(key string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = model.FileMetadata{ContentType: "application/octet-stream", Size: size}
}

func (f *fakeStorage) IssueUploadTarget(ctx context.Context, key string) (string, error) {
	return "https://storage.test/upload/" + key, nil
}

func (f *fakeStorage) SyncMetadata(ctx context.Context, key string) error {
	return nil
}

func (f *fakeStorage) GetMetadata(ctx context.Context, key string) (model.FileMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++

	if n := f.pendingReads[key]; n > 0 {
		f.pendingReads[key] = n - 1
		return model.FileMetadata{}, pinerr.New(pinerr.CodeNotFound, "metadata not materialized for "+key)
	}

	meta, ok := f.objects[key]
	if !ok {
		return model.FileMetadata{}, pinerr.New(pinerr.CodeNotFound, "no such object "+key)
	}

	return meta, nil
}

func (f *fakeStorage) AccessURL(ctx context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (f *fakeStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.put(key, size)
	return nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failDelete[key]; err != nil {
		return err
	}

	delete(f.objects, key)
	f.deleted = append(f.deleted, key)

	return nil
}

// fakeBilling returns the same subscription for every user.
type fakeBilling struct {
	sub *billing.Subscription
	err error
}

func (f fakeBilling) GetSubscription(ctx context.Context, userID string) (*billing.Subscription, error) {
	return f.sub, f.err
}

func newTestService(t *testing.T, st ObjectStorage, b billing.Provider) *PinService {
	t.Helper()

	if b == nil {
		b = billing.Disabled{}
	}

	s := NewPinService(newTestDB(t), st, b, quota.DefaultTable())
	s.Now = func() time.Time { return testNow }
	s.Enforcer.Now = s.Now

	return s
}

func seedUser(t *testing.T, db *gorm.DB, u model.User) {
	t.Helper()

	if u.Email == "" {
		u.Email = u.ID + "@example.com"
	}

	require.NoError(t, db.Create(&u).Error)
}
