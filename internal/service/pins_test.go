package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pindrop/pin-api/internal/billing"
	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/pinerr"
	"pindrop/pin-api/internal/quota"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const mb = 1 << 20

func TestCreatePinTextRoundTrip(t *testing.T) {
	st := newFakeStorage()
	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{ID: "u1"})

	res, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:    quota.KindText,
		Content: "hello",
	})
	require.NoError(t, err)
	require.Len(t, res.PinCode, 6)

	view, err := s.GetPinByCode(context.Background(), res.PinCode)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, "hello", view.Content)
	assert.Equal(t, string(quota.KindText), view.Kind)
	assert.Nil(t, view.ImageURLs)
	assert.Equal(t, testNow.UnixMilli(), view.CreatedAt)

	// Free tier keeps pins for one day
	assert.Equal(t, testNow.Add(24*time.Hour).UnixMilli(), view.ExpiresAt)
}

func TestCreatePinFileUpdatesCounter(t *testing.T) {
	st := newFakeStorage()
	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{ID: "u1", LastResetTime: testNow.UnixMilli()})

	_, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:     quota.KindFile,
		Content:  "https://cdn.test/f",
		FileType: "application/zip",
		FileKey:  "f",
		FileSize: 10 * mb,
	})
	require.NoError(t, err)

	var u model.User
	require.NoError(t, s.DB.Where("id = ?", "u1").First(&u).Error)
	assert.Equal(t, int64(10*mb), u.DailyUploadTotal)
	assert.Equal(t, testNow.UnixMilli(), u.LastResetTime)
}

func TestCreatePinDailyQuotaExceeded(t *testing.T) {
	st := newFakeStorage()
	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{
		ID:               "u1",
		DailyUploadTotal: 95 * mb,
		LastResetTime:    testNow.UnixMilli(),
	})

	_, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:     quota.KindFile,
		FileKey:  "f",
		FileSize: 10 * mb,
	})
	assert.True(t, pinerr.Is(err, pinerr.CodeDailyQuotaExceeded), "unexpected error: %v", err)

	// Rejection persists nothing
	var n int64
	require.NoError(t, s.DB.Model(&model.Pin{}).Count(&n).Error)
	assert.Zero(t, n)

	var u model.User
	require.NoError(t, s.DB.Where("id = ?", "u1").First(&u).Error)
	assert.Equal(t, int64(95*mb), u.DailyUploadTotal)
}

func TestCreatePinLazyRollover(t *testing.T) {
	st := newFakeStorage()
	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{
		ID:               "u1",
		DailyUploadTotal: 99 * mb,
		LastResetTime:    testNow.Add(-25 * time.Hour).UnixMilli(),
	})

	_, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:     quota.KindFile,
		FileKey:  "f",
		FileSize: 50 * mb,
	})
	require.NoError(t, err)

	var u model.User
	require.NoError(t, s.DB.Where("id = ?", "u1").First(&u).Error)
	assert.Equal(t, int64(50*mb), u.DailyUploadTotal)
	assert.Equal(t, testNow.UnixMilli(), u.LastResetTime)
}

func TestCreatePinSizesImageRefsFromStorage(t *testing.T) {
	st := newFakeStorage()
	st.put("img-1", 30*mb)
	st.put("img-2", 40*mb)

	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{
		ID:               "u1",
		DailyUploadTotal: 50 * mb,
		LastResetTime:    testNow.UnixMilli(),
	})

	// 50 + 30 + 40 = 120MB, over the free daily cap
	_, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:      quota.KindImage,
		ImageRefs: []string{"img-1", "img-2"},
	})
	assert.True(t, pinerr.Is(err, pinerr.CodeDailyQuotaExceeded), "unexpected error: %v", err)

	// A ref with no metadata record counts as zero instead of failing
	st2 := newFakeStorage()
	s2 := newTestService(t, st2, nil)
	seedUser(t, s2.DB, model.User{ID: "u1", LastResetTime: testNow.UnixMilli()})

	_, err = s2.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:      quota.KindImage,
		ImageRefs: []string{"ghost"},
	})
	assert.NoError(t, err)
}

func TestCreatePinMixedContent(t *testing.T) {
	st := newFakeStorage()
	st.put("img-1", mb)
	st.put("img-2", mb)

	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{ID: "u1", LastResetTime: testNow.UnixMilli()})

	res, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:      quota.KindMixed,
		Content:   "caption",
		ImageRefs: []string{"img-1", "img-2"},
	})
	require.NoError(t, err)

	view, err := s.GetPinByCode(context.Background(), res.PinCode)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, "caption", view.TextContent)
	assert.JSONEq(t, `{"text":"caption","imageCount":2}`, view.Content)

	require.Len(t, view.ImageURLs, 2)
	require.NotNil(t, view.ImageURLs[0])
	assert.Equal(t, "https://cdn.test/img-1", *view.ImageURLs[0])
}

func TestCreatePinSubscriptionRequired(t *testing.T) {
	st := newFakeStorage()
	s := newTestService(t, st, nil) // billing disabled, no subscription
	seedUser(t, s.DB, model.User{ID: "u1", Plan: "pro"})

	_, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:    quota.KindText,
		Content: "hello",
	})
	assert.True(t, pinerr.Is(err, pinerr.CodeSubscriptionRequired), "unexpected error: %v", err)
}

func TestCreatePinSubscribedProTier(t *testing.T) {
	st := newFakeStorage()
	s := newTestService(t, st, fakeBilling{
		sub: &billing.Subscription{PlanKey: "pro", Status: billing.StatusActive},
	})
	seedUser(t, s.DB, model.User{ID: "u1", Plan: "pro", LastResetTime: testNow.UnixMilli()})

	res, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:     quota.KindFile,
		FileKey:  "big",
		FileSize: 500 * mb, // over the free cap, fine on pro
	})
	require.NoError(t, err)

	view, err := s.GetPinByCode(context.Background(), res.PinCode)
	require.NoError(t, err)
	require.NotNil(t, view)

	// Pro tier keeps pins for seven days
	assert.Equal(t, testNow.Add(7*24*time.Hour).UnixMilli(), view.ExpiresAt)
}

func TestCreatePinUnknownUser(t *testing.T) {
	s := newTestService(t, newFakeStorage(), nil)

	_, err := s.CreatePin(context.Background(), "nobody", CreatePinInput{
		Kind:    quota.KindText,
		Content: "hello",
	})
	assert.True(t, pinerr.Is(err, pinerr.CodeNotFound), "unexpected error: %v", err)
}

func TestGetPinByCodeMissing(t *testing.T) {
	s := newTestService(t, newFakeStorage(), nil)

	view, err := s.GetPinByCode(context.Background(), "000000")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestListOwnedPinsNewestFirst(t *testing.T) {
	s := newTestService(t, newFakeStorage(), nil)
	seedUser(t, s.DB, model.User{ID: "u1"})
	seedUser(t, s.DB, model.User{ID: "u2"})

	for i, ts := range []int64{100, 300, 200} {
		require.NoError(t, s.DB.Create(&model.Pin{
			PinCode:   []string{"111111", "222222", "333333"}[i],
			Kind:      "text",
			OwnerID:   "u1",
			CreatedAt: ts,
			ExpiresAt: testNow.Add(time.Hour).UnixMilli(),
		}).Error)
	}
	require.NoError(t, s.DB.Create(&model.Pin{
		PinCode:   "444444",
		Kind:      "text",
		OwnerID:   "u2",
		ExpiresAt: testNow.Add(time.Hour).UnixMilli(),
	}).Error)

	views, err := s.ListOwnedPins(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "222222", views[0].PinCode)
	assert.Equal(t, "333333", views[1].PinCode)
	assert.Equal(t, "111111", views[2].PinCode)
}

func TestDeletePinRemovesObjects(t *testing.T) {
	st := newFakeStorage()
	st.put("img-1", mb)
	st.put("f-1", mb)

	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{ID: "u1"})

	pin := model.Pin{
		PinCode:   "123456",
		Kind:      string(quota.KindMixed),
		OwnerID:   "u1",
		ImageRefs: model.StringSlice{"img-1"},
		FileKey:   "f-1",
		ExpiresAt: testNow.Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, s.DB.Create(&pin).Error)

	failures, err := s.DeletePin(context.Background(), "u1", pin.ID)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.ElementsMatch(t, []string{"img-1", "f-1"}, st.deleted)

	var n int64
	require.NoError(t, s.DB.Model(&model.Pin{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeletePinPartialObjectFailure(t *testing.T) {
	st := newFakeStorage()
	st.put("img-1", mb)
	st.put("img-2", mb)
	st.put("img-3", mb)
	st.failDelete["img-2"] = errors.New("backend sneezed")

	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{ID: "u1"})

	pin := model.Pin{
		PinCode:   "123456",
		Kind:      string(quota.KindImage),
		OwnerID:   "u1",
		ImageRefs: model.StringSlice{"img-1", "img-2", "img-3"},
		ExpiresAt: testNow.Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, s.DB.Create(&pin).Error)

	failures, err := s.DeletePin(context.Background(), "u1", pin.ID)
	require.NoError(t, err)

	// The record goes away and the healthy objects with it, only the
	// failed ref is reported
	require.Len(t, failures, 1)
	assert.Equal(t, "img-2", failures[0].Ref)
	assert.Contains(t, failures[0].Reason, "sneezed")
	assert.ElementsMatch(t, []string{"img-1", "img-3"}, st.deleted)

	var n int64
	require.NoError(t, s.DB.Model(&model.Pin{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeletePinOwnership(t *testing.T) {
	s := newTestService(t, newFakeStorage(), nil)
	seedUser(t, s.DB, model.User{ID: "u1"})

	pin := model.Pin{
		PinCode:   "123456",
		Kind:      "text",
		OwnerID:   "u1",
		ExpiresAt: testNow.Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, s.DB.Create(&pin).Error)

	_, err := s.DeletePin(context.Background(), "intruder", pin.ID)
	assert.True(t, pinerr.Is(err, pinerr.CodeUnauthorized), "unexpected error: %v", err)

	var n int64
	require.NoError(t, s.DB.Model(&model.Pin{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = s.DeletePin(context.Background(), "u1", pin.ID+41)
	assert.True(t, pinerr.Is(err, pinerr.CodeNotFound), "unexpected error: %v", err)
}

func TestCreatePinRedrawsOnInsertRace(t *testing.T) {
	st := newFakeStorage()
	s := newTestService(t, st, nil)
	seedUser(t, s.DB, model.User{ID: "u1"})

	require.NoError(t, s.DB.Create(&model.Pin{
		PinCode:   "111111",
		Kind:      "text",
		OwnerID:   "u2",
		ExpiresAt: testNow.Add(time.Hour).UnixMilli(),
	}).Error)

	// Point the allocator at an empty database so its collision check
	// misses the pin above. The first insert then trips the unique index,
	// exactly like a concurrent writer claiming the code mid-flight, and
	// the create loop must redraw
	allocDB, err := gorm.Open(sqlite.Open("file:allocraceside?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, allocDB.AutoMigrate(&model.Pin{}))
	s.Alloc.DB = allocDB

	draws := []string{"111111", "222222"}
	s.Alloc.draw = func() string {
		code := draws[0]
		draws = draws[1:]
		return code
	}

	res, err := s.CreatePin(context.Background(), "u1", CreatePinInput{
		Kind:    quota.KindText,
		Content: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "222222", res.PinCode)
	assert.Empty(t, draws)
}
