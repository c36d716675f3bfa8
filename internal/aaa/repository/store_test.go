package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/netbill/internal/aaa/domain"
	"github.com/smallbiznis/netbill/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openStore(t *testing.T, loc *time.Location) (*gorm.DB, domain.Store) {
	t.Helper()
	db := dbtest.Open(t,
		&domain.RadAcct{},
		&domain.RadCheck{},
		&domain.RadReply{},
		&domain.RadUserGroup{},
		&domain.NAS{},
	)
	return db, NewStore(db, loc)
}

func wallClock(y int, m time.Month, d, hh, mm int) *time.Time {
	t := time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	return &t
}

func TestEarliestSessionStart(t *testing.T) {
	db, store := openStore(t, time.UTC)
	ctx := context.Background()

	_, ok, err := store.EarliestSessionStart(ctx, "ABC123")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Create(&[]domain.RadAcct{
		{Username: "ABC123", AcctSessionID: "s2", AcctStartTime: wallClock(2024, 1, 1, 12, 0)},
		{Username: "ABC123", AcctSessionID: "s1", AcctStartTime: wallClock(2024, 1, 1, 10, 0)},
		{Username: "OTHER", AcctSessionID: "s0", AcctStartTime: wallClock(2023, 12, 31, 8, 0)},
	}).Error)

	start, ok, err := store.EarliestSessionStart(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), start)
}

func TestEarliestSessionStartInterpretsRadiusZone(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	db, store := openStore(t, wib)

	require.NoError(t, db.Create(&domain.RadAcct{
		Username:      "ABC123",
		AcctSessionID: "s1",
		AcctStartTime: wallClock(2024, 1, 1, 10, 0),
	}).Error)

	start, ok, err := store.EarliestSessionStart(context.Background(), "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.UTC, start.Location())
}

func TestOpenSessionsSkipsClosed(t *testing.T) {
	db, store := openStore(t, time.UTC)
	require.NoError(t, db.Create(&[]domain.RadAcct{
		{Username: "user42", AcctSessionID: "open", NASIPAddress: "10.0.0.1", AcctStartTime: wallClock(2024, 1, 2, 9, 0)},
		{Username: "user42", AcctSessionID: "closed", NASIPAddress: "10.0.0.1", AcctStartTime: wallClock(2024, 1, 1, 9, 0), AcctStopTime: wallClock(2024, 1, 1, 10, 0)},
	}).Error)

	sessions, err := store.OpenSessions(context.Background(), "user42")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "open", sessions[0].SessionID)
	assert.Equal(t, "10.0.0.1", sessions[0].NASAddress)
}

func TestPurgeCredentials(t *testing.T) {
	db, store := openStore(t, time.UTC)
	require.NoError(t, db.Create(&domain.RadCheck{Username: "ABC123", Attribute: domain.AttrCleartextPassword, Op: ":=", Value: "ABC123"}).Error)
	require.NoError(t, db.Create(&domain.RadUserGroup{Username: "ABC123", GroupName: "voucher-1h", Priority: 1}).Error)
	require.NoError(t, db.Create(&domain.RadReply{Username: "ABC123", Attribute: "Session-Timeout", Op: "=", Value: "3600"}).Error)
	require.NoError(t, db.Create(&domain.RadCheck{Username: "KEEP", Attribute: domain.AttrCleartextPassword, Op: ":=", Value: "x"}).Error)
	require.NoError(t, db.Create(&domain.RadAcct{Username: "ABC123", AcctSessionID: "s1", AcctStartTime: wallClock(2024, 1, 1, 10, 0)}).Error)

	removed, err := store.PurgeCredentials(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	var remaining int64
	require.NoError(t, db.Model(&domain.RadCheck{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)

	var acct int64
	require.NoError(t, db.Model(&domain.RadAcct{}).Where("username = ?", "ABC123").Count(&acct).Error)
	assert.EqualValues(t, 1, acct, "accounting history is kept")

	removed, err = store.PurgeCredentials(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestIsolateIsIdempotent(t *testing.T) {
	db, store := openStore(t, time.UTC)
	require.NoError(t, db.Create(&domain.RadCheck{Username: "user42", Attribute: domain.AttrCleartextPassword, Op: "==", Value: "stale"}).Error)
	require.NoError(t, db.Create(&domain.RadUserGroup{Username: "user42", GroupName: "home-10m", Priority: 5}).Error)
	require.NoError(t, db.Create(&domain.RadReply{Username: "user42", Attribute: domain.AttrFramedIPAddress, Op: "=", Value: "10.10.0.42"}).Error)
	require.NoError(t, db.Create(&domain.RadReply{Username: "user42", Attribute: "Mikrotik-Rate-Limit", Op: "=", Value: "10M/10M"}).Error)

	req := domain.IsolateRequest{Username: "user42", Password: "s3cret", Group: "isolir", Priority: 1}
	for i := 0; i < 2; i++ {
		require.NoError(t, store.Isolate(context.Background(), req))
	}

	var checks []domain.RadCheck
	require.NoError(t, db.Where("username = ?", "user42").Find(&checks).Error)
	require.Len(t, checks, 1)
	assert.Equal(t, "s3cret", checks[0].Value)
	assert.Equal(t, ":=", checks[0].Op)

	var groups []domain.RadUserGroup
	require.NoError(t, db.Where("username = ?", "user42").Find(&groups).Error)
	require.Len(t, groups, 1)
	assert.Equal(t, "isolir", groups[0].GroupName)
	assert.Equal(t, 1, groups[0].Priority)

	var framed int64
	require.NoError(t, db.Model(&domain.RadReply{}).
		Where("username = ? AND attribute = ?", "user42", domain.AttrFramedIPAddress).
		Count(&framed).Error)
	assert.Zero(t, framed)

	var replies int64
	require.NoError(t, db.Model(&domain.RadReply{}).Where("username = ?", "user42").Count(&replies).Error)
	assert.EqualValues(t, 1, replies)
}

func TestIsolateCreatesMissingCredential(t *testing.T) {
	db, store := openStore(t, time.UTC)
	require.NoError(t, store.Isolate(context.Background(), domain.IsolateRequest{
		Username: "fresh", Password: "pw", Group: "isolir", Priority: 1,
	}))

	var check domain.RadCheck
	require.NoError(t, db.Where("username = ?", "fresh").Take(&check).Error)
	assert.Equal(t, "pw", check.Value)
}

func TestIsolateRejectsEmptyInput(t *testing.T) {
	_, store := openStore(t, time.UTC)
	assert.ErrorIs(t, store.Isolate(context.Background(), domain.IsolateRequest{Group: "isolir"}), domain.ErrEmptyUsername)
	assert.ErrorIs(t, store.Isolate(context.Background(), domain.IsolateRequest{Username: "u"}), domain.ErrInvalidGroup)
}

func TestNASSecret(t *testing.T) {
	db, store := openStore(t, time.UTC)
	require.NoError(t, db.Create(&domain.NAS{NASName: "10.0.0.1", ShortName: "core", Secret: "testing123"}).Error)

	secret, ok, err := store.NASSecret(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "testing123", secret)

	_, ok, err = store.NASSecret(context.Background(), "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, ok)
}
