package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	aaadomain "github.com/smallbiznis/netbill/internal/aaa/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"github.com/smallbiznis/netbill/internal/testutil/dbtest"
	"github.com/smallbiznis/netbill/internal/voucher/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindExpiredActiveVouchersIsStrict(t *testing.T) {
	db := dbtest.Open(t, &domain.Voucher{})
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Second)
	exact := now
	future := now.Add(time.Minute)
	require.NoError(t, db.Create(&[]domain.Voucher{
		{ID: 1, Code: "PAST", Status: domain.StatusActive, Origin: domain.OriginManual, ExpiresAt: &past},
		{ID: 2, Code: "EXACT", Status: domain.StatusActive, Origin: domain.OriginManual, ExpiresAt: &exact},
		{ID: 3, Code: "FUTURE", Status: domain.StatusActive, Origin: domain.OriginManual, ExpiresAt: &future},
		{ID: 4, Code: "DONE", Status: domain.StatusExpired, Origin: domain.OriginManual, ExpiresAt: &past},
	}).Error)

	// A caller in another zone still compares the same instant.
	items, err := repo.FindExpiredActiveVouchers(ctx, now.In(time.FixedZone("WIB", 7*3600)))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "PAST", items[0].Code)
}

func TestActivateOnlyOnce(t *testing.T) {
	db := dbtest.Open(t, &domain.Voucher{})
	repo := NewRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Create(&domain.Voucher{ID: 1, Code: "ABC123", Status: domain.StatusWaiting, Origin: domain.OriginManual}).Error)

	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ok, err := repo.Activate(ctx, 1, first, first.Add(time.Hour), first)
	require.NoError(t, err)
	assert.True(t, ok)

	later := first.Add(2 * time.Hour)
	ok, err = repo.Activate(ctx, 1, later, later.Add(time.Hour), later)
	require.NoError(t, err)
	assert.False(t, ok)

	var v domain.Voucher
	require.NoError(t, db.First(&v, 1).Error)
	assert.True(t, v.FirstLoginAt.Equal(first))

	ok, err = repo.MarkExpired(ctx, 1, later)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.MarkExpired(ctx, 1, later)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListWaitingPagesByID(t *testing.T) {
	db := dbtest.Open(t, &domain.Profile{}, &domain.Agent{}, &domain.Voucher{})
	repo := NewRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Create(&domain.Profile{ID: 9, Name: "1 Hari", ValidityValue: 1, ValidityUnit: domain.UnitDays}).Error)
	for i := 1; i <= 5; i++ {
		status := domain.StatusWaiting
		if i == 3 {
			status = domain.StatusActive
		}
		require.NoError(t, db.Create(&domain.Voucher{
			ID: snowflake.ID(i), Code: string(rune('A' + i)), ProfileID: 9, Status: status, Origin: domain.OriginManual,
		}).Error)
	}

	page, err := repo.ListWaiting(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, page[0].Profile)
	assert.Equal(t, "1 Hari", page[0].Profile.Name)

	rest, err := repo.ListWaiting(ctx, page[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.EqualValues(t, 4, rest[0].ID)
}

func TestFindExpiredWithOpenSessions(t *testing.T) {
	db := dbtest.Open(t, &domain.Voucher{}, &aaadomain.RadAcct{})
	repo := NewRepository(db)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-5 * time.Minute)
	old := now.Add(-3 * time.Hour)
	start := now.Add(-4 * time.Hour)
	stop := now.Add(-2 * time.Hour)

	require.NoError(t, db.Create(&[]domain.Voucher{
		{ID: 1, Code: "OPEN", Status: domain.StatusExpired, Origin: domain.OriginManual, ExpiresAt: &recent},
		{ID: 2, Code: "CLOSED", Status: domain.StatusExpired, Origin: domain.OriginManual, ExpiresAt: &recent},
		{ID: 3, Code: "OLD", Status: domain.StatusExpired, Origin: domain.OriginManual, ExpiresAt: &old},
	}).Error)
	require.NoError(t, db.Create(&[]aaadomain.RadAcct{
		{Username: "OPEN", AcctSessionID: "a", AcctStartTime: &start},
		{Username: "CLOSED", AcctSessionID: "b", AcctStartTime: &start, AcctStopTime: &stop},
		{Username: "OLD", AcctSessionID: "c", AcctStartTime: &start},
	}).Error)

	items, err := repo.FindExpiredWithOpenSessions(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "OPEN", items[0].Code)
}

func TestListUnledgered(t *testing.T) {
	db := dbtest.Open(t, &domain.Profile{}, &domain.Agent{}, &domain.Voucher{},
		&ledgerdomain.LedgerEntry{}, &ledgerdomain.AgentSaleRecord{})
	repo := NewRepository(db)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	order := "ORD-1"
	agentID := snowflake.ID(9)

	require.NoError(t, db.Create(&domain.Agent{ID: agentID, Name: "Budi"}).Error)
	require.NoError(t, db.Create(&[]domain.Voucher{
		{ID: 1, Code: "MISSING", Status: domain.StatusActive, Origin: domain.OriginManual, FirstLoginAt: &at},
		{ID: 2, Code: "BOOKED", Status: domain.StatusExpired, Origin: domain.OriginManual, FirstLoginAt: &at},
		{ID: 3, Code: "WAITING", Status: domain.StatusWaiting, Origin: domain.OriginManual},
		{ID: 4, Code: "ORDERED", Status: domain.StatusActive, Origin: domain.OriginSelfService, OrderID: &order, FirstLoginAt: &at},
		{ID: 5, Code: "NOSALE", Status: domain.StatusActive, Origin: domain.OriginAgent, AgentID: &agentID, FirstLoginAt: &at},
		{ID: 6, Code: "SOLD", Status: domain.StatusActive, Origin: domain.OriginAgent, AgentID: &agentID, FirstLoginAt: &at},
	}).Error)
	for i, code := range []string{"BOOKED", "NOSALE", "SOLD"} {
		require.NoError(t, db.Create(&ledgerdomain.LedgerEntry{
			ID: snowflake.ID(100 + i), Category: ledgerdomain.CategoryVoucherSale, Direction: ledgerdomain.DirectionIncome,
			Amount: 5000, Reference: ledgerdomain.VoucherReference(code), OccurredAt: at, CreatedAt: at,
		}).Error)
	}
	require.NoError(t, db.Create(&ledgerdomain.AgentSaleRecord{
		ID: 200, VoucherCode: "SOLD", AgentID: agentID, SoldAt: at, CreatedAt: at,
	}).Error)

	items, err := repo.ListUnledgered(context.Background(), 0, 10)
	require.NoError(t, err)
	codes := make([]string, 0, len(items))
	for _, v := range items {
		codes = append(codes, v.Code)
	}
	assert.Equal(t, []string{"MISSING", "NOSALE"}, codes)
	require.NotNil(t, items[1].Agent)
	assert.Equal(t, "Budi", items[1].Agent.Name)
}
