package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/netbill/internal/invoice/domain"
	"github.com/smallbiznis/netbill/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestListPendingDueOn(t *testing.T) {
	db := dbtest.Open(t, &domain.Invoice{})
	repo := NewRepository(db)
	require.NoError(t, db.Create(&[]domain.Invoice{
		{ID: 1, Number: "INV-1", Status: domain.InvoiceStatusPending, DueDate: day(2024, 3, 10)},
		{ID: 2, Number: "INV-2", Status: domain.InvoiceStatusPaid, DueDate: day(2024, 3, 10)},
		{ID: 3, Number: "INV-3", Status: domain.InvoiceStatusPending, DueDate: day(2024, 3, 11)},
		{ID: 4, Number: "INV-4", Status: domain.InvoiceStatusPending, DueDate: day(2024, 3, 9)},
	}).Error)

	items, err := repo.ListPendingDueOn(context.Background(), day(2024, 3, 10))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "INV-1", items[0].Number)
}

func TestAppendSentOffsetOnce(t *testing.T) {
	db := dbtest.Open(t, &domain.Invoice{})
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 7, 2, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&domain.Invoice{
		ID: 1, Number: "INV-1", Status: domain.InvoiceStatusPending, DueDate: day(2024, 3, 10),
	}).Error)

	ok, err := repo.AppendSentOffset(ctx, 1, -3, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AppendSentOffset(ctx, 1, -3, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.AppendSentOffset(ctx, 1, -1, now)
	require.NoError(t, err)
	assert.True(t, ok)

	var inv domain.Invoice
	require.NoError(t, db.First(&inv, 1).Error)
	assert.Equal(t, []int{-3, -1}, []int(inv.SentReminderOffsets))
	assert.True(t, inv.ReminderSent(-1))
	assert.False(t, inv.ReminderSent(0))
}
