package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (OrderRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return NewOrderRepository(gdb), mock
}

func TestHasPaidWorkflow(t *testing.T) {
	t.Run("counts only paid orders of the user", func(t *testing.T) {
		repo, mock := setupMockDB(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "order_items" JOIN orders`).
			WithArgs("buyer-1", "paid", "wf-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		owned, err := repo.HasPaidWorkflow("buyer-1", "wf-1")

		assert.NoError(t, err)
		assert.True(t, owned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not owned when no paid item exists", func(t *testing.T) {
		repo, mock := setupMockDB(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "order_items" JOIN orders`).
			WithArgs("buyer-1", "paid", "wf-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		owned, err := repo.HasPaidWorkflow("buyer-1", "wf-1")

		assert.NoError(t, err)
		assert.False(t, owned)
	})
}

func TestSellerRevenue(t *testing.T) {
	t.Run("derives net from gross and fee", func(t *testing.T) {
		repo, mock := setupMockDB(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) AS order_count`).
			WithArgs("seller-1", "paid").
			WillReturnRows(sqlmock.NewRows([]string{"order_count", "gross_cents", "fee_cents"}).
				AddRow(3, 30000, 4500))

		summary, err := repo.SellerRevenue("seller-1")

		assert.NoError(t, err)
		assert.Equal(t, int64(3), summary.OrderCount)
		assert.Equal(t, int64(30000), summary.GrossCents)
		assert.Equal(t, int64(4500), summary.FeeCents)
		assert.Equal(t, int64(25500), summary.NetCents)
	})
}

func TestCountUnpaidInGroup(t *testing.T) {
	t.Run("counts every non paid order in the group", func(t *testing.T) {
		repo, mock := setupMockDB(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "orders"`).
			WithArgs("group-1", "paid").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		count, err := repo.CountUnpaidInGroup("group-1")

		assert.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}
