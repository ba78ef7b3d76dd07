package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expscan/expscan/internal/common"
	"github.com/expscan/expscan/internal/entity"
)

var expenseCols = []string{
	"id", "vendor", "amount", "date", "invoice_number", "category",
	"currency_code", "file_hash", "average_hash", "perceptual_hash", "created_at",
}

func strptr(s string) *string { return &s }

func TestListRecords(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM expenses ORDER BY created_at DESC").
		WillReturnRows(pgxmock.NewRows(expenseCols).
			AddRow(id, "Acme Corp", 250.00, "2024-03-15", "INV-001", "Office Supplies",
				"USD", "abc123", strptr("aabb"), strptr("ccdd"), created).
			AddRow(uuid.New(), "Coffee Shop", 4.50, "2024-03-16", "", "Meals",
				"USD", "def456", nil, nil, created))

	repo := NewExpenseRepository(mock, nil)
	got, err := repo.ListRecords(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "Acme Corp", got[0].Vendor)
	require.NotNil(t, got[0].ImageHashes)
	assert.Equal(t, "aabb", got[0].ImageHashes.AverageHash)
	assert.Nil(t, got[1].ImageHashes, "records without image hashes stay nil")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecords_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM expenses").WillReturnError(errors.New("connection reset"))

	_, err = NewExpenseRepository(mock, nil).ListRecords(context.Background())
	assert.Error(t, err)
}

func TestInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := entity.ExpenseRecord{
		ID:            uuid.New(),
		Vendor:        "Acme Corp",
		Amount:        250.00,
		Date:          "2024-03-15",
		InvoiceNumber: "INV-001",
		Category:      "Office Supplies",
		CurrencyCode:  "USD",
		FileHash:      "abc123",
		ImageHashes:   &entity.ImageHashes{AverageHash: "aabb", PerceptualHash: "ccdd"},
		CreatedAt:     time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO expenses").
		WithArgs(rec.ID, rec.Vendor, rec.Amount, rec.Date, rec.InvoiceNumber, "OfficeSupplies",
			rec.CurrencyCode, rec.FileHash, &rec.ImageHashes.AverageHash, &rec.ImageHashes.PerceptualHash, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewExpenseRepository(mock, nil).Insert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_CanonicalizesCategory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := entity.ExpenseRecord{ID: uuid.New(), Vendor: "Corner Bistro", Category: "restaurant"}

	mock.ExpectExec("INSERT INTO expenses").
		WithArgs(rec.ID, rec.Vendor, rec.Amount, rec.Date, rec.InvoiceNumber, "Meals",
			rec.CurrencyCode, rec.FileHash, (*string)(nil), (*string)(nil), rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewExpenseRepository(mock, nil).Insert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_NilImageHashes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := entity.ExpenseRecord{ID: uuid.New(), Vendor: "Acme Corp", FileHash: "abc123"}

	mock.ExpectExec("INSERT INTO expenses").
		WithArgs(rec.ID, rec.Vendor, rec.Amount, rec.Date, rec.InvoiceNumber, rec.Category,
			rec.CurrencyCode, rec.FileHash, (*string)(nil), (*string)(nil), rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewExpenseRepository(mock, nil).Insert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_RejectsInvalidRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewExpenseRepository(mock, nil)

	err = repo.Insert(context.Background(), entity.ExpenseRecord{ID: uuid.New(), Date: "03/15/2024"})
	assert.ErrorIs(t, err, common.ErrValidation, "missing vendor and non-ISO date")

	err = repo.Insert(context.Background(), entity.ExpenseRecord{
		ID: uuid.New(), Vendor: "Acme Corp", CurrencyCode: "usd",
	})
	assert.ErrorIs(t, err, common.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet(), "invalid records never reach the database")
}

func TestFindByFileHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM expenses WHERE file_hash").
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows(expenseCols).
			AddRow(id, "Acme Corp", 250.00, "2024-03-15", "INV-001", "Office Supplies",
				"USD", "abc123", nil, nil, time.Now()))

	got, err := NewExpenseRepository(mock, nil).FindByFileHash(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByFileHash_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM expenses WHERE file_hash").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewExpenseRepository(mock, nil).FindByFileHash(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
