package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/expscan/expscan/constants"
	"github.com/expscan/expscan/internal/common"
	"github.com/expscan/expscan/internal/entity"
)

// DB is the slice of pgxpool.Pool the expense repository needs. pgxmock
// satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const expenseColumns = `id, vendor, amount, date, invoice_number, category, currency_code, file_hash, average_hash, perceptual_hash, created_at`

// ExpenseRepository reads and writes stored expense records. Its
// ListRecords method is the duplicate detector's history source.
type ExpenseRepository struct {
	db     DB
	logger *slog.Logger
}

func NewExpenseRepository(db DB, logger *slog.Logger) *ExpenseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseRepository{db: db, logger: logger}
}

// ListRecords returns every stored expense with the fields duplicate
// detection compares against.
func (r *ExpenseRepository) ListRecords(ctx context.Context) ([]entity.ExpenseRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY created_at DESC`)
	if err != nil {
		return nil, common.WrapError(err, "list expenses")
	}
	defer rows.Close()

	var records []entity.ExpenseRecord
	for rows.Next() {
		rec, err := scanExpense(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan expense row")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "iterate expenses")
	}
	return records, nil
}

// validateRecord guards the boundary where records enter storage.
func validateRecord(rec entity.ExpenseRecord) error {
	v := common.NewValidator()
	v.Field("vendor", rec.Vendor, common.Required)
	v.Add(common.MaxLength("vendor", rec.Vendor, 120))
	v.Add(common.ISODate("date", rec.Date))
	if rec.CurrencyCode != "" {
		v.Add(common.CurrencyCode("currency_code", rec.CurrencyCode))
	}
	if rec.Amount < 0 {
		v.Add(&common.ValidationError{Field: "amount", Value: rec.Amount, Message: "must not be negative"})
	}
	return v.Error()
}

// Insert stores one expense record. The category is folded onto the
// fixed taxonomy before it hits the database.
func (r *ExpenseRepository) Insert(ctx context.Context, rec entity.ExpenseRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.Category != "" {
		cat, _ := constants.Canonicalize(rec.Category)
		rec.Category = string(cat)
	}
	var avgHash, perHash *string
	if rec.ImageHashes != nil {
		avgHash = &rec.ImageHashes.AverageHash
		perHash = &rec.ImageHashes.PerceptualHash
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Vendor, rec.Amount, rec.Date, rec.InvoiceNumber, rec.Category,
		rec.CurrencyCode, rec.FileHash, avgHash, perHash, rec.CreatedAt,
	)
	if err != nil {
		return common.WrapError(err, "insert expense")
	}
	r.logger.Info("repository.expense.inserted", "id", rec.ID, "vendor", rec.Vendor)
	return nil
}

// FindByFileHash looks up a stored record by its content hash.
func (r *ExpenseRepository) FindByFileHash(ctx context.Context, fileHash string) (*entity.ExpenseRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE file_hash = $1`, fileHash)
	rec, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "find expense by file hash")
	}
	return &rec, nil
}

func scanExpense(row pgx.Row) (entity.ExpenseRecord, error) {
	var rec entity.ExpenseRecord
	var avgHash, perHash *string
	err := row.Scan(
		&rec.ID, &rec.Vendor, &rec.Amount, &rec.Date, &rec.InvoiceNumber, &rec.Category,
		&rec.CurrencyCode, &rec.FileHash, &avgHash, &perHash, &rec.CreatedAt,
	)
	if err != nil {
		return entity.ExpenseRecord{}, err
	}
	if avgHash != nil && perHash != nil {
		rec.ImageHashes = &entity.ImageHashes{AverageHash: *avgHash, PerceptualHash: *perHash}
	}
	return rec, nil
}
