package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expscan/expscan/internal/entity"
)

type fakeHistory struct {
	records []entity.ExpenseRecord
	err     error
}

func (f *fakeHistory) ListRecords(ctx context.Context) ([]entity.ExpenseRecord, error) {
	return f.records, f.err
}

func newTestDetector(h History, threshold int) *Detector {
	d := NewDetector(h, threshold, nil)
	d.fileHash = func(string) (string, error) { return "filehash-new", nil }
	d.imageHash = func(string) (*entity.ImageHashes, error) { return nil, nil }
	return d
}

func TestCheckDuplicate_ExactMatchShortCircuits(t *testing.T) {
	stored := entity.ExpenseRecord{ID: uuid.New(), FileHash: "filehash-new"}
	d := newTestDetector(&fakeHistory{records: []entity.ExpenseRecord{stored}}, 85)

	imageHashCalled := false
	d.imageHash = func(string) (*entity.ImageHashes, error) {
		imageHashCalled = true
		return nil, nil
	}

	got, err := d.CheckDuplicate(context.Background(), "/tmp/a.png", entity.ExtractionResult{})
	require.NoError(t, err)

	assert.True(t, got.IsDuplicate)
	assert.Equal(t, 100, got.Confidence)
	require.NotNil(t, got.Signal)
	assert.Equal(t, entity.SignalExactMatch, got.Signal.Type)
	assert.Equal(t, stored.ID, got.Signal.MatchedID)
	assert.False(t, imageHashCalled, "exact match must not run the visual check")
}

func TestCheckDuplicate_VisualSimilarity(t *testing.T) {
	stored := entity.ExpenseRecord{
		ID:          uuid.New(),
		FileHash:    "filehash-old",
		ImageHashes: &entity.ImageHashes{PerceptualHash: "aabbccdd00112233"},
	}
	d := newTestDetector(&fakeHistory{records: []entity.ExpenseRecord{stored}}, 85)
	d.imageHash = func(string) (*entity.ImageHashes, error) {
		// 2 characters away from the stored fingerprint
		return &entity.ImageHashes{AverageHash: "0000000000000000", PerceptualHash: "aabbccdd001122ff"}, nil
	}

	got, err := d.CheckDuplicate(context.Background(), "/tmp/a.png", entity.ExtractionResult{})
	require.NoError(t, err)

	assert.True(t, got.IsDuplicate)
	assert.Equal(t, 95, got.Confidence)
	require.NotNil(t, got.Signal)
	assert.Equal(t, entity.SignalVisualSimilarity, got.Signal.Type)
	assert.Equal(t, stored.ID, got.Signal.MatchedID)
	assert.NotNil(t, got.ImageHashes)
}

func TestCheckDuplicate_MetadataDuplicate(t *testing.T) {
	stored := entity.ExpenseRecord{
		ID:            uuid.New(),
		Vendor:        "Acme Corp",
		Amount:        250.00,
		Date:          "2024-01-10",
		InvoiceNumber: "INV-001",
		FileHash:      "filehash-old",
	}
	d := newTestDetector(&fakeHistory{records: []entity.ExpenseRecord{stored}}, 85)

	extraction := entity.ExtractionResult{
		Vendor:        "Acme Corp",
		Amount:        250.00,
		Date:          "2024-02-20", // far apart, no date points
		InvoiceNumber: "inv-001",    // case-insensitive
	}
	got, err := d.CheckDuplicate(context.Background(), "/tmp/a.png", extraction)
	require.NoError(t, err)

	assert.True(t, got.IsDuplicate)
	require.NotNil(t, got.Signal)
	assert.Equal(t, entity.SignalMetadataSimilarity, got.Signal.Type)
	assert.Equal(t, 90, got.Confidence) // invoice 50 + vendor 20 + amount 20
	assert.Contains(t, got.Signal.Reasons, "same invoice number")
}

func TestCheckDuplicate_MetadataBelowThreshold(t *testing.T) {
	stored := entity.ExpenseRecord{
		ID:            uuid.New(),
		Amount:        99.50,
		InvoiceNumber: "INV-002",
		FileHash:      "filehash-old",
	}
	d := newTestDetector(&fakeHistory{records: []entity.ExpenseRecord{stored}}, 85)

	// invoice 50 + amount 20 = 70: a candidate, but under the threshold
	extraction := entity.ExtractionResult{Amount: 99.50, InvoiceNumber: "INV-002"}
	got, err := d.CheckDuplicate(context.Background(), "/tmp/a.png", extraction)
	require.NoError(t, err)

	assert.False(t, got.IsDuplicate)
	assert.Nil(t, got.Signal)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, "filehash-new", got.FileHash)
}

func TestCheckDuplicate_PicksMaxCandidate(t *testing.T) {
	visual := entity.ExpenseRecord{
		ID:          uuid.New(),
		FileHash:    "filehash-old",
		ImageHashes: &entity.ImageHashes{PerceptualHash: "aabbccdd00112233"},
	}
	metadata := entity.ExpenseRecord{
		ID:            uuid.New(),
		Vendor:        "Acme Corp",
		Amount:        250.00,
		Date:          "2024-03-15",
		InvoiceNumber: "INV-003",
		FileHash:      "filehash-older",
	}
	d := newTestDetector(&fakeHistory{records: []entity.ExpenseRecord{visual, metadata}}, 85)
	d.imageHash = func(string) (*entity.ImageHashes, error) {
		return &entity.ImageHashes{PerceptualHash: "aabbccdd00112239"}, nil
	}

	// full metadata agreement caps at 100, beating the 95 visual signal
	extraction := entity.ExtractionResult{
		Vendor:        "Acme Corp",
		Amount:        250.00,
		Date:          "2024-03-15",
		InvoiceNumber: "INV-003",
	}
	got, err := d.CheckDuplicate(context.Background(), "/tmp/a.png", extraction)
	require.NoError(t, err)

	assert.True(t, got.IsDuplicate)
	assert.Equal(t, 100, got.Confidence)
	require.NotNil(t, got.Signal)
	assert.Equal(t, entity.SignalMetadataSimilarity, got.Signal.Type)
	assert.Equal(t, metadata.ID, got.Signal.MatchedID)
}

func TestCheckDuplicate_FileHashErrorPropagates(t *testing.T) {
	d := newTestDetector(&fakeHistory{}, 85)
	d.fileHash = func(string) (string, error) { return "", errors.New("unreadable") }

	_, err := d.CheckDuplicate(context.Background(), "/tmp/a.png", entity.ExtractionResult{})
	assert.Error(t, err)
}

func TestCheckDuplicate_HistoryErrorPropagates(t *testing.T) {
	d := newTestDetector(&fakeHistory{err: errors.New("db down")}, 85)

	_, err := d.CheckDuplicate(context.Background(), "/tmp/a.png", entity.ExtractionResult{})
	assert.Error(t, err)
}

func TestCheckDuplicate_ImageHashFailureDegrades(t *testing.T) {
	stored := entity.ExpenseRecord{
		ID:            uuid.New(),
		Vendor:        "Acme Corp",
		Amount:        250.00,
		InvoiceNumber: "INV-004",
		FileHash:      "filehash-old",
	}
	d := newTestDetector(&fakeHistory{records: []entity.ExpenseRecord{stored}}, 85)
	d.imageHash = func(string) (*entity.ImageHashes, error) { return nil, errors.New("decode failed") }

	extraction := entity.ExtractionResult{Vendor: "Acme Corp", Amount: 250.00, InvoiceNumber: "INV-004"}
	got, err := d.CheckDuplicate(context.Background(), "/tmp/a.png", extraction)
	require.NoError(t, err)

	// metadata still found the duplicate without the visual signal
	assert.True(t, got.IsDuplicate)
	assert.Equal(t, 90, got.Confidence)
	assert.Nil(t, got.ImageHashes)
}

func TestFindSimilar_RanksAndLimits(t *testing.T) {
	self := entity.ExpenseRecord{ID: uuid.New(), Vendor: "Acme Corp", Amount: 100, Category: "Office Supplies"}
	twin := entity.ExpenseRecord{ID: uuid.New(), Vendor: "Acme Corp", Amount: 100, Category: "Office Supplies"}
	near := entity.ExpenseRecord{ID: uuid.New(), Vendor: "Acme Corporation", Amount: 95, Category: "Office Supplies"}
	far := entity.ExpenseRecord{ID: uuid.New(), Vendor: "Zeta Logistics", Amount: 5000, Category: "Travel"}

	d := newTestDetector(&fakeHistory{records: []entity.ExpenseRecord{self, far, near, twin}}, 85)

	got, err := d.FindSimilar(context.Background(), self, 5)
	require.NoError(t, err)

	require.Len(t, got, 2, "self and the dissimilar record are excluded")
	assert.Equal(t, twin.ID, got[0].Record.ID)
	assert.InDelta(t, 100, got[0].Similarity, 1e-9)
	assert.Equal(t, near.ID, got[1].Record.ID)
	assert.GreaterOrEqual(t, got[1].Similarity, 50.0)

	top, err := d.FindSimilar(context.Background(), self, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, twin.ID, top[0].Record.ID)
}

func TestFindSimilar_CategorySpellingsMatch(t *testing.T) {
	self := entity.ExpenseRecord{ID: uuid.New(), Vendor: "Acme Corp", Amount: 100, Category: "Office Supplies"}
	other := entity.ExpenseRecord{ID: uuid.New(), Vendor: "Acme Corp", Amount: 100, Category: "OfficeSupplies"}

	d := newTestDetector(&fakeHistory{records: []entity.ExpenseRecord{other}}, 85)

	got, err := d.FindSimilar(context.Background(), self, 5)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.InDelta(t, 100, got[0].Similarity, 1e-9, "spelling variants land on the same category")
}

func TestStatistics(t *testing.T) {
	records := []entity.ExpenseRecord{
		{ID: uuid.New(), FileHash: "a", ImageHashes: &entity.ImageHashes{}},
		{ID: uuid.New(), FileHash: "b"},
		{ID: uuid.New()},
	}
	d := newTestDetector(&fakeHistory{records: records}, 85)

	got, err := d.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Statistics{TotalRecords: 3, WithFileHash: 2, WithImageHashes: 1, Threshold: 85}, got)
}
