package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoice = "INVOICE #INV-2024-001\nAcme Corp\nTotal Due: $250.00\n03/15/2024"

func newTestExtractor() *Extractor {
	e := NewExtractor(nil)
	e.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExtract_SampleInvoice(t *testing.T) {
	res := newTestExtractor().Extract(sampleInvoice)

	assert.Equal(t, "Acme Corp", res.Vendor)
	assert.Equal(t, 250.00, res.Amount)
	assert.Equal(t, "2024-03-15", res.Date)
	assert.Equal(t, "INV-2024-001", res.InvoiceNumber)
	assert.Equal(t, sampleInvoice, res.RawText)
}

func TestExtractVendor_LabeledPattern(t *testing.T) {
	res := newTestExtractor().Extract("Receipt\nFrom: Blue Bottle Coffee\nTotal $4.50")
	assert.Equal(t, "Blue Bottle Coffee", res.Vendor)
}

func TestExtractVendor_FallbackSkipsDatesAndHeaders(t *testing.T) {
	res := newTestExtractor().Extract("03/15/2024\nINVOICE\nWayne Enterprises\nTotal: $99.00")
	assert.Equal(t, "Wayne Enterprises", res.Vendor)
}

func TestExtractVendor_Unknown(t *testing.T) {
	res := newTestExtractor().Extract("")
	assert.Equal(t, "Unknown Vendor", res.Vendor)
}

func TestExtractAmount_PicksMaximum(t *testing.T) {
	text := "Item A 12.50\nItem B 30.00\nSubtotal: 42.50\nTax: 3.40\nTotal: $45.90"
	res := newTestExtractor().Extract(text)
	assert.Equal(t, 45.90, res.Amount)
}

func TestExtractAmount_RejectsOutOfRange(t *testing.T) {
	res := newTestExtractor().Extract("Total: $2500000.00")
	assert.Zero(t, res.Amount)

	res = newTestExtractor().Extract("no amounts here")
	assert.Zero(t, res.Amount)
}

func TestExtractAmount_StripsThousandSeparators(t *testing.T) {
	res := newTestExtractor().Extract("Amount Due: $1,234.56")
	assert.Equal(t, 1234.56, res.Amount)
}

func TestExtractDate_Formats(t *testing.T) {
	cases := map[string]string{
		"Date: 03/15/2024":     "2024-03-15",
		"Date: 2024-03-15":     "2024-03-15",
		"Date: Mar 15, 2024":   "2024-03-15",
		"Date: 15 March 2024":  "2024-03-15",
		"Issued: 12-31-2023":   "2023-12-31",
	}
	for text, want := range cases {
		res := newTestExtractor().Extract(text)
		assert.Equal(t, want, res.Date, "text=%q", text)
	}
}

func TestExtractDate_FallsBackToToday(t *testing.T) {
	res := newTestExtractor().Extract("no dates in this text")
	assert.Equal(t, "2024-06-01", res.Date)
}

func TestExtractInvoiceNumber(t *testing.T) {
	res := newTestExtractor().Extract("Invoice: ABC-123")
	assert.Equal(t, "ABC-123", res.InvoiceNumber)

	res = newTestExtractor().Extract("nothing labeled")
	assert.Empty(t, res.InvoiceNumber)
}

func TestExtractDescription_JoinsLineItems(t *testing.T) {
	text := "Acme Corp\nWidget large 10.00\nGasket set 5.25\nShipping fee 2.00\nHandling 1.00\nTotal 18.25"
	res := newTestExtractor().Extract(text)

	parts := strings.Split(res.Description, "; ")
	require.Len(t, parts, 3)
	assert.Equal(t, "Widget large 10.00", parts[0])
}

func TestExtractDescription_Default(t *testing.T) {
	res := newTestExtractor().Extract("just words without numbers")
	assert.Equal(t, "Expense", res.Description)
}

func TestConfidence_RichTextScoresHigh(t *testing.T) {
	text := "INVOICE\nAcme Corp\nDate: 03/15/2024\nWidget 10.00\nTax 0.80\nTotal amount due: $10.80\nThank you for your business"
	res := newTestExtractor().Extract(text)
	assert.GreaterOrEqual(t, res.Confidence, 90)
	assert.LessOrEqual(t, res.Confidence, 100)
}

func TestConfidence_EmptyTextScoresZero(t *testing.T) {
	res := newTestExtractor().Extract("")
	assert.Zero(t, res.Confidence)
}
