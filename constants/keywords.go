package constants

// AmountContextKeywords classify the line an amount was found on. Order
// matters: the first keyword present in a line wins, so the more specific
// entries come before the generic ones they contain.
var AmountContextKeywords = []string{
	"grand total",
	"subtotal",
	"total",
	"amount",
	"due",
	"balance",
	"sum",
	"pay",
}

// ConfidenceKeywords contribute to the extraction confidence score when
// present anywhere in the document text.
var ConfidenceKeywords = []string{
	"total", "amount", "invoice", "receipt", "date", "vendor", "tax",
}

// AmountProximityKeywords boost a currency match when they appear near it.
var AmountProximityKeywords = []string{"total", "amount", "due", "balance"}
