package constants

// CurrencySpec describes one supported currency: how it is written in
// document text and how amounts tagged with it look.
type CurrencySpec struct {
	Code    string
	Symbol  string
	Name    string
	Pattern string // amount regex with the value in capture group 1
}

// Currencies is the supported currency table, checked in order during
// amount detection. The symbol patterns deliberately anchor on the symbol
// or code so a bare number never matches here.
var Currencies = []CurrencySpec{
	{Code: "USD", Symbol: "$", Name: "US Dollar", Pattern: `\$\s*(\d+[,.]?\d*\.?\d{2})`},
	{Code: "EUR", Symbol: "€", Name: "Euro", Pattern: `€\s*(\d+[,.]?\d*\.?\d{2})`},
	{Code: "GBP", Symbol: "£", Name: "British Pound", Pattern: `£\s*(\d+[,.]?\d*\.?\d{2})`},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Pattern: `¥\s*(\d+[,.]?\d*)`},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", Pattern: `C\$\s*(\d+[,.]?\d*\.?\d{2})`},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Pattern: `A\$\s*(\d+[,.]?\d*\.?\d{2})`},
	{Code: "CHF", Symbol: "CHF", Name: "Swiss Franc", Pattern: `CHF\s*(\d+[,.]?\d*\.?\d{2})`},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", Pattern: `CNY\s*(\d+[,.]?\d*\.?\d{2})`},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Pattern: `₹\s*(\d+[,.]?\d*\.?\d{2})`},
	{Code: "MXN", Symbol: "MX$", Name: "Mexican Peso", Pattern: `MX\$\s*(\d+[,.]?\d*\.?\d{2})`},
}

// FallbackRates are static USD exchange rates used when no fresh rate file
// is available. Rate is the USD value of one unit of the currency.
var FallbackRates = map[string]float64{
	"EUR": 1.10,
	"GBP": 1.27,
	"JPY": 0.0067,
	"CAD": 0.73,
	"AUD": 0.65,
	"CHF": 1.13,
	"CNY": 0.14,
	"INR": 0.012,
	"MXN": 0.058,
}

// CurrencyByCode returns the table entry for a code, if supported.
func CurrencyByCode(code string) (CurrencySpec, bool) {
	for _, c := range Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return CurrencySpec{}, false
}
