package currency

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/expscan/expscan/constants"
)

const ratesFilename = "exchange_rates.json"

// ratesFile is the on-disk shape of the exchange-rate table. Rates are
// USD per unit of the keyed currency.
type ratesFile struct {
	Base       string             `json:"base"`
	Rates      map[string]float64 `json:"rates"`
	LastUpdate time.Time          `json:"last_update"`
	Source     string             `json:"source"`
}

// RateTable converts between currencies through USD. Missing rates never
// error: conversion degrades to returning the amount unchanged, which
// keeps a document processable when the rate feed is down.
type RateTable struct {
	path    string
	base    string
	refresh time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	data ratesFile
}

func NewRateTable(dataDir, baseCurrency string, refresh time.Duration, logger *slog.Logger) *RateTable {
	if logger == nil {
		logger = slog.Default()
	}
	if refresh <= 0 {
		refresh = 24 * time.Hour
	}
	return &RateTable{
		path:    filepath.Join(dataDir, ratesFilename),
		base:    baseCurrency,
		refresh: refresh,
		logger:  logger,
		now:     time.Now,
	}
}

// Load reads the rate file; missing, corrupt, or stale data falls back to
// the static table.
func (r *RateTable) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err == nil {
		var parsed ratesFile
		if uerr := json.Unmarshal(data, &parsed); uerr == nil && parsed.Rates != nil {
			if r.now().Sub(parsed.LastUpdate) < r.refresh {
				r.data = parsed
				r.logger.Info("currency.rates.loaded", "source", parsed.Source, "count", len(parsed.Rates))
				return nil
			}
			r.logger.Warn("currency.rates.stale", "last_update", parsed.LastUpdate)
		} else {
			r.logger.Warn("currency.rates.unreadable", "path", r.path)
		}
	}

	r.data = r.fallback()
	r.logger.Info("currency.rates.loaded", "source", "fallback", "count", len(r.data.Rates))
	return nil
}

func (r *RateTable) fallback() ratesFile {
	rates := make(map[string]float64, len(constants.FallbackRates))
	for k, v := range constants.FallbackRates {
		rates[k] = v
	}
	return ratesFile{
		Base:       r.base,
		Rates:      rates,
		LastUpdate: r.now(),
		Source:     "fallback",
	}
}

// UpdateRates replaces the table (e.g. from a live feed) and persists it.
func (r *RateTable) UpdateRates(rates map[string]float64, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = ratesFile{
		Base:       r.base,
		Rates:      rates,
		LastUpdate: r.now(),
		Source:     source,
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, encoded, 0o644)
}

// usdRate returns the USD value of one unit of code. USD itself is 1.
func (r *RateTable) usdRate(code string) (float64, bool) {
	if code == "USD" {
		return 1, true
	}
	rate, ok := r.data.Rates[code]
	return rate, ok
}

// Convert converts an amount between two currencies, routing through USD.
// A missing rate returns the amount unconverted.
func (r *RateTable) Convert(amount float64, from, to string) float64 {
	if from == to {
		return amount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fromRate, okFrom := r.usdRate(from)
	toRate, okTo := r.usdRate(to)
	if !okFrom || !okTo || toRate == 0 {
		r.logger.Warn("currency.rate_unavailable", "from", from, "to", to)
		return amount
	}
	return amount * fromRate / toRate
}

// ConvertToBase converts an amount into the configured base currency.
func (r *RateTable) ConvertToBase(amount float64, from string) float64 {
	return r.Convert(amount, from, r.base)
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with its currency symbol. Yen carries no
// decimals.
func FormatAmount(amount float64, code string) string {
	symbol := code
	if spec, ok := constants.CurrencyByCode(code); ok {
		symbol = spec.Symbol
	}
	if code == "JPY" {
		return amountPrinter.Sprintf("%s%d", symbol, int64(amount))
	}
	return amountPrinter.Sprintf("%s%.2f", symbol, amount)
}

// RateInfo describes the currently loaded table.
type RateInfo struct {
	Base       string    `json:"base_currency"`
	LastUpdate time.Time `json:"last_update"`
	Source     string    `json:"source"`
	Count      int       `json:"currencies_count"`
}

func (r *RateTable) Info() RateInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateInfo{
		Base:       r.data.Base,
		LastUpdate: r.data.LastUpdate,
		Source:     r.data.Source,
		Count:      len(r.data.Rates),
	}
}

// SupportedCurrencies lists the currency table.
func SupportedCurrencies() []constants.CurrencySpec {
	return constants.Currencies
}
