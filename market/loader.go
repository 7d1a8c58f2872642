package market

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"
)

// ErrMalformedMarketData means the market data payload is missing one of the
// required price fields.
var ErrMalformedMarketData = errors.New("malformed market data")

var priceFields = []string{"Open", "High", "Low", "Close"}

// LoadCatalog reads the contract metadata CSV. Columns are addressed by
// header name so extra columns in the export are ignored.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contract file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read contract header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"exchangeInstrumentID", "Description", "NameWithSeries"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("contract file missing column %q", required)
		}
	}

	var contracts []Contract
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read contract row: %w", err)
		}

		token, err := strconv.ParseInt(strings.TrimSpace(field(row, col["exchangeInstrumentID"])), 10, 64)
		if err != nil {
			continue // non-numeric token rows are not tradable
		}

		c := Contract{
			Token:       token,
			Description: strings.TrimSpace(field(row, col["Description"])),
			Series:      strings.TrimSpace(field(row, col["NameWithSeries"])),
		}
		if i, ok := col["ExpiryDatetime"]; ok {
			if ts, err := parseTime(field(row, i)); err == nil {
				c.Expiry = ts
			}
		}
		contracts = append(contracts, c)
	}
	return NewCatalog(contracts), nil
}

type pricePoint struct {
	Minute string  `json:"Minute"`
	Price  float64 `json:"Price"`
}

// LoadDataset reads the single-day OHLC bundle. The payload is a JSON object
// keyed by price field, then by token:
//
//	{"Close": {"49543": [{"Minute": "...", "Price": 123.4}, ...]}, ...}
//
// Plain .json files, .xz compressed files and .zip archives containing one
// JSON entry are all accepted.
func LoadDataset(path string) (*Dataset, error) {
	raw, err := readBundle(path)
	if err != nil {
		return nil, err
	}

	var payload map[string]map[string][]pricePoint
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse market data %s: %w", path, err)
	}
	for _, fieldName := range priceFields {
		if _, ok := payload[fieldName]; !ok {
			return nil, fmt.Errorf("market data %s missing %q: %w", path, fieldName, ErrMalformedMarketData)
		}
	}

	series := make(map[int64]Series)
	for tokenStr := range payload["Close"] {
		token, err := strconv.ParseInt(tokenStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("market data token %q: %w", tokenStr, ErrMalformedMarketData)
		}

		byMinute := map[time.Time]*Bar{}
		for _, fieldName := range priceFields {
			for _, pt := range payload[fieldName][tokenStr] {
				ts, err := parseTime(pt.Minute)
				if err != nil {
					return nil, fmt.Errorf("market data minute %q: %w", pt.Minute, ErrMalformedMarketData)
				}
				b, ok := byMinute[ts]
				if !ok {
					b = &Bar{Time: ts}
					byMinute[ts] = b
				}
				switch fieldName {
				case "Open":
					b.Open = pt.Price
				case "High":
					b.High = pt.Price
				case "Low":
					b.Low = pt.Price
				case "Close":
					b.Close = pt.Price
				}
			}
		}

		bars := make([]Bar, 0, len(byMinute))
		for _, b := range byMinute {
			bars = append(bars, *b)
		}
		series[token] = NewSeries(bars)
	}
	return NewDataset(series), nil
}

// readBundle returns the raw JSON bytes, decompressing as needed.
func readBundle(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open market data: %w", err)
		}
		defer f.Close()
		r, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xz market data %s: %w", path, err)
		}
		return io.ReadAll(r)

	case ".zip":
		dir, err := os.MkdirTemp("", "intraday-bundle-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
		if err := unzip.Extract(path, dir); err != nil {
			return nil, fmt.Errorf("unzip market data %s: %w", path, err)
		}
		var jsonPath string
		err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".json") {
				jsonPath = p
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if jsonPath == "" {
			return nil, fmt.Errorf("market data archive %s has no JSON entry: %w", path, ErrMalformedMarketData)
		}
		return os.ReadFile(jsonPath)

	default:
		return os.ReadFile(path)
	}
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
