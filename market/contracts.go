package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrInstrumentNotFound means a token or option contract has no entry in
	// the catalog.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrUnderlyingUnresolved means no tradable contract for the underlying
	// has both catalog metadata and price data.
	ErrUnderlyingUnresolved = errors.New("underlying unresolved")
)

// Right distinguishes call and put options. The catalog descriptions use the
// exchange suffixes CE and PE.
type Right string

const (
	Call Right = "CE"
	Put  Right = "PE"
)

// Contract is one row of instrument metadata.
type Contract struct {
	Token       int64
	Description string
	Series      string // e.g. "NIFTY-FUTIDX", "NIFTY-OPTIDX"
	Expiry      time.Time
}

// Catalog is the instrument directory: token to symbol lookups and option
// contract resolution.
type Catalog struct {
	contracts []Contract
	byToken   map[int64]int
}

func NewCatalog(contracts []Contract) *Catalog {
	c := &Catalog{
		contracts: contracts,
		byToken:   make(map[int64]int, len(contracts)),
	}
	for i, row := range contracts {
		c.byToken[row.Token] = i
	}
	return c
}

func (c *Catalog) Len() int { return len(c.contracts) }

// SymbolFor returns the display symbol for a token.
func (c *Catalog) SymbolFor(token int64) (string, bool) {
	i, ok := c.byToken[token]
	if !ok {
		return "", false
	}
	return c.contracts[i].Description, true
}

// SymbolOrToken returns the display symbol, falling back to the numeric
// token when the catalog has no entry.
func (c *Catalog) SymbolOrToken(token int64) string {
	if sym, ok := c.SymbolFor(token); ok {
		return sym
	}
	return fmt.Sprintf("%d", token)
}

// ResolveOption finds the index option with the given strike and right,
// choosing the nearest expiry on or after asOf. Ties within that expiry are
// broken by an exact strike+right match on the description suffix.
func (c *Catalog) ResolveOption(underlying string, strike int, right Right, asOf time.Time) (Contract, error) {
	series := underlying + "-OPTIDX"
	day := dateOnly(asOf)
	suffix := fmt.Sprintf("%d%s", strike, right)

	var nearest time.Time
	haveExpiry := false
	for _, row := range c.contracts {
		if row.Series != series {
			continue
		}
		exp := dateOnly(row.Expiry)
		if exp.Before(day) {
			continue
		}
		if !haveExpiry || exp.Before(nearest) {
			nearest = exp
			haveExpiry = true
		}
	}
	if !haveExpiry {
		return Contract{}, fmt.Errorf("resolve option %s %s: %w", underlying, suffix, ErrInstrumentNotFound)
	}

	for _, row := range c.contracts {
		if row.Series != series || !dateOnly(row.Expiry).Equal(nearest) {
			continue
		}
		if strings.HasSuffix(row.Description, suffix) {
			return row, nil
		}
	}
	return Contract{}, fmt.Errorf("resolve option %s %s expiring %s: %w",
		underlying, suffix, nearest.Format("2006-01-02"), ErrInstrumentNotFound)
}

// ResolveUnderlying picks the contract that best tracks the underlying and
// also has price data in the dataset. Futures rank first, then the index
// spot; options are never eligible because they carry no series of their own
// in the bundle.
func (c *Catalog) ResolveUnderlying(symbol string, data *Dataset) (Contract, error) {
	preferred := []string{
		symbol + "-FUTIDX",
		symbol + "-INDEX",
		symbol + "-SPOT",
	}
	for _, series := range preferred {
		for _, row := range c.sortedByToken() {
			if row.Series == series && data.Has(row.Token) {
				return row, nil
			}
		}
	}

	// Fall back to any non-option contract whose description names the
	// underlying.
	for _, row := range c.sortedByToken() {
		if !strings.HasPrefix(row.Description, symbol) {
			continue
		}
		if strings.Contains(row.Series, "OPT") {
			continue
		}
		if data.Has(row.Token) {
			return row, nil
		}
	}
	return Contract{}, fmt.Errorf("resolve underlying %q: %w", symbol, ErrUnderlyingUnresolved)
}

// sortedByToken keeps underlying resolution deterministic regardless of the
// order rows appeared in the contract file.
func (c *Catalog) sortedByToken() []Contract {
	out := make([]Contract, len(c.contracts))
	copy(out, c.contracts)
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
