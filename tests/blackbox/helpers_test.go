//go:build blackbox

package blackbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

// writeFixtures lays down a two-bar session: an index future at 22030 and a
// 22050 call/put pair whose combined premium decays from 20 to 10.
func writeFixtures(t *testing.T) (contractsPath, dataPath string) {
	t.Helper()
	dir := t.TempDir()

	contractsPath = filepath.Join(dir, "contracts.csv")
	contracts := `exchangeInstrumentID,Description,NameWithSeries,ExpiryDatetime
100,NIFTY 30JAN FUT,NIFTY-FUTIDX,2025-01-30T00:00:00
200,NIFTY30JAN2522050CE,NIFTY-OPTIDX,2025-01-30T00:00:00
201,NIFTY30JAN2522050PE,NIFTY-OPTIDX,2025-01-30T00:00:00
`
	if err := os.WriteFile(contractsPath, []byte(contracts), 0o644); err != nil {
		t.Fatal(err)
	}

	dataPath = filepath.Join(dir, "session.json")
	if err := os.WriteFile(dataPath, []byte(sessionJSON()), 0o644); err != nil {
		t.Fatal(err)
	}
	return contractsPath, dataPath
}

func sessionJSON() string {
	minutes := []string{"2025-01-15T09:20:00", "2025-01-15T09:21:00"}
	closes := map[string][]float64{
		"100": {22030, 22030},
		"200": {12, 6},
		"201": {8, 4},
	}

	var b strings.Builder
	b.WriteString("{")
	for fi, field := range []string{"Open", "High", "Low", "Close"} {
		if fi > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%q:{", field)
		first := true
		for _, token := range []string{"100", "200", "201"} {
			if !first {
				b.WriteString(",")
			}
			first = false
			fmt.Fprintf(&b, "%q:[", token)
			for i, px := range closes[token] {
				if i > 0 {
					b.WriteString(",")
				}
				fmt.Fprintf(&b, `{"Minute":%q,"Price":%s}`, minutes[i], f64(px))
			}
			b.WriteString("]")
		}
		b.WriteString("}")
	}
	b.WriteString("}")
	return b.String()
}

func f64(x float64) string {
	return fmt.Sprintf("%.6f", x)
}
