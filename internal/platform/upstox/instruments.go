package upstox

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultInstrumentsURL is the published NSE instrument master, a gzipped
// JSON map of instrument key to metadata.
const defaultInstrumentsURL = "https://assets.upstox.com/market-quote/instruments/exchange/complete.json.gz"

// DownloadInstruments fetches the exchange instrument master and returns a
// map of normalized trading symbol to instrument key, restricted to NSE
// equities. Symbols carrying the "-EQ" suffix are indexed both with and
// without it.
func (c *Client) DownloadInstruments(ctx context.Context) (map[string]string, error) {
	instrumentsURL := c.cfg.InstrumentsURL
	if instrumentsURL == "" {
		instrumentsURL = defaultInstrumentsURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instrumentsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("upstox: create instruments request: %w", err)
	}

	// The master is tens of megabytes; give it a dedicated generous timeout
	// instead of the order-path client timeout.
	dlClient := &http.Client{Timeout: 60 * time.Second}
	resp, err := dlClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstox: download instruments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstox: download instruments: HTTP %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstox: gunzip instruments: %w", err)
	}
	defer gz.Close()

	var raw map[string]instrumentRecord
	if err := json.NewDecoder(gz).Decode(&raw); err != nil {
		return nil, fmt.Errorf("upstox: decode instruments: %w", err)
	}

	keys := make(map[string]string)
	for key, rec := range raw {
		if rec.InstrumentType != "EQUITY" || rec.Exchange != "NSE" {
			continue
		}
		sym := strings.ToUpper(rec.TradingSymbol)
		keys[sym] = key
		if base, ok := strings.CutSuffix(sym, "-EQ"); ok {
			keys[base] = key
		}
	}

	c.logger.InfoContext(ctx, "instrument master loaded",
		slog.Int("symbols", len(keys)),
	)
	return keys, nil
}
