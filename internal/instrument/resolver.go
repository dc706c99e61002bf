// Package instrument maps trading symbols to broker instrument keys. The
// lookup table is an explicit cache component: a non-authoritative in-process
// map, backed by a shared Redis cache, rebuilt from the broker's instrument
// master on miss. Losing either layer only costs a re-download.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tradewire/ictbot/internal/domain"
)

// Loader fetches the full symbol-to-instrument-key table from the broker.
type Loader interface {
	DownloadInstruments(ctx context.Context) (map[string]string, error)
}

// Resolver implements domain.InstrumentResolver.
type Resolver struct {
	loader Loader
	cache  domain.InstrumentCache // may be nil
	logger *slog.Logger

	mu    sync.RWMutex
	local map[string]string
}

// NewResolver creates a Resolver. The shared cache may be nil, in which case
// only the in-process map is used.
func NewResolver(loader Loader, cache domain.InstrumentCache, logger *slog.Logger) *Resolver {
	return &Resolver{
		loader: loader,
		cache:  cache,
		logger: logger.With(slog.String("component", "instrument")),
	}
}

// Resolve returns the instrument key for symbol, or domain.ErrSymbolNotFound.
// The symbol is normalized before lookup; a bare symbol also matches its
// "-EQ" equity variant.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (string, error) {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return "", fmt.Errorf("instrument: %w: empty symbol", domain.ErrSymbolNotFound)
	}

	if key, ok := r.lookupLocal(sym); ok {
		return key, nil
	}

	if key, ok := r.lookupShared(ctx, sym); ok {
		return key, nil
	}

	if err := r.reload(ctx); err != nil {
		return "", fmt.Errorf("instrument: resolve %s: %w", sym, err)
	}

	if key, ok := r.lookupLocal(sym); ok {
		return key, nil
	}
	return "", fmt.Errorf("instrument: %w: %s", domain.ErrSymbolNotFound, sym)
}

func (r *Resolver) lookupLocal(sym string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key, ok := r.local[sym]; ok {
		return key, true
	}
	key, ok := r.local[sym+"-EQ"]
	return key, ok
}

// lookupShared consults the shared cache. Cache failures are logged and
// treated as misses.
func (r *Resolver) lookupShared(ctx context.Context, sym string) (string, bool) {
	if r.cache == nil {
		return "", false
	}

	key, err := r.cache.Get(ctx, sym)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.WarnContext(ctx, "instrument cache read failed",
				slog.String("symbol", sym),
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}

	r.mu.Lock()
	if r.local == nil {
		r.local = make(map[string]string)
	}
	r.local[sym] = key
	r.mu.Unlock()
	return key, true
}

// reload downloads the instrument master and replaces the local map. The
// shared cache write is best-effort.
func (r *Resolver) reload(ctx context.Context) error {
	keys, err := r.loader.DownloadInstruments(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.local = keys
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.SetAll(ctx, keys); err != nil {
			r.logger.WarnContext(ctx, "instrument cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.InstrumentResolver = (*Resolver)(nil)
