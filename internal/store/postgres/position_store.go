package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewire/ictbot/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. One row per
// open symbol; every write replaces the whole row (last write wins).
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `symbol, action, direction, instrument_key,
	requested_qty, filled_qty, entry_order_id,
	sl_order_id, sl_qty, sl_price,
	tp_order_id, tp_qty, tp_price,
	partial_order_id, partial_qty, partial_price,
	partial_filled, created_at`

// bracketCols flattens an optional bracket leg into its three columns.
func bracketCols(b *domain.BracketOrder) (id *string, qty *int, price *float64) {
	if b == nil {
		return nil, nil, nil
	}
	return &b.OrderID, &b.Quantity, &b.Price
}

// bracketFromCols rebuilds an optional bracket leg from scanned columns.
func bracketFromCols(id *string, qty *int, price *float64) *domain.BracketOrder {
	if id == nil {
		return nil
	}
	b := &domain.BracketOrder{OrderID: *id}
	if qty != nil {
		b.Quantity = *qty
	}
	if price != nil {
		b.Price = *price
	}
	return b
}

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var action, direction string
	var slID, tpID, partialID *string
	var slQty, tpQty, partialQty *int
	var slPrice, tpPrice, partialPrice *float64

	err := row.Scan(
		&p.Symbol, &action, &direction, &p.InstrumentKey,
		&p.RequestedQty, &p.FilledQty, &p.EntryOrderID,
		&slID, &slQty, &slPrice,
		&tpID, &tpQty, &tpPrice,
		&partialID, &partialQty, &partialPrice,
		&p.PartialFilled, &p.CreatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}

	p.Action = domain.TransactionType(action)
	p.Direction = domain.Direction(direction)
	p.StopLoss = bracketFromCols(slID, slQty, slPrice)
	p.TakeProfit = bracketFromCols(tpID, tpQty, tpPrice)
	p.PartialTP = bracketFromCols(partialID, partialQty, partialPrice)
	return p, nil
}

// Put inserts or replaces the record for p.Symbol.
func (s *PositionStore) Put(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (
			symbol, action, direction, instrument_key,
			requested_qty, filled_qty, entry_order_id,
			sl_order_id, sl_qty, sl_price,
			tp_order_id, tp_qty, tp_price,
			partial_order_id, partial_qty, partial_price,
			partial_filled, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15, $16,
			$17, $18, NOW()
		)
		ON CONFLICT (symbol) DO UPDATE SET
			action           = EXCLUDED.action,
			direction        = EXCLUDED.direction,
			instrument_key   = EXCLUDED.instrument_key,
			requested_qty    = EXCLUDED.requested_qty,
			filled_qty       = EXCLUDED.filled_qty,
			entry_order_id   = EXCLUDED.entry_order_id,
			sl_order_id      = EXCLUDED.sl_order_id,
			sl_qty           = EXCLUDED.sl_qty,
			sl_price         = EXCLUDED.sl_price,
			tp_order_id      = EXCLUDED.tp_order_id,
			tp_qty           = EXCLUDED.tp_qty,
			tp_price         = EXCLUDED.tp_price,
			partial_order_id = EXCLUDED.partial_order_id,
			partial_qty      = EXCLUDED.partial_qty,
			partial_price    = EXCLUDED.partial_price,
			partial_filled   = EXCLUDED.partial_filled,
			created_at       = EXCLUDED.created_at,
			updated_at       = NOW()`

	slID, slQty, slPrice := bracketCols(p.StopLoss)
	tpID, tpQty, tpPrice := bracketCols(p.TakeProfit)
	partialID, partialQty, partialPrice := bracketCols(p.PartialTP)

	_, err := s.pool.Exec(ctx, query,
		p.Symbol, string(p.Action), string(p.Direction), p.InstrumentKey,
		p.RequestedQty, p.FilledQty, p.EntryOrderID,
		slID, slQty, slPrice,
		tpID, tpQty, tpPrice,
		partialID, partialQty, partialPrice,
		p.PartialFilled, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put position %s: %w", p.Symbol, err)
	}
	return nil
}

// Get returns the record for symbol, or domain.ErrNotFound.
func (s *PositionStore) Get(ctx context.Context, symbol string) (domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions WHERE symbol = $1`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", symbol, err)
	}
	return p, nil
}

// Delete removes the record for symbol. Deleting an absent record is a no-op.
func (s *PositionStore) Delete(ctx context.Context, symbol string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("postgres: delete position %s: %w", symbol, err)
	}
	return nil
}

// List returns every stored position.
func (s *PositionStore) List(ctx context.Context) ([]domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions ORDER BY symbol`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
