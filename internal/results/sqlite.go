package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rsibacktester/internal/engine"
	"rsibacktester/types"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	label          TEXT    NOT NULL,
	starting_value TEXT    NOT NULL,
	ending_value   TEXT    NOT NULL,
	bar_count      INTEGER NOT NULL,
	start_at       TEXT    NOT NULL,
	end_at         TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	run_id        INTEGER NOT NULL REFERENCES runs(id),
	order_id      INTEGER NOT NULL,
	side          TEXT    NOT NULL,
	size          TEXT    NOT NULL,
	status        TEXT    NOT NULL,
	created_bar   INTEGER NOT NULL,
	fill_price    TEXT,
	reject_reason TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, order_id)
);
CREATE TABLE IF NOT EXISTS trades (
	run_id         INTEGER NOT NULL REFERENCES runs(id),
	trade_id       INTEGER NOT NULL,
	entry_order_id INTEGER NOT NULL,
	exit_order_id  INTEGER NOT NULL,
	size           TEXT    NOT NULL,
	entry_price    TEXT    NOT NULL,
	exit_price     TEXT    NOT NULL,
	gross_pnl      TEXT    NOT NULL,
	net_pnl        TEXT    NOT NULL,
	commission     TEXT    NOT NULL,
	opened_bar     INTEGER NOT NULL,
	closed_bar     INTEGER NOT NULL,
	PRIMARY KEY (run_id, trade_id)
);
`

// Run is a stored run summary.
type Run struct {
	ID            int64
	Label         string
	StartingValue decimal.Decimal
	EndingValue   decimal.Decimal
	BarCount      int
	Start         time.Time
	End           time.Time
}

// Store keeps finished runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath and makes sure the
// tables exist.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the summary, orders and trades of a run in one transaction
// and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, label string, r *engine.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (label, starting_value, ending_value, bar_count, start_at, end_at) VALUES (?, ?, ?, ?, ?, ?)`,
		label, r.StartingValue.String(), r.EndingValue.String(), r.BarCount,
		r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, o := range r.Orders {
		var fillPrice sql.NullString
		if o.Execution != nil {
			fillPrice = sql.NullString{String: o.Execution.Price.String(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (run_id, order_id, side, size, status, created_bar, fill_price, reject_reason) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, o.ID, string(o.Side), o.Size.String(), string(o.Status), o.CreatedBar, fillPrice, o.RejectReason); err != nil {
			return 0, fmt.Errorf("insert order %d: %w", o.ID, err)
		}
	}

	for _, t := range r.Trades {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, trade_id, entry_order_id, exit_order_id, size, entry_price, exit_price, gross_pnl, net_pnl, commission, opened_bar, closed_bar)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, t.ID, t.EntryOrderID, t.ExitOrderID, t.Size.String(), t.EntryPrice.String(), t.ExitPrice.String(),
			t.GrossPnL.String(), t.NetPnL.String(), t.Commission.String(), t.OpenedBar, t.ClosedBar); err != nil {
			return 0, fmt.Errorf("insert trade %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, starting_value, ending_value, bar_count, start_at, end_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns every stored run, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, starting_value, ending_value, bar_count, start_at, end_at FROM runs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListTrades returns a run's trades in close order.
func (s *Store) ListTrades(ctx context.Context, runID int64) ([]types.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_id, entry_order_id, exit_order_id, size, entry_price, exit_price, gross_pnl, net_pnl, commission, opened_bar, closed_bar
		 FROM trades WHERE run_id = ? ORDER BY trade_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []types.Trade
	for rows.Next() {
		var t types.Trade
		var size, entry, exit, gross, net, commission string
		if err := rows.Scan(&t.ID, &t.EntryOrderID, &t.ExitOrderID, &size, &entry, &exit, &gross, &net, &commission, &t.OpenedBar, &t.ClosedBar); err != nil {
			return nil, err
		}
		decimals, err := parseDecimals(size, entry, exit, gross, net, commission)
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", t.ID, err)
		}
		t.Size, t.EntryPrice, t.ExitPrice = decimals[0], decimals[1], decimals[2]
		t.GrossPnL, t.NetPnL, t.Commission = decimals[3], decimals[4], decimals[5]
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// CountOrders returns how many of a run's orders ended in status.
func (s *Store) CountOrders(ctx context.Context, runID int64, status types.OrderStatus) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE run_id = ? AND status = ?`, runID, string(status)).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var starting, ending, startAt, endAt string
	if err := row.Scan(&run.ID, &run.Label, &starting, &ending, &run.BarCount, &startAt, &endAt); err != nil {
		return nil, err
	}
	values, err := parseDecimals(starting, ending)
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", run.ID, err)
	}
	run.StartingValue, run.EndingValue = values[0], values[1]
	if run.Start, err = time.Parse(time.RFC3339, startAt); err != nil {
		return nil, err
	}
	if run.End, err = time.Parse(time.RFC3339, endAt); err != nil {
		return nil, err
	}
	return &run, nil
}

func parseDecimals(raw ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(raw))
	for i, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
