package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite journals trades and equity snapshots into a SQLite database so runs
// can be queried after the fact.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(instrument, side, quantity, entry_price, exit_price, entry_time, exit_time, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Instrument, t.Side, t.Quantity, t.EntryPrice,
		t.ExitPrice, t.EntryTime, t.ExitTime, t.PnL,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (time, cash, mark_to_market, equity)
		VALUES (?, ?, ?, ?)`,
		e.Time, e.Cash, e.MarkToMarket, e.Equity,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
