package journal

// ListTrades returns every journaled trade ordered by exit time.
func (j *SQLite) ListTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT instrument, side, quantity, entry_price, exit_price, entry_time, exit_time, pnl
		FROM trades
		ORDER BY exit_time ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.Instrument,
			&rec.Side,
			&rec.Quantity,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.PnL,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// TotalPnL sums realized PnL across all journaled trades.
func (j *SQLite) TotalPnL() (float64, error) {
	row := j.db.QueryRow(`SELECT COALESCE(SUM(pnl), 0) FROM trades`)
	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
