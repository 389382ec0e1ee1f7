// internal/storage/sqlite/schema.go
package sqlite

// Decimal columns are TEXT so values round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS stock_prices (
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	open_price TEXT NOT NULL,
	high_price TEXT NOT NULL,
	low_price TEXT NOT NULL,
	close_price TEXT NOT NULL,
	volume INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_stock_prices_date ON stock_prices(date);

CREATE TABLE IF NOT EXISTS backtest_results (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	total_days INTEGER NOT NULL,
	initial_capital TEXT NOT NULL,
	final_capital TEXT NOT NULL,
	total_return TEXT NOT NULL,
	num_trades INTEGER NOT NULL,
	max_drawdown TEXT NOT NULL,
	cash_reserve TEXT NOT NULL,
	position_size TEXT NOT NULL,
	prediction_threshold TEXT NOT NULL,
	stop_loss TEXT NOT NULL,
	take_profit TEXT NOT NULL,
	winning_trades INTEGER NOT NULL,
	losing_trades INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	sharpe_ratio REAL NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	backtest_id TEXT NOT NULL REFERENCES backtest_results(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	trade_id TEXT NOT NULL,
	entry_date TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	shares INTEGER NOT NULL,
	exit_date TEXT,
	exit_price TEXT,
	profit_loss TEXT,
	exit_reason TEXT,
	PRIMARY KEY (backtest_id, seq)
);
`
