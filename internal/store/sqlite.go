package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"TrendScout/internal/model"
)

// SQLiteStore persists bars to a SQLite database. Reads may proceed
// concurrently; writes are serialized per symbol.
type SQLiteStore struct {
	db   *sql.DB
	path string

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so scan workers can read while fetches write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		path:  dbPath,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] bar store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			symbol     TEXT NOT NULL,
			date       TEXT NOT NULL,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			volume     REAL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_symbol ON bars(symbol)`,

		`CREATE TABLE IF NOT EXISTS symbols (
			symbol        TEXT PRIMARY KEY,
			last_fetched  INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL,
			rows          INTEGER DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		s.locks[symbol] = l
	}
	return l
}

// Put merges bars into the cache. Existing dates are replaced by the
// new values; the symbol's last_fetched timestamp is updated.
func (s *SQLiteStore) Put(symbol string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	l := s.symbolLock(symbol)
	l.Lock()
	defer l.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin put %s: %w", symbol, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO bars
		(symbol, date, open, high, low, close, volume, fetched_at)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare put %s: %w", symbol, err)
	}
	defer stmt.Close()

	now := s.now().Unix()
	for _, b := range bars {
		fetched := b.FetchedAt.Unix()
		if b.FetchedAt.IsZero() {
			fetched = now
		}
		if _, err := stmt.Exec(symbol, model.Day(b.Date).Format(model.DateKey),
			b.Open, b.High, b.Low, b.Close, b.Volume, fetched); err != nil {
			return fmt.Errorf("insert bar %s %s: %w", symbol, b.Date.Format(model.DateKey), err)
		}
	}

	var rows int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM bars WHERE symbol=?`, symbol).Scan(&rows); err != nil {
		return fmt.Errorf("count bars %s: %w", symbol, err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO symbols (symbol, last_fetched, last_accessed, rows)
		VALUES (?,?,?,?)`, symbol, now, now, rows); err != nil {
		return fmt.Errorf("update symbol meta %s: %w", symbol, err)
	}
	return tx.Commit()
}

// Get returns the cached bars for symbol within [from, to] ascending
// and touches the symbol's access time.
func (s *SQLiteStore) Get(symbol string, from, to time.Time) ([]model.Bar, error) {
	rows, err := s.db.Query(`SELECT date, open, high, low, close, volume, fetched_at
		FROM bars WHERE symbol=? AND date>=? AND date<=? ORDER BY date ASC`,
		symbol, model.Day(from).Format(model.DateKey), model.Day(to).Format(model.DateKey))
	if err != nil {
		return nil, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var dateStr string
		var fetchedAt int64
		b := model.Bar{Symbol: symbol}
		if err := rows.Scan(&dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", symbol, err)
		}
		date, err := time.ParseInLocation(model.DateKey, dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse date %q for %s: %w", dateStr, symbol, err)
		}
		b.Date = date
		b.FetchedAt = time.Unix(fetchedAt, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars %s: %w", symbol, err)
	}

	if len(bars) > 0 {
		if _, err := s.db.Exec(`UPDATE symbols SET last_accessed=? WHERE symbol=?`,
			s.now().Unix(), symbol); err != nil {
			log.Printf("[WARN] touch access time for %s: %v", symbol, err)
		}
	}
	return bars, nil
}

// IsFresh compares the symbol's last fetch time to now.
func (s *SQLiteStore) IsFresh(symbol string, window time.Duration) (bool, error) {
	var lastFetched int64
	err := s.db.QueryRow(`SELECT last_fetched FROM symbols WHERE symbol=?`, symbol).Scan(&lastFetched)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query symbol meta %s: %w", symbol, err)
	}
	return s.now().Sub(time.Unix(lastFetched, 0)) <= window, nil
}

// GetStats reports database usage for the cache-info command.
func (s *SQLiteStore) GetStats() (Stats, error) {
	st := Stats{Path: s.path}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&st.TotalSymbols); err != nil {
		return st, fmt.Errorf("count symbols: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(rows),0) FROM symbols`).Scan(&st.TotalRows); err != nil {
		return st, fmt.Errorf("sum rows: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	return st, nil
}

// Prune evicts whole symbols until the store is under maxSymbols and
// maxBytes (zero disables the respective limit). Policy selects the
// eviction order. Returns the evicted symbols.
func (s *SQLiteStore) Prune(maxSymbols int, maxBytes int64, policy string) ([]string, error) {
	orderCol := "last_fetched"
	if policy == PruneByLastAccessed {
		orderCol = "last_accessed"
	}

	st, err := s.GetStats()
	if err != nil {
		return nil, err
	}
	overSymbols := 0
	if maxSymbols > 0 && st.TotalSymbols > maxSymbols {
		overSymbols = st.TotalSymbols - maxSymbols
	}
	overBytes := maxBytes > 0 && st.SizeBytes > maxBytes

	if overSymbols == 0 && !overBytes {
		return nil, nil
	}

	rows, err := s.db.Query(`SELECT symbol FROM symbols ORDER BY ` + orderCol + ` ASC`)
	if err != nil {
		return nil, fmt.Errorf("query prune candidates: %w", err)
	}
	var ordered []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan prune candidate: %w", err)
		}
		ordered = append(ordered, sym)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prune candidates: %w", err)
	}

	var removed []string
	for _, sym := range ordered {
		if len(removed) >= overSymbols && !overBytes {
			break
		}
		if err := s.deleteSymbol(sym); err != nil {
			return removed, err
		}
		removed = append(removed, sym)
		if overBytes {
			if info, err := os.Stat(s.path); err == nil && info.Size() <= maxBytes {
				overBytes = false
			}
		}
	}
	if len(removed) > 0 {
		log.Printf("[INFO] pruned %d symbols from bar store (policy=%s)", len(removed), policy)
	}
	return removed, nil
}

func (s *SQLiteStore) deleteSymbol(symbol string) error {
	l := s.symbolLock(symbol)
	l.Lock()
	defer l.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete %s: %w", symbol, err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM bars WHERE symbol=?`, symbol); err != nil {
		return fmt.Errorf("delete bars %s: %w", symbol, err)
	}
	if _, err := tx.Exec(`DELETE FROM symbols WHERE symbol=?`, symbol); err != nil {
		return fmt.Errorf("delete symbol meta %s: %w", symbol, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
