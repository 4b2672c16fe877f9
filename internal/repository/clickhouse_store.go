package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
	domrepo "FinLoad/internal/domain/repository"
)

// ClickHouseStore implements PriceStore on a ReplacingMergeTree table.
// ClickHouse has no ON CONFLICT, so Upsert reads the keys already present in the
// batch's time span and inserts only the missing ones. Two writers racing on the
// same key may both insert; the engine collapses those on merge and reads use FINAL.
type ClickHouseStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseStore creates a ClickHouse price store writing to table.
func NewClickHouseStore(db *sql.DB, table string) *ClickHouseStore {
	return &ClickHouseStore{db: db, table: table}
}

func (s *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := ValidateTable(s.table); err != nil {
		return errs.Store("ensure schema", err)
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		symbol   String,
		datetime DateTime,
		open     Float64,
		high     Float64,
		low      Float64,
		close    Float64,
		volume   Int64
	) ENGINE = ReplacingMergeTree ORDER BY (symbol, datetime)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return errs.Store("ensure schema", err)
	}
	return nil
}

func (s *ClickHouseStore) Upsert(ctx context.Context, rows []models.PriceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, errs.Store("acquire connection", err)
	}
	defer conn.Close()

	written := 0
	for symbol, group := range groupBySymbol(rows) {
		existing, err := s.existingKeys(ctx, conn, symbol, group)
		if err != nil {
			return written, errs.Store("read existing keys", err)
		}

		fresh := make([]models.PriceRow, 0, len(group))
		for _, r := range group {
			k := r.Key()
			if _, ok := existing[k.Timestamp]; ok {
				continue
			}
			existing[k.Timestamp] = struct{}{}
			fresh = append(fresh, r)
		}

		if err := s.insert(ctx, conn, fresh); err != nil {
			return written, errs.Store("insert", err)
		}
		written += len(fresh)
	}
	return written, nil
}

func (s *ClickHouseStore) existingKeys(ctx context.Context, conn *sql.Conn, symbol string, group []models.PriceRow) (map[time.Time]struct{}, error) {
	from, to := group[0].Timestamp, group[0].Timestamp
	for _, r := range group[1:] {
		if r.Timestamp.Before(from) {
			from = r.Timestamp
		}
		if r.Timestamp.After(to) {
			to = r.Timestamp
		}
	}

	q := fmt.Sprintf("SELECT datetime FROM %s FINAL WHERE symbol = ? AND datetime >= ? AND datetime <= ?", s.table)
	rs, err := conn.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	out := make(map[time.Time]struct{})
	for rs.Next() {
		var ts time.Time
		if err := rs.Scan(&ts); err != nil {
			return nil, err
		}
		out[ts.UTC()] = struct{}{}
	}
	return out, rs.Err()
}

func (s *ClickHouseStore) insert(ctx context.Context, conn *sql.Conn, rows []models.PriceRow) error {
	for start := 0; start < len(rows); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, r := range rows[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, r.Symbol, r.Timestamp.UTC(), r.Open, r.High, r.Low, r.Close, r.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, datetime, open, high, low, close, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := conn.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PriceRow, error) {
	q := fmt.Sprintf(`SELECT symbol, datetime, open, high, low, close, volume FROM %s FINAL
		WHERE symbol = ? AND datetime >= ? AND datetime <= ? ORDER BY datetime ASC`, s.table)
	args := []interface{}{symbol, from, to}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return s.scan(ctx, "query", q, args...)
}

func (s *ClickHouseStore) Latest(ctx context.Context, symbol string) (*models.PriceRow, error) {
	q := fmt.Sprintf(`SELECT symbol, datetime, open, high, low, close, volume FROM %s FINAL
		WHERE symbol = ? ORDER BY datetime DESC LIMIT 1`, s.table)
	rows, err := s.scan(ctx, "latest", q, symbol)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (s *ClickHouseStore) scan(ctx context.Context, op, q string, args ...interface{}) ([]models.PriceRow, error) {
	rs, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errs.Store(op, err)
	}
	defer rs.Close()

	var out []models.PriceRow
	for rs.Next() {
		var r models.PriceRow
		if err := rs.Scan(&r.Symbol, &r.Timestamp, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume); err != nil {
			return nil, errs.Store(op, err)
		}
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, errs.Store(op, err)
	}
	return out, nil
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStore) Close() error {
	return nil // Managed by pkg
}

func groupBySymbol(rows []models.PriceRow) map[string][]models.PriceRow {
	out := make(map[string][]models.PriceRow)
	for _, r := range rows {
		out[r.Symbol] = append(out[r.Symbol], r)
	}
	return out
}

var _ domrepo.PriceStore = (*ClickHouseStore)(nil)
