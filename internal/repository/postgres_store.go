package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"FinLoad/internal/domain/errs"
	"FinLoad/internal/domain/models"
	domrepo "FinLoad/internal/domain/repository"
)

// PostgresStore implements PriceStore on PostgreSQL.
// Upsert reports rows actually inserted: ON CONFLICT DO NOTHING rows are not counted.
type PostgresStore struct {
	db    *gorm.DB
	table string
}

// NewPostgresStore creates a PostgreSQL price store writing to table.
func NewPostgresStore(db *gorm.DB, table string) *PostgresStore {
	return &PostgresStore{db: db, table: table}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if err := ValidateTable(s.table); err != nil {
		return errs.Store("ensure schema", err)
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol   TEXT             NOT NULL,
			datetime TIMESTAMP        NOT NULL,
			open     DOUBLE PRECISION,
			high     DOUBLE PRECISION,
			low      DOUBLE PRECISION,
			close    DOUBLE PRECISION,
			volume   BIGINT,
			PRIMARY KEY (symbol, datetime)
		)`, s.table),
		// Tables created before the key existed still need a conflict target.
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_symbol_datetime_key ON %s (symbol, datetime)`,
			strings.ReplaceAll(s.table, ".", "_"), s.table),
	}
	db := s.db.WithContext(ctx)
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return errs.Store("ensure schema", err)
		}
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rows []models.PriceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var written int64
	// Connection pins one pooled connection for the whole load and returns it on exit.
	err := s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return conn.Transaction(func(tx *gorm.DB) error {
			res := tx.Table(s.table).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "symbol"}, {Name: "datetime"}},
					DoNothing: true,
				}).
				CreateInBatches(rows, upsertChunkSize)
			if res.Error != nil {
				return res.Error
			}
			written = res.RowsAffected
			return nil
		})
	})
	if err != nil {
		return 0, errs.Store("upsert", err)
	}
	return int(written), nil
}

func (s *PostgresStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PriceRow, error) {
	var rows []models.PriceRow
	q := s.db.WithContext(ctx).Table(s.table).
		Where("symbol = ? AND datetime >= ? AND datetime <= ?", symbol, from, to).
		Order("datetime ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, errs.Store("query", err)
	}
	return rows, nil
}

func (s *PostgresStore) Latest(ctx context.Context, symbol string) (*models.PriceRow, error) {
	var row models.PriceRow
	err := s.db.WithContext(ctx).Table(s.table).
		Where("symbol = ?", symbol).
		Order("datetime DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Store("latest", err)
	}
	return &row, nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return nil // pool owned by pkg/postgres
}

var _ domrepo.PriceStore = (*PostgresStore)(nil)
