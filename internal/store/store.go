package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Supported drivers. Postgres is the production engine; sqlite serves local
// runs and tests.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Store struct {
	db *sqlx.DB
}

// Open connects to the database using the given driver
func Open(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	switch driver {
	case DriverSQLite:
		// a single connection keeps in-memory databases alive and
		// serializes writers the way sqlite expects
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the tables for the connected driver if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ddl, err := schemaFor(s.db.DriverName())
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Tx is the unit of work handed to WithinTx callbacks. Every read and write
// made through it commits or rolls back together.
type Tx struct {
	tx *sqlx.Tx
}

// WithinTx runs fn in a single database transaction. The transaction is
// committed only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, s.db.Rebind(`
		SELECT id, name, description, category, image_url, price, in_stock, stock_quantity, created_at
		FROM products WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// CreateProduct inserts a catalog product. Used for seeding.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := s.db.Rebind(`
		INSERT INTO products (name, description, category, image_url, price, in_stock, stock_quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	return classify(s.db.GetContext(ctx, &product.ID, query,
		product.Name, product.Description, product.Category, product.ImageURL,
		product.Price, product.InStock, product.StockQuantity))
}

// SeedProducts inserts the given products when the catalog is empty and
// returns how many were inserted.
func (s *Store) SeedProducts(ctx context.Context, products []models.Product) (int, error) {
	inserted := 0
	err := s.WithinTx(ctx, func(tx *Tx) error {
		var count int
		if err := tx.tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM products"); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		query := tx.tx.Rebind(`
			INSERT INTO products (name, description, category, image_url, price, in_stock, stock_quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		for _, p := range products {
			if _, err := tx.tx.ExecContext(ctx, query,
				p.Name, p.Description, p.Category, p.ImageURL, p.Price, p.InStock, p.StockQuantity); err != nil {
				return fmt.Errorf("failed to seed product %q: %w", p.Name, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// getProductsByIDs retrieves multiple products by IDs
func getProductsByIDs(ctx context.Context, q sqlx.ExtContext, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, name, description, category, image_url, price, in_stock, stock_quantity, created_at
		FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	products := []models.Product{}
	err = sqlx.SelectContext(ctx, q, &products, q.Rebind(query), args...)
	return products, classify(err)
}

func expectRow(res sql.Result, err error, entity string, id int64) error {
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, models.ErrNotFound)
	}
	return nil
}

// isForeignKeyViolation reports whether err was raised by a reference to a
// missing row, such as a product that is not in the catalog.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), "FOREIGN KEY constraint failed")
	}
	return false
}

// sqlite primary result codes for lock contention
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// classify marks contention and timeout failures as models.ErrTransient so
// callers can decide to retry.
func classify(err error) error {
	if err == nil || errors.Is(err, models.ErrTransient) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"57014": // query_canceled (statement timeout)
			return fmt.Errorf("%w: %w", models.ErrTransient, err)
		}
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return fmt.Errorf("%w: %w", models.ErrTransient, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", models.ErrTransient, err)
	}
	return err
}
