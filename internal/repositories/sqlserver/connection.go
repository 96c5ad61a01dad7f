package sqlserver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"tprmgrc/internal/models/entities"

	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrOptimisticLock is returned when a row changed since it was read
	ErrOptimisticLock = errors.New("row was modified concurrently")
)

// UniqueConflictError reports a violated unique constraint
type UniqueConflictError struct {
	Field string
	Err   error
}

func (e *UniqueConflictError) Error() string {
	return fmt.Sprintf("unique constraint violated on %s", e.Field)
}

func (e *UniqueConflictError) Unwrap() error { return e.Err }

// ForeignKeyError reports a reference to a row that does not exist
type ForeignKeyError struct {
	Field string
	Err   error
}

func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("foreign key violated on %s", e.Field)
}

func (e *ForeignKeyError) Unwrap() error { return e.Err }

// Internal wraps the relational store
type Internal struct {
	db *gorm.DB
}

// Tx is a unit of work; every store operation hangs off it
type Tx struct {
	db *gorm.DB
}

// NewSQLServerInternal connects to SQL Server using the SQLSERVER_* variables
func NewSQLServerInternal() (*Internal, error) {
	q := url.Values{}
	q.Set("database", os.Getenv("SQLSERVER_DATABASE"))

	dsn := (&url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(os.Getenv("SQLSERVER_USERNAME"), os.Getenv("SQLSERVER_PASSWORD")),
		Host:     os.Getenv("SQLSERVER_HOST") + ":" + os.Getenv("SQLSERVER_PORT"),
		RawQuery: q.Encode(),
	}).String()

	s, err := Open(sqlserver.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return s, nil
}

// Open wraps any gorm dialector; tests pass an in-memory sqlite one
func Open(dialector gorm.Dialector, cfg *gorm.Config) (*Internal, error) {
	if cfg == nil {
		cfg = &gorm.Config{TranslateError: true}
	}
	cfg.TranslateError = true

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &Internal{db: db}, nil
}

// AutoMigrate creates or updates every table the engine owns
func (s *Internal) AutoMigrate() error {
	return s.db.AutoMigrate(
		&entities.Contract{},
		&entities.ContractTerm{},
		&entities.ContractClause{},
		&entities.ContractAmendment{},
		&entities.ContractRenewal{},
		&entities.Approval{},
		&entities.SLA{},
		&entities.Vendor{},
		&entities.VendorContact{},
		&entities.RFP{},
		&entities.VendorInvitation{},
		&entities.RetentionTimeline{},
		&entities.TermQuestionnaire{},
	)
}

// DB exposes the gorm handle for migrations and test setup
func (s *Internal) DB() *gorm.DB {
	return s.db
}

// Ping checks the connection
func (s *Internal) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool
func (s *Internal) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn in one transaction. A context that expires before
// commit rolls the transaction back.
func (s *Internal) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(g *gorm.DB) error {
		if err := fn(&Tx{db: g}); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// Begin opens a transaction the caller must Commit or Rollback
func (s *Internal) Begin(ctx context.Context) (*Tx, error) {
	g := s.db.WithContext(ctx).Begin()
	if g.Error != nil {
		return nil, g.Error
	}
	return &Tx{db: g}, nil
}

// Reader returns a non-transactional handle for read paths
func (s *Internal) Reader(ctx context.Context) *Tx {
	return &Tx{db: s.db.WithContext(ctx)}
}

// Commit commits a transaction opened by Begin
func (t *Tx) Commit() error {
	if err := t.db.Statement.Context.Err(); err != nil {
		t.db.Rollback()
		return err
	}
	return t.db.Commit().Error
}

// Rollback aborts a transaction opened by Begin
func (t *Tx) Rollback() error {
	return t.db.Rollback().Error
}

// Savepoint runs fn inside a nested transaction. A failure rolls back
// only the work done by fn.
func (t *Tx) Savepoint(fn func(tx *Tx) error) error {
	return t.db.Transaction(func(g *gorm.DB) error {
		return fn(&Tx{db: g})
	})
}

// translate maps driver errors to store errors. field names the unique
// or foreign key the statement can violate.
func translate(err error, field string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &UniqueConflictError{Field: field, Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &ForeignKeyError{Field: field, Err: err}
	default:
		return err
	}
}

// paginate clamps page arguments the way the list endpoints expect
func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return (page - 1) * pageSize, pageSize
}
