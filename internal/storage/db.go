package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"billsplit/internal/models"

	// Pure Go SQLite driver, registered as "sqlite"
	_ "modernc.org/sqlite"
)

// DB wraps a gorm connection.
type DB struct {
	conn *gorm.DB
}

// Open connects to the database named by url and runs migrations.
// postgres:// and postgresql:// URLs select PostgreSQL; anything else is
// treated as a SQLite file path (":memory:" included).
func Open(url string) (*DB, error) {
	dialector, isSQLite, err := dialectorFor(url)
	if err != nil {
		return nil, err
	}

	db, err := New(dialector)
	if err != nil {
		return nil, err
	}

	if isSQLite {
		sqlDB, err := db.conn.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		// SQLite allows a single writer; one connection also keeps
		// ":memory:" databases alive across calls.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// New opens gorm over an arbitrary dialector without migrating.
func New(dialector gorm.Dialector) (*DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.SetupJoinTable(&models.Group{}, "Bills", &models.GroupBill{}); err != nil {
		return nil, fmt.Errorf("failed to set up group_bills: %w", err)
	}

	return &DB{conn: conn}, nil
}

func dialectorFor(url string) (gorm.Dialector, bool, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return postgres.Open(url), false, nil
	}

	path := strings.TrimPrefix(url, "sqlite://")
	if path == "" {
		return nil, false, errors.New("empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, false, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	return &sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, true, nil
}

// Migrate creates or updates every table.
func (db *DB) Migrate() error {
	return db.conn.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Bill{},
		&models.GroupBill{},
		&models.Membership{},
		&models.Session{},
	)
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// notFound maps gorm's missing-row error to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
