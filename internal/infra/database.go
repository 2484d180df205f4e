package infra

import (
	"database/sql/driver"
	"fmt"
	"log"
	"strings"
	"sync"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"lms.com/internal/config"
	"lms.com/internal/model"
)

var registerLower sync.Once

// registerUnicodeLower replaces sqlite's ASCII-only lower() so that
// case-insensitive search folds accented letters the way postgres does.
// It applies to every sqlite connection opened afterwards.
func registerUnicodeLower() error {
	var err error
	registerLower.Do(func() {
		err = gosqlite.RegisterDeterministicScalarFunction("lower", 1, func(_ *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
	})
	return err
}

type DatabaseClient struct {
	DB *gorm.DB
}

// NewDatabaseClient opens the configured database and migrates the schema.
// Postgres is the production driver; sqlite serves local development and tests.
func NewDatabaseClient(cfg config.DatabaseConfig) (*DatabaseClient, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		if err := registerUnicodeLower(); err != nil {
			return nil, fmt.Errorf("failed to register sqlite functions: %w", err)
		}
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		dialector = sqlite.Open(path + "?_pragma=foreign_keys(1)")
	case "", "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode, cfg.TimeZone)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   cfg.TablePrefix,
			SingularTable: false,
		},
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite" && (cfg.Path == "" || cfg.Path == ":memory:") {
		// 内存库每个连接都是独立的数据库，只能保留一个连接
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Printf("Database connected successfully (%s)", dialector.Name())

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &DatabaseClient{DB: db}, nil
}

// Migrate creates or updates every table of the library schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Student{},
		&model.Admin{},
		&model.UserProfile{},
		&model.Category{},
		&model.Book{},
		&model.BookRequest{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
