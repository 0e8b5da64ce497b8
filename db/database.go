package db

import (
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDatabase opens the SQLite journal at dbPath and migrates its schema.
func InitDatabase(dbPath string) error {
	// Configure GORM logger
	newLogger := gormlogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,     // Slow SQL threshold
			LogLevel:                  gormlogger.Warn, // Log level (Warn, Error, Info)
			IgnoreRecordNotFoundError: true,            // Ignore ErrRecordNotFound error
			ParameterizedQueries:      false,
			Colorful:                  true,
		},
	)

	conn, err := gorm.Open(gormlite.Open(dbPath), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	if err := conn.AutoMigrate(&Operation{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	DB = conn
	return nil
}

// Record appends op to the journal.
func Record(op *Operation) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.Create(op).Error
}

// History returns the latest operations, newest first. A non-empty
// identity restricts the result to that mod.
func History(identity string, limit int) ([]Operation, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	var ops []Operation
	q := DB.Order("id desc")
	if identity != "" {
		q = q.Where("identity = ?", identity)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

// LastInstall returns the most recent successful install of identity, or
// gorm.ErrRecordNotFound.
func LastInstall(identity string) (*Operation, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	var op Operation
	err := DB.Where("identity = ? AND kind = ? AND result = ?", identity, "install", "ok").
		Order("id desc").
		First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}
