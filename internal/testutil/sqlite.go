// Package testutil builds throwaway SQLite databases carrying the same
// tables the Postgres migrations create.
package testutil

import (
	"github.com/frahmantamala/site-access/internal/core/datamodel/accesslog"
	"github.com/frahmantamala/site-access/internal/core/datamodel/employee"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const errorLogsDDL = `CREATE TABLE error_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	message TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL
)`

// NewSQLiteDB opens a private in-memory database. The pool is pinned to one
// connection because every new SQLite :memory: connection is a new, empty
// database.
func NewSQLiteDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&employee.Employee{}, &employee.Fingerprint{}, &accesslog.AccessLog{}); err != nil {
		return nil, err
	}
	if err := db.Exec(errorLogsDDL).Error; err != nil {
		return nil, err
	}
	return db, nil
}

// SQLX wraps the same pool for repositories written against sqlx.
func SQLX(db *gorm.DB) *sqlx.DB {
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	return sqlx.NewDb(sqlDB, "sqlite3")
}

func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
