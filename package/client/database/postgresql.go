package database

import (
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Gurjant002/api-g-books/internal/config"
	"github.com/Gurjant002/api-g-books/package/logger"
)

//go:embed schema.sql
var schema string

func Init(config *config.Config) *sqlx.DB {
	logger.Log.Info(fmt.Sprintf("Connecting to host=%s port=%d user=%s dbname=%s",
		config.Storage.Host, config.Storage.Port, config.Storage.Username, config.Storage.Database))
	psqlconn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		config.Storage.Host, config.Storage.Port, config.Storage.Username, config.Storage.Password, config.Storage.Database)

	db, err := sqlx.Connect("postgres", psqlconn)
	if err != nil {
		logger.Log.Error(err)
		logger.Log.Fatal("Can not connect to database")
	}

	if err := Migrate(db); err != nil {
		logger.Log.Error(err)
		logger.Log.Fatal("Can not apply database schema")
	}

	logger.Log.Info("Connected to database")
	return db
}

// Migrate applies the embedded schema. Every statement is IF NOT EXISTS,
// so running it on an already provisioned database is a no-op.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
