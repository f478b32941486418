package database

import (
	"context"
	"database/sql"

	"filedrawer.app/web/internal/database/migrations"
	"github.com/pressly/goose/v3"

	_ "github.com/lib/pq"
)

// gooseUp is swapped in tests
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

func ConnectDB(ctx context.Context, dsn string) (*sql.DB, error) {
	// open database
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// check db
	err = db.PingContext(ctx)
	if err != nil {
		return db, err
	}

	return db, nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUp(ctx, db, ".")
}
