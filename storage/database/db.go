package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/cems/core"
	appfs "github.com/trezcool/cems/fs"
)

const (
	maintenanceDB = "postgres"

	readyAttempts = 30
	readyStep     = 100 * time.Millisecond

	roleExistsQuery = "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)"
	dbExistsQuery   = "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)"
)

var gooseRun = goose.RunFS // mockable

// dsn builds the connection URL of dbName, as the admin user when admin is set and one is configured.
func dsn(dbc core.DatabaseConfig, dbName string, admin bool) string {
	user := url.UserPassword(dbc.User, dbc.Password)
	if admin && dbc.AdminUser != "" {
		user = url.UserPassword(dbc.AdminUser, dbc.AdminPassword)
	}

	q := make(url.Values)
	q.Set("sslmode", "require")
	if dbc.DisableTLS {
		q.Set("sslmode", "disable")
	}
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   dbc.Engine,
		User:     user,
		Host:     dbc.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open returns a handle on the application database; it does not connect.
func Open(conf *core.Config) (*sqlx.DB, error) {
	return sqlx.Open(conf.Database.Engine, dsn(conf.Database, conf.Database.Name, false))
}

// waitReady pings db until it answers, waiting one more step after each failed attempt.
func waitReady(ctx context.Context, db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for database")
		case <-time.After(time.Duration(attempt) * readyStep):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func createUserStmt(user, password string) string {
	return fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s", pq.QuoteIdentifier(user), pq.QuoteLiteral(password))
}

func createDBStmt(name string) string {
	return "CREATE DATABASE " + pq.QuoteIdentifier(name)
}

// ensure executes create unless the exists query finds name.
func ensure(ctx context.Context, db *sqlx.DB, exists, name, create string) error {
	var found bool
	if err := db.GetContext(ctx, &found, exists, name); err != nil {
		return errors.Wrapf(err, "looking up %q", name)
	}
	if found {
		return nil
	}
	_, err := db.ExecContext(ctx, create)
	return errors.Wrapf(err, "creating %q", name)
}

// connectMaintenance connects to the maintenance database once it is ready.
func connectMaintenance(ctx context.Context, conf *core.Config, admin bool) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Database.Engine, dsn(conf.Database, maintenanceDB, admin))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = waitReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateIfNotExist creates the application user (as the admin user), then the application database (as the
// application user, so that it owns it).
func CreateIfNotExist(conf *core.Config) error {
	ctx := context.Background()

	if conf.Database.User != "" {
		admin, err := connectMaintenance(ctx, conf, true)
		if err != nil {
			return err
		}
		err = ensure(ctx, admin, roleExistsQuery, conf.Database.User, createUserStmt(conf.Database.User, conf.Database.Password))
		_ = admin.Close()
		if err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}

	db, err := connectMaintenance(ctx, conf, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return errors.Wrap(
		ensure(ctx, db, dbExistsQuery, conf.Database.Name, createDBStmt(conf.Database.Name)),
		"creating database",
	)
}

// Migrate runs a goose command (up, up-to VERSION, down, status...) over the embedded migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	return gooseRun(command, db, appfs.FS, appfs.MigrationsDir, args...)
}
