package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	// MySQL driver
	_ "github.com/go-sql-driver/mysql"
)

// identPattern restricts database identifiers to word characters so they
// can be backtick-quoted in DDL. MySQL does not accept placeholders for
// identifiers, so validation plus quoting is the injection defence here;
// everything that can be parameterized (existence queries) is.
var identPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

const defaultDSN = "root@unix(/var/run/mysqld/mysqld.sock)/"

// MySQLAdapterOptions controls how the adapter connects.
type MySQLAdapterOptions struct {
	// DSN is a go-sql-driver DSN for an account allowed to create
	// databases and users.
	DSN string

	// UserHost is the host part of created accounts ('localhost' for a
	// local development box).
	UserHost string
}

// MySQLAdapter manages databases, users, and grants over a direct driver
// connection. No statement ever passes through a shell.
type MySQLAdapter struct {
	db       *sql.DB
	userHost string
}

// NewMySQLAdapter opens a connection pool to the local database engine.
func NewMySQLAdapter(opts MySQLAdapterOptions) (*MySQLAdapter, error) {
	if opts.DSN == "" {
		opts.DSN = defaultDSN
	}
	if opts.UserHost == "" {
		opts.UserHost = "localhost"
	}
	db, err := sql.Open("mysql", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	return &MySQLAdapter{db: db, userHost: opts.UserHost}, nil
}

// Close releases the connection pool.
func (a *MySQLAdapter) Close() error {
	return a.db.Close()
}

// TestConnection pings the database engine.
func (a *MySQLAdapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database engine not reachable: %w", err)
	}
	return nil
}

// DatabaseExists reports whether a schema with the given name exists.
func (a *MySQLAdapter) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.SCHEMATA WHERE SCHEMA_NAME = ?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query schema %s: %w", name, err)
	}
	return count > 0, nil
}

// CreateDatabase creates a database. It fails if the database already
// exists; the orchestrator's conflict scan runs first.
func (a *MySQLAdapter) CreateDatabase(ctx context.Context, name string) error {
	ident, err := quoteIdent(name)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", ident)
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

// DropDatabase drops a database, tolerating its absence.
func (a *MySQLAdapter) DropDatabase(ctx context.Context, name string) error {
	ident, err := quoteIdent(name)
	if err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+ident); err != nil {
		return fmt.Errorf("drop database %s: %w", name, err)
	}
	return nil
}

// UserExists reports whether a database account with the given name exists.
func (a *MySQLAdapter) UserExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM mysql.user WHERE User = ? AND Host = ?", name, a.userHost,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query user %s: %w", name, err)
	}
	return count > 0, nil
}

// CreateUser creates a database account. MySQL does not allow placeholders
// in CREATE USER, so the password is escaped as a string literal; the user
// name is identifier-validated.
func (a *MySQLAdapter) CreateUser(ctx context.Context, name, password string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid database user name %q", name)
	}
	stmt := fmt.Sprintf("CREATE USER '%s'@'%s' IDENTIFIED BY '%s'",
		name, a.userHost, escapeStringLiteral(password))
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create user %s: %w", name, err)
	}
	return nil
}

// DropUser drops a database account, tolerating its absence.
func (a *MySQLAdapter) DropUser(ctx context.Context, name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid database user name %q", name)
	}
	stmt := fmt.Sprintf("DROP USER IF EXISTS '%s'@'%s'", name, a.userHost)
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("drop user %s: %w", name, err)
	}
	return nil
}

// GrantAll grants the user full privileges on one database.
func (a *MySQLAdapter) GrantAll(ctx context.Context, user, database string) error {
	if !identPattern.MatchString(user) {
		return fmt.Errorf("invalid database user name %q", user)
	}
	ident, err := quoteIdent(database)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO '%s'@'%s'", ident, user, a.userHost)
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("grant on %s to %s: %w", database, user, err)
	}
	if _, err := a.db.ExecContext(ctx, "FLUSH PRIVILEGES"); err != nil {
		return fmt.Errorf("flush privileges: %w", err)
	}
	return nil
}

// TableCount returns the number of tables in a database.
func (a *MySQLAdapter) TableCount(ctx context.Context, database string) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = ?", database,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tables in %s: %w", database, err)
	}
	return count, nil
}

func quoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid database identifier %q", name)
	}
	return "`" + name + "`", nil
}

func escapeStringLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}
