package repos

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"roomservice/internal/config"
)

// OpenDB connects to the configured store, applies the schema and, when asked,
// seeds demo data. The caller owns the returned handle and must Close it.
// A nil log discards output.
func OpenDB(cfg config.DB, log *zap.Logger) (*sqlx.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	driver, dsn := cfg.Driver, cfg.DSN
	switch driver {
	case "", "sqlite":
		driver, dsn = "sqlite", sqliteDSN(dsn)
	case "pgx", "postgres":
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		// every new connection to :memory: is a separate, empty database
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if cfg.Seed {
		if err := seedIfEmpty(db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// sqliteDSN turns on foreign keys, waits on locks instead of failing with
// SQLITE_BUSY, makes every transaction take the write lock at BEGIN and stores
// times in a sortable text form.
func sqliteDSN(dsn string) string {
	params := "_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_txlock=immediate&_time_format=sqlite"
	if !strings.Contains(dsn, ":memory:") {
		params += "&_pragma=journal_mode(WAL)"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params
}

// InTx runs fn inside a transaction, committing only when fn returns nil.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "pgx" {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";\n") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

func seedIfEmpty(db *sqlx.DB, log *zap.Logger) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM rooms`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Info("seeding demo data", zap.Strings("tables", []string{"rooms", "categories", "products", "users"}))

	type u struct {
		Email, Name, Role string
		Room              int64
	}
	users := []u{
		{"alice@roomservice.test", "Alice", "user", 1},
		{"bob@roomservice.test", "Bob", "user", 2},
		{"admin@roomservice.test", "Admin", "admin", 1},
	}

	return InTx(context.Background(), db, func(tx *sqlx.Tx) error {
		stmts := []string{
			`INSERT INTO rooms(name) VALUES ('Room 101'), ('Room 102'), ('Conference A')`,
			`INSERT INTO categories(name) VALUES ('Hot Drinks'), ('Cold Drinks'), ('Snacks')`,
			`INSERT INTO products(name, price, category_id, availability) VALUES
			  ('Espresso', 2.50, 1, 'available'),
			  ('Cappuccino', 3.75, 1, 'available'),
			  ('Iced Tea', 2.25, 2, 'available'),
			  ('Lemonade', 2.00, 2, 'unavailable'),
			  ('Croissant', 1.80, 3, 'available')`,
		}
		for _, s := range stmts {
			if _, err := tx.Exec(s); err != nil {
				return err
			}
		}
		for _, x := range users {
			h, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(tx.Rebind(`
				INSERT INTO users(email, name, password_hash, role, room_id)
				VALUES (?, ?, ?, ?, ?)
			`), x.Email, x.Name, string(h), x.Role, x.Room); err != nil {
				return err
			}
		}
		return nil
	})
}
