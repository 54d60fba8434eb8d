package sqldb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/users-api/internal/config"
	"github.com/aanand-mishra/users-api/internal/storage"
)

// dialect captures what differs between the supported databases: the
// table DDL, the placeholder style, and how the new id comes back from an
// INSERT.
type dialect struct {
	driver      string
	createTable string

	// dollarPlaceholders rewrites "?" into "$1", "$2", ... (PostgreSQL).
	dollarPlaceholders bool

	// returningID reads the id with INSERT ... RETURNING id instead of
	// sql.Result.LastInsertId, which lib/pq does not support.
	returningID bool
}

var dialects = map[string]dialect{
	config.DriverSQLite: {
		driver: config.DriverSQLite,
		createTable: `
			CREATE TABLE IF NOT EXISTS users (
				id      INTEGER PRIMARY KEY AUTOINCREMENT,
				name    TEXT    NOT NULL,
				email   TEXT    NOT NULL UNIQUE,
				age     INTEGER NOT NULL,
				address TEXT    NOT NULL
			)`,
	},
	config.DriverMySQL: {
		driver: config.DriverMySQL,
		createTable: `
			CREATE TABLE IF NOT EXISTS users (
				id      INT AUTO_INCREMENT PRIMARY KEY,
				name    VARCHAR(255) NOT NULL,
				email   VARCHAR(255) NOT NULL UNIQUE,
				age     INT          NOT NULL,
				address JSON         NOT NULL
			)`,
	},
	config.DriverPostgres: {
		driver: config.DriverPostgres,
		createTable: `
			CREATE TABLE IF NOT EXISTS users (
				id      BIGSERIAL PRIMARY KEY,
				name    TEXT      NOT NULL,
				email   TEXT      NOT NULL UNIQUE,
				age     INTEGER   NOT NULL,
				address JSONB     NOT NULL
			)`,
		dollarPlaceholders: true,
		returningID:        true,
	},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
	return d, nil
}

// rebind adapts a query written with "?" placeholders to the dialect.
func (d dialect) rebind(query string) string {
	if !d.dollarPlaceholders {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// classify tags driver errors with the storage sentinels so callers can use
// errors.Is without knowing which driver is in use.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
