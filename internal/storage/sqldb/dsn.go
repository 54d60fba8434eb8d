package sqldb

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/aanand-mishra/users-api/internal/config"
)

// buildDSN turns the storage config into the driver's data source name.
//
// MySQL DSNs always get clientFoundRows=true: without it the server reports
// rows *changed* rather than rows *matched*, and an UPDATE that rewrites a
// row with identical values would look like a missing id.
func buildDSN(cfg config.Storage) (string, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if cfg.DSN != "" {
			return cfg.DSN, nil
		}
		if cfg.Database == "" {
			return "", errors.New("sqlite3: database path is required")
		}
		return cfg.Database, nil

	case config.DriverMySQL:
		var mc *mysql.Config
		if cfg.DSN != "" {
			parsed, err := mysql.ParseDSN(cfg.DSN)
			if err != nil {
				return "", fmt.Errorf("mysql: parse dsn: %w", err)
			}
			mc = parsed
		} else {
			if cfg.Host == "" || cfg.Database == "" {
				return "", errors.New("mysql: host and database are required")
			}
			mc = mysql.NewConfig()
			mc.User = cfg.User
			mc.Passwd = cfg.Password
			mc.Net = "tcp"
			mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(portOr(cfg.Port, 3306)))
			mc.DBName = cfg.Database
		}
		mc.ClientFoundRows = true
		return mc.FormatDSN(), nil

	case config.DriverPostgres:
		if cfg.DSN != "" {
			return cfg.DSN, nil
		}
		if cfg.Host == "" || cfg.Database == "" {
			return "", errors.New("postgres: host and database are required")
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(portOr(cfg.Port, 5432))),
			Path:     "/" + cfg.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
}

func portOr(port, def int) int {
	if port == 0 {
		return def
	}
	return port
}
