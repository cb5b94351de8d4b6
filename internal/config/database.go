// internal/config/database.go
package config

import (
	"fmt"
	"strings"
)

const applicationName = "gemstore"

// DSN renders a libpq keyword/value connection string. Sessions run in UTC so
// analytics day buckets do not depend on the server locale.
func (d *DatabaseConfig) DSN() string {
	return d.dsn(d.Password)
}

// RedactedDSN is DSN with the password masked, for logs.
func (d *DatabaseConfig) RedactedDSN() string {
	if d.Password == "" {
		return d.dsn("")
	}
	return d.dsn("xxxxx")
}

func (d *DatabaseConfig) dsn(password string) string {
	parts := []string{
		"host=" + quoteDSNValue(d.Host),
		"port=" + quoteDSNValue(d.Port),
		"user=" + quoteDSNValue(d.User),
	}
	if password != "" {
		parts = append(parts, "password="+quoteDSNValue(password))
	}
	parts = append(parts,
		"dbname="+quoteDSNValue(d.Database),
		"sslmode="+quoteDSNValue(d.SSLMode),
		"TimeZone=UTC",
		fmt.Sprintf("application_name=%s", applicationName),
	)
	return strings.Join(parts, " ")
}

// quoteDSNValue applies libpq quoting: values with spaces, quotes or
// backslashes are single-quoted with those characters escaped.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
