package database

import (
	"fmt"
	"net/url"
	"strings"
)

// ConstructDatabaseURL points the base URL at the named journal database.
// An existing database path is replaced, query parameters are kept and sslmode
// defaults to disable. Without a name the base URL is returned untouched.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		// Not a URL we understand (e.g. a keyword/value DSN); append naively
		return fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), databaseName)
	}

	u.Path = "/" + databaseName
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
