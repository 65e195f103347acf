package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
)

// firstNonEmpty returns the first trimmed non-empty value, or "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func portOr(port, fallback int) string {
	if port == 0 {
		port = fallback
	}
	return strconv.Itoa(port)
}

// queryValues drops blank keys and values from a params map.
func queryValues(params map[string]string) neturl.Values {
	q := neturl.Values{}
	for k, v := range params {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// DSNValue is the go-sql-driver DSN: an explicit dsn/url wins, otherwise
// it is assembled from the discrete fields.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := firstNonEmpty(c.DSN, c.URL); v != "" {
		return v
	}

	user := firstNonEmpty(c.User, c.Username, defaultDBUser)
	password := firstNonEmpty(c.Password, defaultDBPassword)
	addr := net.JoinHostPort(firstNonEmpty(c.Host, defaultDBHost), portOr(c.Port, defaultDBPort))
	name := firstNonEmpty(c.Name, c.DBName, defaultDBName)

	q := queryValues(c.Params)
	defaults := map[string]string{
		"charset":   firstNonEmpty(c.Charset, defaultDBCharset),
		"parseTime": strconv.FormatBool(c.ParseTime),
		"loc":       firstNonEmpty(c.Loc, defaultDBLoc),
	}
	for k, v := range defaults {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s", user, password, addr, name)
	if encoded := q.Encode(); encoded != "" {
		dsn += "?" + encoded
	}
	return dsn
}

// URLValue is the redis:// (or rediss://) URL go-redis parses.
func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}
	scheme := "redis"
	switch s := strings.ToLower(strings.TrimSpace(c.Scheme)); {
	case s == "rediss", s == "" && c.TLS:
		scheme = "rediss"
	}

	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(firstNonEmpty(c.Host, defaultRedisHost), portOr(c.Port, defaultRedisPort)),
		Path:   "/" + strconv.Itoa(db),
	}
	username, password := strings.TrimSpace(c.Username), strings.TrimSpace(c.Password)
	switch {
	case password != "":
		u.User = neturl.UserPassword(username, password)
	case username != "":
		u.User = neturl.User(username)
	}
	if q := queryValues(c.Params); len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
