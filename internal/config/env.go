package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	// EnvBegin is a start URL, or several separated by commas.
	EnvBegin = "PAGEHUNTER_BEGIN"

	// EnvMaxCrawl is the visit budget.
	EnvMaxCrawl = "PAGEHUNTER_MAX_CRAWL"

	// EnvDatabaseURL is a PostgreSQL DSN.
	EnvDatabaseURL = "PAGEHUNTER_DATABASE_URL"

	// EnvDatabase, EnvDatabaseUsername and EnvDatabasePassword build a DSN
	// for a PostgreSQL server on localhost:5432 when EnvDatabaseURL is unset.
	EnvDatabase         = "PAGEHUNTER_DATABASE"
	EnvDatabaseUsername = "PAGEHUNTER_DATABASE_USERNAME"
	EnvDatabasePassword = "PAGEHUNTER_DATABASE_PASSWORD"

	// EnvUserAgent overrides the User-Agent header.
	EnvUserAgent = "PAGEHUNTER_USER_AGENT"

	// EnvProxy is a SOCKS5 proxy address.
	EnvProxy = "PAGEHUNTER_PROXY"
)

// DefaultEnvFile is the dotenv file read from the working directory.
const DefaultEnvFile = ".env"

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvLookup returns a lookup over the process environment with the
// variables of the dotenv file at path as fallback. Process variables take
// precedence. A missing file is not an error.
func EnvLookup(path string) (LookupFunc, error) {
	fileEnv, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		fileEnv = map[string]string{}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}, nil
}

// ApplyEnv overrides defaults with PAGEHUNTER_* variables.
// Empty variables are ignored. It must run before CLI flags are applied,
// so that flags win over the environment.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get(EnvBegin); v != "" {
		seeds := make([]string, 0)
		for s := range strings.SplitSeq(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				seeds = append(seeds, s)
			}
		}
		c.Seeds = seeds
	}

	if v := get(EnvMaxCrawl); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvMaxCrawl, v)
		}
		c.MaxPages = n
	}

	if v := get(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	} else if name := get(EnvDatabase); name != "" {
		c.DatabaseURL = postgresDSN(name, get(EnvDatabaseUsername), get(EnvDatabasePassword))
	}

	if v := get(EnvUserAgent); v != "" {
		c.UserAgent = v
	}
	if v := get(EnvProxy); v != "" {
		c.ProxyAddress = v
	}
	return nil
}

func postgresDSN(database, user, password string) string {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort("localhost", "5432"),
		Path:     "/" + database,
		RawQuery: "sslmode=disable",
	}
	switch {
	case user != "" && password != "":
		u.User = url.UserPassword(user, password)
	case user != "":
		u.User = url.User(user)
	}
	return u.String()
}
