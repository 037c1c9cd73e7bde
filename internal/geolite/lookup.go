package geolite

import (
	"fmt"
	"net"

	"clansite/internal/support"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oschwald/geoip2-golang"
)

const (
	unknownCountry   = "N/A"
	defaultCacheSize = 4096
)

// Lookup resolves IP addresses to ISO country codes from a GeoLite2-Country
// database. A nil *Lookup is valid and resolves everything to "N/A".
type Lookup struct {
	reader *geoip2.Reader
	cache  *lru.Cache[string, string]
}

func Open(path string, cacheSize int) (*Lookup, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geolite: open %s: %w", path, err)
	}

	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("geolite: create cache: %w", err)
	}

	return &Lookup{reader: reader, cache: cache}, nil
}

// FromEnv opens GEOIP_DB_PATH. Country enrichment is disabled when the
// variable is unset or the database cannot be opened.
func FromEnv() *Lookup {
	path := support.GetEnv("GEOIP_DB_PATH", "")
	if path == "" {
		log.Debug("GEOIP_DB_PATH not set, country lookup disabled")
		return nil
	}

	lookup, err := Open(path, support.GetEnvInt("GEOIP_CACHE_SIZE", defaultCacheSize))
	if err != nil {
		log.Warn("Country lookup disabled", "error", err)
		return nil
	}

	log.Info("Country lookup enabled", "path", path)
	return lookup
}

func (l *Lookup) Country(ipAddress string) string {
	if l == nil || l.reader == nil {
		return unknownCountry
	}

	if code, ok := l.cache.Get(ipAddress); ok {
		return code
	}

	code := unknownCountry
	if ip := net.ParseIP(ipAddress); ip != nil {
		if record, err := l.reader.Country(ip); err == nil && record.Country.IsoCode != "" {
			code = record.Country.IsoCode
		}
	}

	l.cache.Add(ipAddress, code)
	return code
}

func (l *Lookup) Close() error {
	if l == nil || l.reader == nil {
		return nil
	}
	return l.reader.Close()
}
