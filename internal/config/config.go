package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultCacheMaxEntryBytes : plus grosse valeur qu'accepte le cache Badger en mémoire
// (1 MiB moins l'en-tête de 8 octets). Une valeur supérieure est ramenée à cette borne.
const DefaultCacheMaxEntryBytes = 1<<20 - 8

type Config struct {
	Addr   string
	DBPath string

	CatalogURL  string
	HTTPTimeout time.Duration
	// ChunkDelay espace les chunks de requêtes catalogue (limite implicite de l'API).
	// Avec Throttle "token", c'est l'intervalle de recharge d'un jeton.
	ChunkDelay time.Duration
	// Throttle : "fixed" (délai fixe entre chunks) ou "token" (token bucket).
	Throttle      string
	ThrottleBurst int

	CacheTTL           time.Duration
	CacheMaxEntryBytes int

	LogLevel  string
	LogFormat string

	AllowedOrigins []string
}

func Default() Config {
	return Config{
		Addr:               envOr("VNSHELF_ADDR", "127.0.0.1:8080"),
		DBPath:             envOr("VNSHELF_DB_PATH", "vnshelf.db"),
		CatalogURL:         envOr("VNSHELF_CATALOG_URL", "https://api.vndb.org/kana"),
		HTTPTimeout:        envDuration("VNSHELF_HTTP_TIMEOUT", 15*time.Second),
		ChunkDelay:         envDuration("VNSHELF_CHUNK_DELAY", time.Second),
		Throttle:           strings.ToLower(envOr("VNSHELF_THROTTLE", "fixed")),
		ThrottleBurst:      envInt("VNSHELF_THROTTLE_BURST", 1),
		CacheTTL:           envDuration("VNSHELF_CACHE_TTL", time.Hour),
		CacheMaxEntryBytes: envInt("VNSHELF_CACHE_MAX_ENTRY_BYTES", DefaultCacheMaxEntryBytes),
		LogLevel:           envOr("VNSHELF_LOG_LEVEL", "info"),
		LogFormat:          envOr("VNSHELF_LOG_FORMAT", "json"),
		AllowedOrigins:     SplitList(envOr("VNSHELF_ALLOWED_ORIGINS", "http://localhost:3000")),
	}
}

// SplitList découpe une liste séparée par des virgules en ignorant les vides.
func SplitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
