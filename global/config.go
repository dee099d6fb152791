package global

import (
	"os"
	"strconv"
	"strings"

	"chathub/tools/security"
)

// Config is the process configuration, read once at startup. Protocol
// timings (liveness period, typing debounce) are deliberately absent:
// they are fixed constants of the wire protocol, not deployment knobs.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI      string
	MongoDatabase string
	MongoUsername string
	MongoPassword string

	NatsURL     string
	NatsSubject string

	JWTSecret []byte
	NodeID    int64
}

// Load reads configuration from CHATHUB_* environment variables with
// development defaults.
func Load() Config {
	return Config{
		ListenAddr:     getEnv("CHATHUB_LISTEN_ADDR", ":8080"),
		AllowedOrigins: splitEnv("CHATHUB_ALLOWED_ORIGINS"),

		RedisAddr:     getEnv("CHATHUB_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("CHATHUB_REDIS_PASSWORD"),
		RedisDB:       getEnvInt("CHATHUB_REDIS_DB", 0),

		MongoURI:      getEnv("CHATHUB_MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("CHATHUB_MONGO_DATABASE", "chathub"),
		MongoUsername: os.Getenv("CHATHUB_MONGO_USERNAME"),
		MongoPassword: os.Getenv("CHATHUB_MONGO_PASSWORD"),

		NatsURL:     os.Getenv("CHATHUB_NATS_URL"), // empty disables the feed
		NatsSubject: getEnv("CHATHUB_NATS_SUBJECT", "chat.presence"),

		JWTSecret: []byte(getEnv("CHATHUB_JWT_SECRET", "dev-secret-change-me")),
		NodeID:    int64(getEnvInt("CHATHUB_NODE_ID", 1)),
	}
}

// Auth returns the token verification options for the handshake.
func (c Config) Auth() security.Options {
	return security.DefaultOptions(c.JWTSecret)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitEnv(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
