package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	LMSBaseURL      string
	LMSTokenURL     string
	LMSClientID     string
	LMSClientSecret string
	LMSTimeout      time.Duration

	DBDriver string
	DBDSN    string

	DraftDir     string
	WikipediaURL string
	ProfilesPath string

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt

	PollInterval time.Duration
	PollBudget   time.Duration

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		LMSBaseURL:      envOr("LMS_BASE_URL", "http://localhost:9000"),
		LMSTokenURL:     envOr("LMS_TOKEN_URL", "http://localhost:9000/oauth/token"),
		LMSClientID:     os.Getenv("LMS_CLIENT_ID"),
		LMSClientSecret: os.Getenv("LMS_CLIENT_SECRET"),
		LMSTimeout:      envDur("LMS_TIMEOUT", 30*time.Second),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		DraftDir:     envOr("DRAFT_DIR", "./data/drafts"),
		WikipediaURL: envOr("WIKIPEDIA_URL", "https://en.wikipedia.org"),
		ProfilesPath: envOr("PROFILES_PATH", ""),

		AuthSecret:    envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		PollInterval: envDur("ENROLL_POLL_INTERVAL", 5*time.Second),
		PollBudget:   envDur("ENROLL_POLL_BUDGET", 2*time.Minute),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envDur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
