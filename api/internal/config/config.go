package config

import (
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	PublicBaseURL string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiTimeout    time.Duration
	GeminiMaxRetries int
	GeminiPromptFile string

	UploadDir         string
	OutputDir         string
	MaxUploadBytes    int64
	FileRetention     time.Duration
	FileSweepInterval time.Duration

	EWasteModelPath  string
	EWasteLabelsPath string
	MixedModelPath   string
	MixedLabelsPath  string
	WasteModelPath   string
	WasteLabelsPath  string
	ONNXRuntimeLib   string
	ModelInputSize   int

	CORSAllowedOrigins []string

	DatabaseURL      string
	ClassifyCacheTTL time.Duration

	TelegramBotToken string
	WebhookURL       string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("config: bad %s=%q, using %d", k, v, def)
		return def
	}
	return n
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("config: bad %s=%q, using %s", k, v, def)
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// geminiKey понимает и старое имя переменной в смешанном регистре из прежних .env.
func geminiKey() string {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("Gemini_API_key")); v != "" {
		return v
	}
	return mustEnv("GEMINI_API_KEY")
}

// Load читает .env (если есть) и окружение процесса.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	port := getEnv("PORT", "5000")
	return &Config{
		Port:          port,
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://127.0.0.1:"+port), "/"),

		GeminiAPIKey:     geminiKey(),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTimeout:    getDuration("GEMINI_TIMEOUT", 60*time.Second),
		GeminiMaxRetries: getInt("GEMINI_MAX_RETRIES", 2),
		GeminiPromptFile: getEnv("GEMINI_PROMPT_FILE", ""),

		UploadDir:         getEnv("UPLOAD_DIR", "static/uploads"),
		OutputDir:         getEnv("OUTPUT_DIR", "static/output"),
		MaxUploadBytes:    int64(getInt("MAX_UPLOAD_MB", 16)) << 20,
		FileRetention:     getDuration("FILE_RETENTION", 0),
		FileSweepInterval: getDuration("FILE_SWEEP_INTERVAL", time.Hour),

		EWasteModelPath:  getEnv("EWASTE_MODEL_PATH", "model/best_e.onnx"),
		EWasteLabelsPath: getEnv("EWASTE_LABELS_PATH", "model/best_e.names"),
		MixedModelPath:   getEnv("MIXED_MODEL_PATH", "model/bestmix.onnx"),
		MixedLabelsPath:  getEnv("MIXED_LABELS_PATH", "model/bestmix.names"),
		WasteModelPath:   getEnv("WASTE_MODEL_PATH", "model/best.onnx"),
		WasteLabelsPath:  getEnv("WASTE_LABELS_PATH", "model/best.names"),
		ONNXRuntimeLib:   getEnv("ONNXRUNTIME_LIB", ""),
		ModelInputSize:   getInt("MODEL_INPUT_SIZE", 640),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		DatabaseURL:      resolveDSN(),
		ClassifyCacheTTL: getDuration("CLASSIFY_CACHE_TTL", 24*time.Hour),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
}

// resolveDSN берёт DATABASE_URL, иначе собирает DSN из POSTGRES_*/PG*.
// Без PGHOST и POSTGRES_PASSWORD возвращает "": БД отключена.
func resolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	host := getEnv("PGHOST", "")
	pass := os.Getenv("POSTGRES_PASSWORD")
	if host == "" && pass == "" {
		return ""
	}
	if host == "" {
		host = "db"
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "smartseg"), pass),
		Host:     net.JoinHostPort(host, getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "smartseg"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
