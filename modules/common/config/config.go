package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Backend
	BackendURL        string
	RequireAuth       map[string]bool
	GenerationTimeout time.Duration

	// Slot (히스토리/테마 저장소)
	SlotBackend   string
	SlotDir       string
	SlotNamespace string
	SQLitePath    string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseSlotTable  string

	// Auth
	AuthProvider   string
	FirebaseAPIKey string
	SignInPage     string

	// Server
	ListenHost     string
	Port           string
	AllowedOrigins []string
	ExportDir      string
	ExportBucket   string
	ExportFolder   string
}

// 인증 요구 여부를 지정할 수 있는 operation 이름들
var knownOperations = []string{"image", "video", "upscale", "analysis", "personas"}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Backend: %s (timeout: %v)", cfg.BackendURL, cfg.GenerationTimeout)
	log.Printf("   Slot: %s", cfg.SlotBackend)
	log.Printf("   Auth: %s (required for: %s)", cfg.AuthProvider, strings.Join(cfg.RequiredOperations(), ","))

	return cfg, nil
}

// FromEnv - 현재 프로세스 환경변수로 Config 생성 (.env 로드 없음)
func FromEnv() (*Config, error) {
	timeoutSeconds := 0
	if s := os.Getenv("GENERATION_TIMEOUT_SECONDS"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("GENERATION_TIMEOUT_SECONDS must be a non-negative integer, got %q", s)
		}
		timeoutSeconds = parsed
	}

	useTLS := false
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	cfg := &Config{
		BackendURL:        strings.TrimRight(getEnv("BACKEND_URL", "https://my-ai-generator-backend.onrender.com"), "/"),
		RequireAuth:       parseRequireAuth(os.Getenv("REQUIRE_AUTH")),
		GenerationTimeout: time.Duration(timeoutSeconds) * time.Second,

		SlotBackend:   strings.ToLower(getEnv("SLOT_BACKEND", "file")),
		SlotDir:       getEnv("SLOT_DIR", "./.studio"),
		SlotNamespace: getEnv("SLOT_NAMESPACE", "studio"),
		SQLitePath:    getEnv("SQLITE_PATH", "./studio.db"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseSlotTable:  getEnv("SUPABASE_SLOT_TABLE", "studio_slots"),

		AuthProvider:   strings.ToLower(getEnv("AUTH_PROVIDER", "firebase")),
		FirebaseAPIKey: getEnv("FIREBASE_API_KEY", ""),
		SignInPage:     getEnv("SIGN_IN_PAGE", "/auth.html"),

		ListenHost:     getEnv("LISTEN_HOST", "127.0.0.1"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		ExportDir:      getEnv("EXPORT_DIR", "./exports"),
		ExportBucket:   getEnv("EXPORT_BUCKET", ""),
		ExportFolder:   getEnv("EXPORT_FOLDER", "studio-exports"),
	}

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}

	for op := range c.RequireAuth {
		if !isKnownOperation(op) {
			return fmt.Errorf("REQUIRE_AUTH contains unknown operation %q (known: %s)", op, strings.Join(knownOperations, ","))
		}
	}

	switch c.SlotBackend {
	case "file":
		if c.SlotDir == "" {
			return fmt.Errorf("SLOT_DIR is required for the file slot backend")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite slot backend")
		}
	case "redis":
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required for the redis slot backend")
		}
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase slot backend")
		}
	default:
		return fmt.Errorf("unsupported SLOT_BACKEND: %s", c.SlotBackend)
	}

	switch c.AuthProvider {
	case "firebase":
		if c.FirebaseAPIKey == "" {
			return fmt.Errorf("FIREBASE_API_KEY is required when AUTH_PROVIDER=firebase")
		}
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when AUTH_PROVIDER=supabase")
		}
	case "none":
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER: %s", c.AuthProvider)
	}

	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.Path != "" {
			return fmt.Errorf("ALLOWED_ORIGINS entries must look like https://host[:port], got %q", origin)
		}
	}

	if c.ExportBucket != "" && (c.SupabaseURL == "" || c.SupabaseServiceKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when EXPORT_BUCKET is set")
	}

	return nil
}

// RequiredOperations - 인증이 필요한 operation 목록 (로그용)
func (c *Config) RequiredOperations() []string {
	var ops []string
	for _, op := range knownOperations {
		if c.RequireAuth[op] {
			ops = append(ops, op)
		}
	}
	return ops
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// GetListenAddr - studio 서버 listen 주소 (기본은 loopback만)
func (c *Config) GetListenAddr() string {
	return c.ListenHost + ":" + c.Port
}

// parseRequireAuth - "image,video" 또는 "all" 형식 파싱
func parseRequireAuth(raw string) map[string]bool {
	required := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		op := strings.ToLower(strings.TrimSpace(part))
		if op == "" {
			continue
		}
		if op == "all" {
			for _, known := range knownOperations {
				required[known] = true
			}
			continue
		}
		required[op] = true
	}
	return required
}

func isKnownOperation(op string) bool {
	for _, known := range knownOperations {
		if op == known {
			return true
		}
	}
	return false
}

// splitList - 쉼표 구분 목록, 빈 항목 제외
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.TrimRight(part, "/"))
		}
	}
	return out
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
