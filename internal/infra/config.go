package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	ClientURL        string
	PublicBaseURL    string
	ClerkIssuer      string
	ClerkAudience    string
	GeoIPDBPath      string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiEmbedModel string
	VideoStaticAPI   string
	VideoFluidAPI    string
	StoryGenAPI      string
	VideosDir        string
	ExemplarCSVPath  string
	PDFFontPath      string
	PollBudget       time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	SearchMaxResults int
	StoryMaxSteps    int
	FluidFrames      int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "3000"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ClientURL:        getEnv("CLIENT_URL", "http://localhost:5173"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		ClerkIssuer:      os.Getenv("CLERK_ISSUER"),
		ClerkAudience:    os.Getenv("CLERK_AUDIENCE"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		VideoStaticAPI:   os.Getenv("VIDEO_STATIC_API"),
		VideoFluidAPI:    os.Getenv("VIDEO_FLUID_API"),
		StoryGenAPI:      os.Getenv("STORY_GEN_API"),
		VideosDir:        getEnv("VIDEOS_DIR", "videos"),
		ExemplarCSVPath:  getEnv("EMBEDDED_PROMPTS_CSV", "data/embedded_prompts.csv"),
		PDFFontPath:      getEnv("PDF_FONT_PATH", "assets/fonts/JameelNooriNastaleeq.ttf"),
		PollBudget:       time.Minute * time.Duration(getEnvInt("VIDEO_POLL_BUDGET_MINUTES", 20)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 1800)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		SearchMaxResults: getEnvInt("WEB_SEARCH_MAX_RESULTS", 3),
		StoryMaxSteps:    getEnvInt("STORY_MAX_STEPS", 9),
		FluidFrames:      getEnvInt("FLUID_NUM_FRAMES", 16),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ClerkIssuer == "" {
		return nil, fmt.Errorf("CLERK_ISSUER is required")
	}

	if cfg.VideoStaticAPI == "" {
		return nil, fmt.Errorf("VIDEO_STATIC_API is required")
	}

	if cfg.VideoFluidAPI == "" {
		return nil, fmt.Errorf("VIDEO_FLUID_API is required")
	}

	if cfg.StoryGenAPI == "" {
		return nil, fmt.Errorf("STORY_GEN_API is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
