package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the process-wide configuration.
var Conf = NewConfig()

type (
	Config struct {
		Debug                     bool
		TestMode                  bool
		Env                       string
		Build                     string
		AppName                   string
		SecretKey                 string
		WorkDir                   string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		OpenAI   OpenAIConfig
		Upload   UploadConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		InMemory                  bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	OpenAIConfig struct {
		APIKey      string
		BaseURL     string
		Model       string
		VisionModel string
		Temperature float32
		Timeout     time.Duration
		// ResearchTimeout bounds the scholarship research call.
		ResearchTimeout  time.Duration
		MaxDocumentChars int
	}

	UploadConfig struct {
		Dir          string
		MaxSize      int64
		AllowedTypes []string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Darpan Intelligence")
	v.SetDefault("secretKey", "k2#m9x!d7vq$-darpan-dev-(5j@w8z^r0u%e4)")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "Darpan Intelligence <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.inMemory", false)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "darpan")
	v.SetDefault("database.user", "darpan")
	v.SetDefault("database.password", "darpan")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("openai.apiKey", "")
	v.SetDefault("openai.baseURL", "")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.visionModel", "gpt-4o")
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.timeout", 90*time.Second)
	v.SetDefault("openai.researchTimeout", 15*time.Second)
	v.SetDefault("openai.maxDocumentChars", 8000)

	v.SetDefault("upload.dir", filepath.Join(os.TempDir(), "darpan-uploads"))
	v.SetDefault("upload.maxSize", 10<<20) // 10MB
	v.SetDefault("upload.allowedTypes", []string{"application/pdf", "image/jpeg", "image/png"})

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		Env:                       env,
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		WorkDir:                   workDir,
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			InMemory:                  v.GetBool("server.inMemory"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		OpenAI: OpenAIConfig{
			APIKey:           v.GetString("openai.apiKey"),
			BaseURL:          v.GetString("openai.baseURL"),
			Model:            v.GetString("openai.model"),
			VisionModel:      v.GetString("openai.visionModel"),
			Temperature:      float32(v.GetFloat64("openai.temperature")),
			Timeout:          v.GetDuration("openai.timeout"),
			ResearchTimeout:  v.GetDuration("openai.researchTimeout"),
			MaxDocumentChars: v.GetInt("openai.maxDocumentChars"),
		},
		Upload: UploadConfig{
			Dir:          v.GetString("upload.dir"),
			MaxSize:      v.GetInt64("upload.maxSize"),
			AllowedTypes: splitList(v.GetStringSlice("upload.allowedTypes")),
		},
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}
	conf.DefaultFromEmail = *from
	return conf
}

// splitList flattens comma separated entries, as env values arrive as a single string.
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
