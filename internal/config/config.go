package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/susu3304/mockinterviewbot/internal/schedule"
)

var configValidator = newConfigValidator()

type Config struct {
	// Discord Bot
	DiscordToken string `env:"DISCORD_TOKEN" validate:"required"`

	// Discord OAuth2
	DiscordClientID     string `env:"DISCORD_CLIENT_ID" validate:"required"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET" validate:"required"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI" validate:"required,url"`

	// Database
	DatabaseURL string `env:"DATABASE_URL" validate:"required"`

	// Web Server
	WebBind      string `env:"WEB_BIND" validate:"required,hostname_port"`
	WebUIBaseURL string

	// Session
	JWTSecret string `env:"JWT_SECRET" validate:"required"`

	// Pairing cycle
	OpenRegistrationAt string `env:"SCHEDULE_OPEN_REGISTRATION" validate:"required,weekly"`
	FormTeamsAt        string `env:"SCHEDULE_FORM_TEAMS" validate:"required,weekly"`
	AnnounceTeamsAt    string `env:"SCHEDULE_ANNOUNCE_TEAMS" validate:"required,weekly"`
	Timezone           string `env:"SCHEDULE_TIMEZONE" validate:"required,timezone"`

	AnnounceChannelName string  `env:"ANNOUNCE_CHANNEL_NAME" validate:"required"`
	SendRatePerSecond   float64 `env:"SEND_RATE_PER_SECOND" validate:"gt=0"`

	Location *time.Location
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		WebBind:             getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  getEnvDefault("DISCORD_REDIRECT_URI", "http://localhost:3000/api/auth/callback"),
		JWTSecret:           getEnvDefault("JWT_SECRET", "dev-only-change-me"),
		OpenRegistrationAt:  getEnvDefault("SCHEDULE_OPEN_REGISTRATION", "mon 10:00"),
		FormTeamsAt:         getEnvDefault("SCHEDULE_FORM_TEAMS", "tue 10:00"),
		AnnounceTeamsAt:     getEnvDefault("SCHEDULE_ANNOUNCE_TEAMS", "tue 11:00"),
		Timezone:            getEnvDefault("SCHEDULE_TIMEZONE", "UTC"),
		AnnounceChannelName: getEnvDefault("ANNOUNCE_CHANNEL_NAME", "mock-interviews"),
	}

	rate, err := strconv.ParseFloat(getEnvDefault("SEND_RATE_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("SEND_RATE_PER_SECOND must be a number: %w", err)
	}
	cfg.SendRatePerSecond = rate

	// Extract base URL from redirect URI
	cfg.WebUIBaseURL = extractBaseURL(cfg.DiscordRedirectURI)

	if err := configValidator.Struct(cfg); err != nil {
		return nil, describe(err)
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SCHEDULE_TIMEZONE: %w", err)
	}

	return cfg, nil
}

// Triggers returns the three weekly phase triggers in cycle order.
func (c *Config) Triggers() (open, form, announce schedule.Trigger, err error) {
	if open, err = schedule.ParseTrigger("open registration", c.OpenRegistrationAt); err != nil {
		return
	}
	if form, err = schedule.ParseTrigger("form teams", c.FormTeamsAt); err != nil {
		return
	}
	announce, err = schedule.ParseTrigger("announce teams", c.AnnounceTeamsAt)
	return
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func extractBaseURL(redirectURI string) string {
	// e.g., "http://localhost:3000/api/auth/callback" -> "http://localhost:3000"
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "http://localhost:3000"
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}

// describe turns validator output into one line per variable.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "weekly":
			msgs = append(msgs, fmt.Sprintf("%s must look like \"mon 10:00\", got %q", fe.Field(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s), got %v", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
	if err := v.RegisterValidation("weekly", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseTrigger("", fl.Field().String())
		return err == nil
	}); err != nil {
		panic("failed to register weekly validation: " + err.Error())
	}
	return v
}
