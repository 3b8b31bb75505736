package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	JWT    JWTConfig
	SOS    SOSConfig
	Meet   MeetConfig
	Clinic ClinicConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// SOSConfig carries the Twilio credentials and the fixed emergency message.
type SOSConfig struct {
	AccountSID      string
	AuthToken       string
	PhoneNumber     string
	RecipientNumber string
	MessageBody     string
}

// MeetConfig holds the base URL consultation links are minted under.
type MeetConfig struct {
	BaseURL string
}

type ClinicConfig struct {
	SweepInterval time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("JWT_REFRESH_EXPIRY"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("CLINIC_SWEEP_INTERVAL"))
	if err != nil {
		sweepInterval = 1 * time.Hour
	}

	meetBaseURL := viper.GetString("MEET_BASE_URL")
	if meetBaseURL == "" {
		meetBaseURL = "https://meet.google.com/lookup"
	}

	sosMessage := viper.GetString("SOS_MESSAGE_BODY")
	if sosMessage == "" {
		sosMessage = "Emergency! I need help. This is an automated SOS from my health app."
	}

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
		SOS: SOSConfig{
			AccountSID:      viper.GetString("TWILIO_ACCOUNT_SID"),
			AuthToken:       viper.GetString("TWILIO_AUTH_TOKEN"),
			PhoneNumber:     viper.GetString("TWILIO_PHONE_NUMBER"),
			RecipientNumber: viper.GetString("SOS_RECIPIENT_NUMBER"),
			MessageBody:     sosMessage,
		},
		Meet: MeetConfig{
			BaseURL: meetBaseURL,
		},
		Clinic: ClinicConfig{
			SweepInterval: sweepInterval,
		},
	}

	return config, nil
}
