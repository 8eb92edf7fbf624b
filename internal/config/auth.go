package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AuthSettings are the tunables of the session state machines. They live in an
// optional quillform.yml so operators can tighten them without a rebuild.
type AuthSettings struct {
	LoginSessionTTL        time.Duration `mapstructure:"loginSessionTtl"`
	AuthSessionTTL         time.Duration `mapstructure:"authSessionTtl"`
	VerificationSessionTTL time.Duration `mapstructure:"verificationSessionTtl"`
	OTPDigits              int           `mapstructure:"otpDigits"`
	MaxTries               int           `mapstructure:"maxTries"`
	SessionTokenBytes      int           `mapstructure:"sessionTokenBytes"`
}

func DefaultAuthSettings() AuthSettings {
	return AuthSettings{
		LoginSessionTTL:        60 * 24 * time.Hour,
		AuthSessionTTL:         60 * time.Minute,
		VerificationSessionTTL: 24 * time.Hour,
		OTPDigits:              8,
		MaxTries:               3,
		SessionTokenBytes:      32,
	}
}

// AuthSettingsHolder serves the current settings and hot-reloads them when the
// config file changes.
type AuthSettingsHolder struct {
	current atomic.Value // holds AuthSettings
}

func NewAuthSettingsHolder(log *zap.Logger) (*AuthSettingsHolder, error) {
	log = log.Named("config")
	v := viper.New()

	v.SetConfigName("quillform")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/quillform")
	v.AddConfigPath(".")

	v.SetEnvPrefix("QUILLFORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAuthSettings()
	v.SetDefault("auth.loginSessionTtl", defaults.LoginSessionTTL)
	v.SetDefault("auth.authSessionTtl", defaults.AuthSessionTTL)
	v.SetDefault("auth.verificationSessionTtl", defaults.VerificationSessionTTL)
	v.SetDefault("auth.otpDigits", defaults.OTPDigits)
	v.SetDefault("auth.maxTries", defaults.MaxTries)
	v.SetDefault("auth.sessionTokenBytes", defaults.SessionTokenBytes)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &AuthSettingsHolder{}
	cfg, err := unmarshalAuthSettings(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(fsnotify.Event) {
		reloaded, err := unmarshalAuthSettings(v)
		if err != nil {
			log.Warn("auth settings reload rejected", zap.Error(err))
			return
		}
		holder.current.Store(reloaded)
	})

	return holder, nil
}

// NewStaticAuthSettingsHolder pins the settings, bypassing the config file.
func NewStaticAuthSettingsHolder(settings AuthSettings) *AuthSettingsHolder {
	holder := &AuthSettingsHolder{}
	holder.current.Store(settings)
	return holder
}

func (h *AuthSettingsHolder) Current() AuthSettings {
	return h.current.Load().(AuthSettings)
}

func unmarshalAuthSettings(v *viper.Viper) (AuthSettings, error) {
	var cfg AuthSettings
	if err := v.UnmarshalKey("auth", &cfg); err != nil {
		return AuthSettings{}, err
	}
	return cfg, validateAuthSettings(cfg)
}

func validateAuthSettings(cfg AuthSettings) error {
	if cfg.LoginSessionTTL <= 0 || cfg.AuthSessionTTL <= 0 || cfg.VerificationSessionTTL <= 0 {
		return errors.New("session ttls must be positive")
	}
	if cfg.OTPDigits < 4 || cfg.OTPDigits > 10 {
		return errors.New("otp digits must be between 4 and 10")
	}
	if cfg.MaxTries < 1 {
		return errors.New("max tries must be at least 1")
	}
	if cfg.SessionTokenBytes < 16 {
		return errors.New("session tokens must be at least 16 bytes")
	}
	return nil
}
