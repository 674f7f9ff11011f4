package config

import "time"

type ServiceConfig struct {
	Name                string         `mapstructure:"name"`
	Environment         string         `mapstructure:"environment" validate:"omitempty,oneof=development staging production test"`
	Version             string         `mapstructure:"version"`
	StripeSecretKey     string         `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string         `mapstructure:"stripe_webhook_secret" validate:"required"`
	StripeAPIURL        string         `mapstructure:"stripe_api_url" validate:"omitempty,url"`
	StripeTimeout       time.Duration  `mapstructure:"stripe_timeout"`
	Supabase            SupabaseConfig `mapstructure:"supabase" validate:"required"`
}

type SupabaseConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret" validate:"required"`
	ProjectURL string        `mapstructure:"project_url" validate:"omitempty,url"`
	ServiceKey string        `mapstructure:"service_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}
