package provider

import (
	"fmt"

	"github.com/wekeepgrowing/medvoa-backend/internal/config"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/provider"
	stripeProvider "github.com/wekeepgrowing/medvoa-backend/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Factory creates billing providers based on the provider type
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// GetProvider returns a billing provider based on the provider type
func (f *Factory) GetProvider(providerType provider.ProviderType) (provider.BillingProvider, error) {
	switch providerType {
	case provider.ProviderTypeStripe:
		return f.createStripeProvider()
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// GetProviderFromString returns a billing provider from a string type
func (f *Factory) GetProviderFromString(providerStr string) (provider.BillingProvider, error) {
	// Default to Stripe if not specified
	if providerStr == "" {
		providerStr = string(provider.ProviderTypeStripe)
	}
	return f.GetProvider(provider.ProviderType(providerStr))
}

// createStripeProvider creates a new Stripe provider instance.
// The secret key is optional: without it events still verify, but the
// customer and subscription lookups fail with a provider error.
func (f *Factory) createStripeProvider() (provider.BillingProvider, error) {
	svc := f.config.Service
	if svc.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("Stripe webhook secret not configured")
	}
	if svc.StripeSecretKey == "" {
		f.logger.Warn("Stripe secret key not configured, provider lookups will fail")
	}

	return stripeProvider.NewStripeProvider(stripeProvider.Config{
		SecretKey:     svc.StripeSecretKey,
		WebhookSecret: svc.StripeWebhookSecret,
		Timeout:       svc.StripeTimeout,
		APIURL:        svc.StripeAPIURL,
	}, f.logger), nil
}
