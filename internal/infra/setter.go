package infra

import (
	"context"

	"go.uber.org/zap"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

// ProviderChain selects one address provider out of a fixed priority list.
// Providers are ordered from most to least precise control over the exact
// address that ends up on the adapter.
type ProviderChain struct {
	providers []domain.AddressProvider
	logger    *zap.Logger
}

// NewProviderChain creates the default chain: bdaddr, btmgmt, vendor tool.
func NewProviderChain(runner CommandRunner, cfg *domain.Config, logger *zap.Logger) *ProviderChain {
	var vendorTool, vendorFlag string
	if cfg != nil {
		vendorTool, vendorFlag = cfg.VendorTool, cfg.VendorFlag
	}
	return NewProviderChainWith(logger,
		NewBdaddrProvider(runner),
		NewBtmgmtProvider(runner),
		NewVendorProvider(runner, vendorTool, vendorFlag),
	)
}

// NewProviderChainWith creates a chain over explicit providers (for testing).
func NewProviderChainWith(logger *zap.Logger, providers ...domain.AddressProvider) *ProviderChain {
	return &ProviderChain{providers: providers, logger: logger}
}

// Select returns the first present provider, or nil.
func (c *ProviderChain) Select() domain.AddressProvider {
	for _, p := range c.providers {
		if p.IsAvailable() {
			return p
		}
	}
	return nil
}

// Available returns the names of all present providers in priority order.
func (c *ProviderChain) Available() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		if p.IsAvailable() {
			names = append(names, p.Name())
		}
	}
	return names
}

// SetAddress invokes the first present provider only. A failing provider
// does not cause the next one to be tried; the caller's verification step
// decides whether the address actually changed.
func (c *ProviderChain) SetAddress(ctx context.Context, iface string, addr domain.Address) domain.SetResult {
	p := c.Select()
	if p == nil {
		c.logger.Warn("no address-setting tool installed",
			zap.String("interface", iface))
		return domain.SetResult{
			Outcome: domain.OutcomeUnavailable,
			Err:     domain.ErrNoCapabilityProvider,
		}
	}

	c.logger.Info("setting adapter address",
		zap.String("provider", p.Name()),
		zap.String("interface", iface),
		zap.String("address", addr.String()))

	err := p.TrySet(ctx, iface, addr)
	if err != nil {
		c.logger.Warn("address provider reported failure",
			zap.String("provider", p.Name()),
			zap.Error(err))
	}

	return domain.SetResult{
		Outcome:  domain.OutcomeApplied,
		Provider: p.Name(),
		Err:      err,
	}
}

// Ensure ProviderChain implements domain.AddressSetter.
var _ domain.AddressSetter = (*ProviderChain)(nil)
