package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

// SetterFactory builds the address setter for a configuration.
// The vendor provider's binary and flag come from the config.
type SetterFactory func(cfg *domain.Config) domain.AddressSetter

// sequenceResult is what the down → set → up sequence produced.
type sequenceResult struct {
	Set    domain.SetResult
	Errors []error
}

// runAddressSequence takes the adapter down, asks the setter to apply addr
// and brings the adapter back up. Every step runs regardless of earlier
// failures: an adapter left powered off is worse than a failed change.
// onStep is called after each step with the state just reached.
func runAddressSequence(
	ctx context.Context,
	adapter domain.AdapterController,
	setter domain.AddressSetter,
	iface string,
	addr domain.Address,
	logger *zap.Logger,
	onStep func(domain.AgentState),
) sequenceResult {
	var result sequenceResult

	// Some drivers accept a new address while powered, so a failed down is not fatal.
	if err := adapter.SetPowered(ctx, iface, false); err != nil {
		logger.Warn("failed to take adapter down, continuing",
			zap.String("interface", iface),
			zap.Error(err))
		result.Errors = append(result.Errors, fmt.Errorf("adapter down: %w", err))
	}
	onStep(domain.StateAdapterDown)

	result.Set = setter.SetAddress(ctx, iface, addr)
	if result.Set.Outcome == domain.OutcomeApplied && result.Set.Err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("%s: %w", result.Set.Provider, result.Set.Err))
	}
	onStep(domain.StateAddressSetAttempted)

	if err := adapter.SetPowered(ctx, iface, true); err != nil {
		logger.Warn("failed to bring adapter up",
			zap.String("interface", iface),
			zap.Error(err))
		result.Errors = append(result.Errors, fmt.Errorf("adapter up: %w", err))
	}
	onStep(domain.StateAdapterUp)

	return result
}
