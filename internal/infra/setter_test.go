package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

const target domain.Address = "AA:BB:CC:DD:EE:FF"

func TestProviderChain_Priority(t *testing.T) {
	tests := []struct {
		name      string
		installed []string
		wantName  string
		wantCalls []string
	}{
		{
			name:      "all present uses bdaddr",
			installed: []string{"bdaddr", "btmgmt", "spooftooph"},
			wantName:  "bdaddr",
			wantCalls: []string{"bdaddr -i hci0 AA:BB:CC:DD:EE:FF"},
		},
		{
			name:      "btmgmt when bdaddr missing",
			installed: []string{"btmgmt", "spooftooph"},
			wantName:  "btmgmt",
			wantCalls: []string{"btmgmt --index hci0 static-addr AA:BB:CC:DD:EE:FF"},
		},
		{
			name:      "only vendor tool present",
			installed: []string{"spooftooph"},
			wantName:  "spooftooph",
			wantCalls: []string{"spooftooph -i hci0 -R"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner(tt.installed...)
			chain := NewProviderChain(runner, nil, zap.NewNop())

			result := chain.SetAddress(context.Background(), "hci0", target)

			assert.Equal(t, domain.OutcomeApplied, result.Outcome)
			assert.Equal(t, tt.wantName, result.Provider)
			assert.NoError(t, result.Err)
			assert.Equal(t, tt.wantCalls, runner.calls)
			assert.Equal(t, tt.installed, chain.Available())
		})
	}
}

func TestProviderChain_NoProvider(t *testing.T) {
	runner := newFakeRunner()
	chain := NewProviderChain(runner, nil, zap.NewNop())

	result := chain.SetAddress(context.Background(), "hci0", target)

	assert.Equal(t, domain.OutcomeUnavailable, result.Outcome)
	assert.True(t, errors.Is(result.Err, domain.ErrNoCapabilityProvider))
	assert.Empty(t, result.Provider)
	assert.Empty(t, runner.calls)
	assert.Nil(t, chain.Select())
	assert.Empty(t, chain.Available())
}

func TestProviderChain_FailureDoesNotFallThrough(t *testing.T) {
	runner := newFakeRunner("bdaddr", "btmgmt")
	runner.fail("bdaddr -i hci0 AA:BB:CC:DD:EE:FF")
	chain := NewProviderChain(runner, nil, zap.NewNop())

	result := chain.SetAddress(context.Background(), "hci0", target)

	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, "bdaddr", result.Provider)
	assert.Error(t, result.Err)
	assert.Equal(t, []string{"bdaddr -i hci0 AA:BB:CC:DD:EE:FF"}, runner.calls, "btmgmt must not run")
}

func TestBtmgmtProvider_PublicAddrFallback(t *testing.T) {
	runner := newFakeRunner("btmgmt")
	runner.fail("btmgmt --index hci1 static-addr AA:BB:CC:DD:EE:FF")

	err := NewBtmgmtProvider(runner).TrySet(context.Background(), "hci1", target)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"btmgmt --index hci1 static-addr AA:BB:CC:DD:EE:FF",
		"btmgmt --index hci1 public-addr AA:BB:CC:DD:EE:FF",
	}, runner.calls)

	runner = newFakeRunner("btmgmt")
	runner.fail("btmgmt --index hci1 static-addr AA:BB:CC:DD:EE:FF")
	runner.fail("btmgmt --index hci1 public-addr AA:BB:CC:DD:EE:FF")
	assert.Error(t, NewBtmgmtProvider(runner).TrySet(context.Background(), "hci1", target))
}

func TestVendorProvider_ConfigOverride(t *testing.T) {
	runner := newFakeRunner("vendor-bt")
	cfg := &domain.Config{TargetAddress: target, InterfaceName: "hci0", VendorTool: "vendor-bt", VendorFlag: "--apply"}
	chain := NewProviderChain(runner, cfg, zap.NewNop())

	result := chain.SetAddress(context.Background(), "hci0", target)

	assert.Equal(t, "vendor-bt", result.Provider)
	assert.Equal(t, []string{"vendor-bt -i hci0 --apply"}, runner.calls)
}
