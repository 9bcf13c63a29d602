package infra

import (
	"context"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

const (
	// DefaultVendorTool is the provider C binary used when the config does not name one.
	DefaultVendorTool = "spooftooph"
	// DefaultVendorFlag makes the vendor tool apply its own address.
	DefaultVendorFlag = "-R"
)

// BdaddrProvider drives the single-purpose bdaddr tool (provider A).
type BdaddrProvider struct {
	runner CommandRunner
	bin    string
}

// NewBdaddrProvider creates a bdaddr provider.
func NewBdaddrProvider(runner CommandRunner) *BdaddrProvider {
	return &BdaddrProvider{runner: runner, bin: "bdaddr"}
}

func (p *BdaddrProvider) Name() string {
	return "bdaddr"
}

func (p *BdaddrProvider) IsAvailable() bool {
	_, err := p.runner.LookPath(p.bin)
	return err == nil
}

// TrySet runs: bdaddr -i <iface> <addr>
func (p *BdaddrProvider) TrySet(ctx context.Context, iface string, addr domain.Address) error {
	return p.runner.Run(ctx, p.bin, "-i", iface, addr.String())
}

// BtmgmtProvider drives the BlueZ management tool (provider B).
type BtmgmtProvider struct {
	runner CommandRunner
	bin    string
}

// NewBtmgmtProvider creates a btmgmt provider.
func NewBtmgmtProvider(runner CommandRunner) *BtmgmtProvider {
	return &BtmgmtProvider{runner: runner, bin: "btmgmt"}
}

func (p *BtmgmtProvider) Name() string {
	return "btmgmt"
}

func (p *BtmgmtProvider) IsAvailable() bool {
	_, err := p.runner.LookPath(p.bin)
	return err == nil
}

// TrySet tries static-addr first and falls back to public-addr when the
// controller rejects the static sub-operation.
func (p *BtmgmtProvider) TrySet(ctx context.Context, iface string, addr domain.Address) error {
	staticErr := p.runner.Run(ctx, p.bin, "--index", iface, "static-addr", addr.String())
	if staticErr == nil {
		return nil
	}
	return p.runner.Run(ctx, p.bin, "--index", iface, "public-addr", addr.String())
}

// VendorProvider drives a vendor tool that applies an address of its own
// choosing (provider C). The requested address is not passed.
type VendorProvider struct {
	runner CommandRunner
	bin    string
	flag   string
}

// NewVendorProvider creates a vendor provider. Empty bin/flag fall back to defaults.
func NewVendorProvider(runner CommandRunner, bin, flag string) *VendorProvider {
	if bin == "" {
		bin = DefaultVendorTool
	}
	if flag == "" {
		flag = DefaultVendorFlag
	}
	return &VendorProvider{runner: runner, bin: bin, flag: flag}
}

func (p *VendorProvider) Name() string {
	return p.bin
}

func (p *VendorProvider) IsAvailable() bool {
	_, err := p.runner.LookPath(p.bin)
	return err == nil
}

// TrySet runs: <tool> -i <iface> <flag>
func (p *VendorProvider) TrySet(ctx context.Context, iface string, _ domain.Address) error {
	return p.runner.Run(ctx, p.bin, "-i", iface, p.flag)
}

// Ensure implementations satisfy interfaces
var _ domain.AddressProvider = (*BdaddrProvider)(nil)
var _ domain.AddressProvider = (*BtmgmtProvider)(nil)
var _ domain.AddressProvider = (*VendorProvider)(nil)
