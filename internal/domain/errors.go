package domain

import "errors"

// Controller-level errors are hard stops. Agent-level conditions are
// reported through ApplyReport and only escalated in strict mode.
var (
	// ErrInvalidAddress means a value failed the canonical address grammar.
	ErrInvalidAddress = errors.New("invalid hardware address")

	// ErrInvalidInterface means the adapter identifier is not an HCI device name.
	ErrInvalidInterface = errors.New("invalid adapter interface")

	// ErrNoCapabilityProvider means none of bdaddr, btmgmt or the vendor tool is installed.
	ErrNoCapabilityProvider = errors.New("no address-setting tool available")

	// ErrConcurrentOperation means another controller invocation holds the lock.
	ErrConcurrentOperation = errors.New("another bt-mac-changer operation is in progress")

	// ErrNoBackup means restore was requested but no original address was ever saved.
	ErrNoBackup = errors.New("no original address backup found")

	// ErrPermissionDenied means a privileged operation was attempted without root.
	ErrPermissionDenied = errors.New("administrative privileges required")

	// ErrVerificationMismatch means the adapter does not report the target address after apply.
	ErrVerificationMismatch = errors.New("adapter address does not match target")

	// ErrConfigMissing means no configuration file has been written yet.
	ErrConfigMissing = errors.New("configuration not found")
)
