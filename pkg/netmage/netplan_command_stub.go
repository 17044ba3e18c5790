// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package netmage

import (
	"context"
	"time"

	"github.com/stratastor/rodent/pkg/netmage/types"
)

// NetplanCommand wraps netplan commands for network configuration management
type NetplanCommand struct {
	executor *CommandExecutor
}

// NewNetplanCommand creates a new Netplan command wrapper
func NewNetplanCommand(executor *CommandExecutor) *NetplanCommand {
	return &NetplanCommand{
		executor: executor,
	}
}

// GetConfig retrieves the current netplan configuration
func (nc *NetplanCommand) GetConfig(ctx context.Context) (*types.NetplanConfig, error) {
	// TODO: Implement netplan config retrieval
	return nil, nil
}

// SetConfig updates the netplan configuration
func (nc *NetplanCommand) SetConfig(ctx context.Context, config *types.NetplanConfig) error {
	// TODO: Implement netplan config setting
	return nil
}

// Apply applies the current netplan configuration
func (nc *NetplanCommand) Apply(ctx context.Context) error {
	// TODO: Implement netplan apply
	return nil
}

// Try tries a netplan configuration with automatic rollback
func (nc *NetplanCommand) Try(ctx context.Context, timeout time.Duration) (*types.NetplanTryResult, error) {
	// TODO: Implement netplan try
	return nil, nil
}

// GetStatus retrieves netplan status
func (nc *NetplanCommand) GetStatus(ctx context.Context, iface string) (*types.NetplanStatus, error) {
	// TODO: Implement netplan status
	return nil, nil
}

// GetDiff retrieves differences between current state and netplan config
func (nc *NetplanCommand) GetDiff(ctx context.Context) (*types.NetplanDiff, error) {
	// TODO: Implement netplan diff
	return nil, nil
}

// Backup creates a backup of the current netplan configuration
func (nc *NetplanCommand) Backup(ctx context.Context) (string, error) {
	// TODO: Implement netplan backup
	return "", nil
}

// Restore restores netplan configuration from a backup
func (nc *NetplanCommand) Restore(ctx context.Context, backupID string) error {
	// TODO: Implement netplan restore
	return nil
}

// ListBackups lists available netplan configuration backups
func (nc *NetplanCommand) ListBackups(ctx context.Context) ([]*types.ConfigBackup, error) {
	// TODO: Implement backup listing
	return nil, nil
}