// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package netmage

import (
	"context"

	"github.com/stratastor/rodent/pkg/netmage/types"
)

// IPCommand wraps the Linux ip command for network interface management
type IPCommand struct {
	executor *CommandExecutor
}

// NewIPCommand creates a new IP command wrapper
func NewIPCommand(executor *CommandExecutor) *IPCommand {
	return &IPCommand{
		executor: executor,
	}
}

// ShowInterface retrieves interface information using ip link and ip addr
func (ip *IPCommand) ShowInterface(ctx context.Context, name string) ([]*types.NetworkInterface, error) {
	// TODO: Implement full IP command functionality
	return nil, nil
}

// GetAddresses retrieves IP addresses for an interface
func (ip *IPCommand) GetAddresses(ctx context.Context, ifaceName string) ([]*types.IPAddress, error) {
	// TODO: Implement IP address retrieval
	return nil, nil
}

// AddAddress adds an IP address to an interface
func (ip *IPCommand) AddAddress(ctx context.Context, ifaceName, address string) error {
	// TODO: Implement IP address addition
	return nil
}

// RemoveAddress removes an IP address from an interface
func (ip *IPCommand) RemoveAddress(ctx context.Context, ifaceName, address string) error {
	// TODO: Implement IP address removal
	return nil
}

// SetInterfaceUp brings an interface up
func (ip *IPCommand) SetInterfaceUp(ctx context.Context, ifaceName string) error {
	// TODO: Implement interface up
	return nil
}

// SetInterfaceDown brings an interface down
func (ip *IPCommand) SetInterfaceDown(ctx context.Context, ifaceName string) error {
	// TODO: Implement interface down
	return nil
}

// GetRoutes retrieves routing table entries
func (ip *IPCommand) GetRoutes(ctx context.Context, table, device string) ([]*types.Route, error) {
	// TODO: Implement route retrieval
	return nil, nil
}

// AddRoute adds a network route
func (ip *IPCommand) AddRoute(ctx context.Context, route *types.Route) error {
	// TODO: Implement route addition
	return nil
}

// RemoveRoute removes a network route
func (ip *IPCommand) RemoveRoute(ctx context.Context, route *types.Route) error {
	// TODO: Implement route removal
	return nil
}

// GetStatistics retrieves interface statistics
func (ip *IPCommand) GetStatistics(ctx context.Context, ifaceName string) (*types.InterfaceStatistics, error) {
	// TODO: Implement statistics retrieval
	return nil, nil
}