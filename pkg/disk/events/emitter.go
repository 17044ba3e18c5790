// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"github.com/stratastor/logger"
	"github.com/stratastor/rodent/pkg/disk/types"
)

// Emitter logs disk-related lifecycle events. It previously published
// structured events onto a remote toggle bus; that transport is gone, so
// it now just logs at the appropriate level.
type Emitter struct {
	logger logger.Logger
}

// NewEmitter creates a new disk event emitter
func NewEmitter(l logger.Logger) *Emitter {
	return &Emitter{logger: l}
}

// EmitDiskDiscovered logs a disk discovery event
func (e *Emitter) EmitDiskDiscovered(disk *types.PhysicalDisk) {
	e.logger.Info("disk discovered",
		"device_id", disk.DeviceID,
		"device_path", disk.DevicePath,
		"model", disk.Model,
	)
}

// EmitDiskHealthChanged logs a disk health transition
func (e *Emitter) EmitDiskHealthChanged(disk *types.PhysicalDisk, oldHealth, newHealth types.HealthStatus) {
	e.logger.Info("disk health changed",
		"device_id", disk.DeviceID,
		"old_health", string(oldHealth),
		"new_health", string(newHealth),
	)
}

// EmitDiskStateChanged logs a disk state transition
func (e *Emitter) EmitDiskStateChanged(disk *types.PhysicalDisk, oldState, newState types.DiskState) {
	e.logger.Info("disk state changed",
		"device_id", disk.DeviceID,
		"old_state", string(oldState),
		"new_state", string(newState),
	)
}

// EmitDiskRemoved logs a disk removal event
func (e *Emitter) EmitDiskRemoved(disk *types.PhysicalDisk) {
	e.logger.Info("disk removed",
		"device_id", disk.DeviceID,
		"device_path", disk.DevicePath,
	)
}

// EmitProbeStarted logs the start of a probe execution
func (e *Emitter) EmitProbeStarted(execution *types.ProbeExecution, devicePath string) {
	e.logger.Info("probe started", "device_path", devicePath, "probe_id", execution.ID)
}

// EmitProbeCompleted logs the completion of a probe execution
func (e *Emitter) EmitProbeCompleted(execution *types.ProbeExecution, devicePath string) {
	e.logger.Info("probe completed", "device_path", devicePath, "probe_id", execution.ID)
}

// EmitProbeProgress logs probe progress
func (e *Emitter) EmitProbeProgress(execution *types.ProbeExecution, devicePath string) {
	e.logger.Debug("probe progress", "device_path", devicePath, "probe_id", execution.ID)
}

// EmitProbeConflict logs a probe scheduling conflict
func (e *Emitter) EmitProbeConflict(execution *types.ProbeExecution, devicePath, conflictReason string) {
	e.logger.Warn("probe conflict", "device_path", devicePath, "probe_id", execution.ID, "reason", conflictReason)
}
