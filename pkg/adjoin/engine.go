// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"github.com/stratastor/logger"
)

// Prepare runs the stages that can be validated before anything is written
// to the directory: parameter resolution and opening the local keytab
// handle, unless the caller requested NoKeytab. Prepare is safe to call
// repeatedly; it does not touch AD.
func (ctx *Context) Prepare(flags Flags) error {
	if err := ctx.resolve(); err != nil {
		return err
	}
	if !flags.has(NoKeytab) {
		if err := ctx.openKeytab(); err != nil {
			return err
		}
	}
	return nil
}

// Join runs the full enrollment pipeline end to end: locate the target
// OU/container, reconcile the computer object, set its password,
// synchronize its directory attributes, and — unless NoKeytab — write the
// local keytab. The first stage failure aborts the join. Callers must
// call Prepare first.
func (ctx *Context) Join(flags Flags, l logger.Logger) error {
	if err := ctx.locate(); err != nil {
		return err
	}
	if err := ctx.reconcileAccount(flags); err != nil {
		return err
	}
	if err := ctx.setPassword(); err != nil {
		return err
	}
	if err := ctx.syncAttributes(l); err != nil {
		return err
	}
	if !flags.has(NoKeytab) {
		if err := ctx.writeKeytab(); err != nil {
			return err
		}
	}
	return nil
}

// Rejoin re-runs Join against an already-enrolled computer account: it
// forces AllowOverwrite so the reconciler updates the existing object
// instead of failing ADAccountExists. When ResetPassword is set it discards
// the current password and re-derives it from the computer name before the
// password set; otherwise the password resolved by Prepare is used as is.
func (ctx *Context) Rejoin(flags Flags, l logger.Logger) error {
	if ctx.ResetPassword {
		ctx.passwordState = passwordUnset
		ctx.ComputerPassword = ""
		// Re-run resolution so the password is re-derived before anything
		// reaches kpasswd; the other parameters are already populated and
		// pass through unchanged.
		if err := ctx.resolve(); err != nil {
			return err
		}
	}
	return ctx.Join(flags|AllowOverwrite, l)
}

// SyncKeytabOnly refreshes msDS-KeyVersionNumber and the supported
// enctypes from the directory and rewrites the local keytab, without
// touching the account's password — the recovery path after an
// encryption-type policy change. Prepare must have already run with
// NoKeytab unset, or the Context must already hold an open keytab handle.
func (ctx *Context) SyncKeytabOnly(l logger.Logger) error {
	if ctx.ComputerDN == "" {
		if err := ctx.locate(); err != nil {
			return err
		}
	}
	if err := ctx.syncAttributes(l); err != nil {
		return err
	}
	return ctx.writeKeytab()
}
