// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"fmt"

	"github.com/jcmturner/gokrb5/v8/iana/nametype"
	"github.com/jcmturner/gokrb5/v8/types"
	"github.com/stratastor/rodent/pkg/adjoin/conn"
	"github.com/stratastor/rodent/pkg/adjoin/kpasswd"
	"github.com/stratastor/rodent/pkg/errors"
)

// setPassword selects set-password (admin TGT) or change-password
// (computer's own credentials) based on the connection's login type, and
// classifies the kpasswd result.
func (ctx *Context) setPassword() error {
	if ctx.pwSetter != nil {
		return ctx.pwSetter()
	}
	switch ctx.conn.LoginType() {
	case conn.ComputerAccount:
		return ctx.setPasswordWithComputerCreds()
	default:
		return ctx.setPasswordWithUserCreds()
	}
}

// setPasswordWithUserCreds: the admin's TGT authorizes a kpasswd
// set-password for the *computer's* principal, no old password needed.
func (ctx *Context) setPasswordWithUserCreds() error {
	admin := ctx.conn.AdminCredentials()
	if admin == nil {
		return errors.New(errors.ADInvalidCredentials, "no admin credentials available for set-password")
	}
	target := types.NewPrincipalName(nametype.KRB_NT_PRINCIPAL, ctx.SAMName)
	result, err := kpasswd.SetPassword(admin, target, ctx.conn.RealmName(), ctx.ComputerPassword, ctx.conn.KDCHost())
	return ctx.handleKpasswdResult(result, err)
}

// setPasswordWithComputerCreds: the computer authenticates to
// kadmin/changepw with its *current* credentials and changes its own
// password.
func (ctx *Context) setPasswordWithComputerCreds() error {
	computerClient, err := ctx.conn.ComputerCredentials()
	if err != nil {
		return errors.Wrap(err, errors.ADInvalidCredentials)
	}
	defer computerClient.Destroy()

	result, kerr := kpasswd.ChangePassword(computerClient, ctx.conn.RealmName(), ctx.ComputerPassword, ctx.conn.KDCHost())
	return ctx.handleKpasswdResult(result, kerr)
}

// handleKpasswdResult: a transport error is a directory failure; a
// non-zero protocol result is a credentials failure carrying the decoded
// message, upgraded to a policy-rejection code when kpasswd.Classify
// recognizes the extended text.
func (ctx *Context) handleKpasswdResult(result kpasswd.Result, err error) error {
	if err != nil {
		return errors.Wrap(err, errors.ADConnectFailed)
	}
	if result.Success() {
		return nil
	}

	detail := fmt.Sprintf("%s (code %d)", result.CodeString, result.Code)
	if result.Message != "" {
		detail = fmt.Sprintf("%s: %s", detail, result.Message)
	}
	ctx.conn.SetLastError(detail)

	code := errors.ADPasswordSetRejected
	if kpasswd.Classify(result.Message) != kpasswd.ReasonOther {
		code = errors.ADPasswordPolicyRejected
	}
	return errors.New(code, detail).WithMetadata("computer_sam", ctx.SAMName)
}
