// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"strconv"

	"github.com/go-ldap/ldap/v3"
	"github.com/stratastor/rodent/pkg/errors"
)

// userAccountControlNewComputer is WORKSTATION_TRUST_ACCOUNT (0x1000) |
// DONT_EXPIRE_PASSWD (0x10000) = 69632.
const userAccountControlNewComputer = 69632

// reconcileAccount reads
// ComputerDN, then adds or updates the computer object depending on whether
// it already exists and whether AllowOverwrite was requested.
func (ctx *Context) reconcileAccount(flags Flags) error {
	entry, err := ctx.readComputerObject()
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return ctx.createComputerObject()
		}
		return classifyLDAPError(err, errors.ADCreateComputerFailed)
	}

	if !flags.has(AllowOverwrite) {
		return errors.New(errors.ADAccountExists, "computer account already exists").
			WithMetadata("computer_dn", ctx.ComputerDN)
	}
	return ctx.updateComputerObject(entry)
}

func (ctx *Context) readComputerObject() (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		ctx.ComputerDN,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		[]string{"objectClass", "sAMAccountName", "userAccountControl"},
		nil,
	)
	sr, err := ctx.conn.LDAP().Search(req)
	if err != nil {
		return nil, err
	}
	if len(sr.Entries) == 0 {
		return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New(errors.ADSearchFailed, "no entries returned"))
	}
	return sr.Entries[0], nil
}

// desiredComputerMods returns the attribute set for a new computer object,
// with empty values pruned before use — on create
// because AD rejects empty-valued mods, and reused as the comparison basis
// on update.
func (ctx *Context) desiredComputerMods() map[string][]string {
	mods := map[string][]string{
		"objectClass":        {"computer"},
		"sAMAccountName":     {ctx.SAMName},
		"userAccountControl": {strconv.Itoa(userAccountControlNewComputer)},
	}
	for k, v := range mods {
		if len(v) == 0 || v[0] == "" {
			delete(mods, k)
		}
	}
	return mods
}

func (ctx *Context) createComputerObject() error {
	mods := ctx.desiredComputerMods()
	req := ldap.NewAddRequest(ctx.ComputerDN, nil)
	for attr, values := range mods {
		req.Attribute(attr, values)
	}
	if err := ctx.conn.LDAP().Add(req); err != nil {
		return classifyLDAPError(err, errors.ADCreateComputerFailed)
	}
	return nil
}

// updateComputerObject computes the subset of desired mods whose existing
// value already matches, drops those, and only issues a modify when
// something remains — no divergence, no LDAP write.
func (ctx *Context) updateComputerObject(existing *ldap.Entry) error {
	desired := ctx.desiredComputerMods()
	diff := map[string][]string{}
	for attr, values := range desired {
		if !equalAttributeValues(existing.GetAttributeValues(attr), values) {
			diff[attr] = values
		}
	}
	if len(diff) == 0 {
		return nil
	}

	req := ldap.NewModifyRequest(ctx.ComputerDN, nil)
	for attr, values := range diff {
		req.Replace(attr, values)
	}
	if err := ctx.conn.LDAP().Modify(req); err != nil {
		return classifyLDAPError(err, errors.ADUpdateComputerFailed)
	}
	return nil
}

func equalAttributeValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// classifyLDAPError maps INSUFFICIENT_ACCESS and (on add)
// OBJECT_CLASS_VIOLATION to a credentials error — AD returns the latter
// when the admin lacks privilege to materialize server-generated
// attributes — and everything else to fallback.
func classifyLDAPError(err error, fallback errors.ErrorCode) error {
	if ldap.IsErrorWithCode(err, ldap.LDAPResultInsufficientAccessRights) ||
		(fallback == errors.ADCreateComputerFailed &&
			ldap.IsErrorWithCode(err, ldap.LDAPResultObjectClassViolation)) {
		return errors.Wrap(err, errors.ADPermissionDenied)
	}
	return errors.Wrap(err, fallback)
}
