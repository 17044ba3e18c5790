// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/stratastor/rodent/pkg/errors"
)

// wellKnownComputersGUID is AD's fixed well-known-objects identifier for the
// default Computers container of any domain.
const wellKnownComputersGUID = "AA312825768811D1ADED00C04FD8D5CD"

var wellKnownComputersPrefix = fmt.Sprintf("B:32:%s:", wellKnownComputersGUID)

// locate validates or discovers PreferredOU, locates ComputerContainer
// beneath it, and derives ComputerDN.
func (ctx *Context) locate() error {
	if err := ctx.ensurePreferredOU(); err != nil {
		return err
	}
	if err := ctx.ensureComputerContainer(); err != nil {
		return err
	}
	if ctx.ComputerDN == "" {
		ctx.ComputerDN = fmt.Sprintf("CN=%s,%s", ctx.ComputerName, ctx.ComputerContainer)
	}
	return nil
}

func (ctx *Context) ensurePreferredOU() error {
	if ctx.PreferredOU != "" {
		return ctx.validatePreferredOU()
	}
	return ctx.lookupPreferredOU()
}

// validatePreferredOU confirms a caller-supplied OU exists and is an
// organizationalUnit, trusting it unconditionally when it equals the
// directory's naming context.
func (ctx *Context) validatePreferredOU() error {
	if strings.EqualFold(ctx.PreferredOU, ctx.conn.NamingContext()) {
		return nil
	}
	req := ldap.NewSearchRequest(
		ctx.PreferredOU,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		[]string{"objectClass"},
		nil,
	)
	sr, err := ctx.conn.LDAP().Search(req)
	if err != nil {
		return errors.Wrap(err, errors.ADSearchFailed).WithMetadata("ou_dn", ctx.PreferredOU)
	}
	if len(sr.Entries) == 0 {
		return errors.New(errors.ADInvalidOU, "preferred OU does not exist").
			WithMetadata("ou_dn", ctx.PreferredOU)
	}
	for _, oc := range sr.Entries[0].GetAttributeValues("objectClass") {
		if strings.EqualFold(oc, "organizationalUnit") {
			return nil
		}
	}
	return errors.New(errors.ADInvalidOU, "preferred OU is not an organizationalUnit").
		WithMetadata("ou_dn", ctx.PreferredOU)
}

// lookupPreferredOU picks the OU new computer accounts land under when the
// caller didn't name one.
//
// TODO: some deployments publish a preferredOU hint in the directory; no
// query shape for it has ever been verified working against a real DC, so
// this falls back straight to the naming context until one is.
func (ctx *Context) lookupPreferredOU() error {
	ctx.PreferredOU = ctx.conn.NamingContext()
	return nil
}

// ensureComputerContainer locates the computer container under PreferredOU:
// the well-known-objects pointer first, then a CN=Computers child, then the
// OU itself.
func (ctx *Context) ensureComputerContainer() error {
	if ctx.ComputerContainer != "" {
		return nil
	}

	if dn, ok, err := ctx.lookupWellKnownComputersContainer(); err != nil {
		return err
	} else if ok {
		ctx.ComputerContainer = dn
		return nil
	}

	if dn, ok, err := ctx.lookupComputersContainerByFilter(); err != nil {
		return err
	} else if ok {
		ctx.ComputerContainer = dn
		return nil
	}

	ctx.ComputerContainer = ctx.PreferredOU
	ctx.conn.SetLastError(fmt.Sprintf(
		"no wellKnownObjects or CN=Computers container found under %s; using the OU itself",
		ctx.PreferredOU))
	return nil
}

func (ctx *Context) lookupWellKnownComputersContainer() (string, bool, error) {
	req := ldap.NewSearchRequest(
		ctx.PreferredOU,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		[]string{"wellKnownObjects"},
		nil,
	)
	sr, err := ctx.conn.LDAP().Search(req)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ADSearchFailed).WithMetadata("ou_dn", ctx.PreferredOU)
	}
	if len(sr.Entries) == 0 {
		return "", false, nil
	}
	for _, v := range sr.Entries[0].GetAttributeValues("wellKnownObjects") {
		if strings.HasPrefix(v, wellKnownComputersPrefix) {
			return strings.TrimPrefix(v, wellKnownComputersPrefix), true, nil
		}
	}
	return "", false, nil
}

// lookupComputersContainerByFilter searches one level below the OU for a
// container literally named Computers. Single-level scope: the container is
// a child of the OU, never the OU object itself.
func (ctx *Context) lookupComputersContainerByFilter() (string, bool, error) {
	req := ldap.NewSearchRequest(
		ctx.PreferredOU,
		ldap.ScopeSingleLevel,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(&(objectClass=container)(cn=Computers))",
		[]string{"dn"},
		nil,
	)
	sr, err := ctx.conn.LDAP().Search(req)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ADSearchFailed).WithMetadata("ou_dn", ctx.PreferredOU)
	}
	if len(sr.Entries) == 0 {
		return "", false, nil
	}
	return sr.Entries[0].DN, true, nil
}
