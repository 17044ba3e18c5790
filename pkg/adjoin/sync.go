// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"sort"
	"strconv"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/stratastor/logger"
	"github.com/stratastor/rodent/pkg/errors"
)

var syncAttrs = []string{
	"msDS-KeyVersionNumber",
	"msDS-supportedEncryptionTypes",
	"dNSHostName",
	"servicePrincipalName",
}

// syncAttributes reads back kvno/enctypes/dNSHostName/servicePrincipalName
// and writes any that disagree with the desired state. Attribute write
// failures are logged and non-fatal; a failed read-back and an enctype
// encoding failure are returned.
func (ctx *Context) syncAttributes(l logger.Logger) error {
	entry, err := ctx.readSyncAttributes()
	if err != nil {
		return errors.Wrap(err, errors.ADSearchFailed)
	}

	ctx.syncKVNO(entry, l)

	if err := ctx.syncEnctypes(entry, l); err != nil {
		return err // CONFIG on encoding failure only; see syncEnctypes
	}
	ctx.syncDNSHostName(entry, l)
	ctx.syncServicePrincipalNames(entry, l)
	return nil
}

func (ctx *Context) readSyncAttributes() (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		ctx.ComputerDN,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		syncAttrs,
		nil,
	)
	sr, err := ctx.conn.LDAP().Search(req)
	if err != nil {
		return nil, err
	}
	if len(sr.Entries) == 0 {
		return nil, errors.New(errors.ADSearchFailed, "computer object disappeared during sync").
			WithMetadata("computer_dn", ctx.ComputerDN)
	}
	return sr.Entries[0], nil
}

// syncKVNO parses msDS-KeyVersionNumber, treating it as 0 when absent
// (legacy AD omits the attribute).
func (ctx *Context) syncKVNO(entry *ldap.Entry, l logger.Logger) {
	value := entry.GetAttributeValue("msDS-KeyVersionNumber")
	if value == "" {
		ctx.KVNO = 0
		l.Info("no kvno found for computer account, treating as legacy AD", "computer_dn", ctx.ComputerDN)
		return
	}
	kvno, err := strconv.Atoi(value)
	if err != nil {
		l.Warn("invalid kvno on computer account, leaving unchanged", "value", value, "computer_dn", ctx.ComputerDN)
		return
	}
	ctx.KVNO = kvno
}

// syncEnctypes adopts the account's current enctype list when the caller
// did not explicitly set one, computes the effective list (falling back to
// defaultEnctypes), and writes it back only if it differs. Encoding
// failure is the one syncAttributes failure that is fatal — the keytab
// stage cannot proceed with an unusable enctype list.
func (ctx *Context) syncEnctypes(entry *ldap.Entry, l logger.Logger) error {
	current := entry.GetAttributeValue("msDS-supportedEncryptionTypes")

	if ctx.enctypesState != enctypesExplicit {
		if parsed := parseEnctypes(current); parsed != nil {
			ctx.Enctypes = parsed
			ctx.enctypesState = enctypesDiscovered
		}
	}
	if len(ctx.Enctypes) == 0 {
		ctx.Enctypes = defaultEnctypes()
	}

	encoded, err := encodeEnctypes(ctx.Enctypes)
	if err != nil {
		return errors.Wrap(err, errors.ADEnctypesUnusable)
	}
	if encoded == current {
		return nil
	}

	req := ldap.NewModifyRequest(ctx.ComputerDN, nil)
	req.Replace("msDS-supportedEncryptionTypes", []string{encoded})
	if err := ctx.conn.LDAP().Modify(req); err != nil {
		ctx.logSyncFailure(l, "msDS-supportedEncryptionTypes", err)
	}
	return nil
}

func (ctx *Context) syncDNSHostName(entry *ldap.Entry, l logger.Logger) {
	if ctx.HostFQDN == "" || entry.GetAttributeValue("dNSHostName") == ctx.HostFQDN {
		return
	}
	req := ldap.NewModifyRequest(ctx.ComputerDN, nil)
	req.Replace("dNSHostName", []string{ctx.HostFQDN})
	if err := ctx.conn.LDAP().Modify(req); err != nil {
		ctx.logSyncFailure(l, "dNSHostName", err)
	}
}

func (ctx *Context) syncServicePrincipalNames(entry *ldap.Entry, l logger.Logger) {
	desired := append([]string(nil), ctx.ServicePrincipals...)
	current := entry.GetAttributeValues("servicePrincipalName")
	if sameStringSet(desired, current) {
		return
	}
	req := ldap.NewModifyRequest(ctx.ComputerDN, nil)
	req.Replace("servicePrincipalName", desired)
	if err := ctx.conn.LDAP().Modify(req); err != nil {
		ctx.logSyncFailure(l, "servicePrincipalName", err)
	}
}

// logSyncFailure records a soft failure: attribute writes here are
// best-effort, and the overall join is not aborted by a sync-stage
// failure, permission errors included. The failure is still run through
// classifyLDAPError first so an insufficient-access refusal is recorded
// as a credentials problem rather than a generic update failure.
func (ctx *Context) logSyncFailure(l logger.Logger, attr string, err error) {
	classified := classifyLDAPError(err, errors.ADUpdateComputerFailed)
	ctx.conn.SetLastError("failed to sync " + attr + ": " + classified.Error())
	l.Warn("attribute sync failed, continuing join", "attribute", attr, "error", classified, "computer_dn", ctx.ComputerDN)
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if !strings.EqualFold(sa[i], sb[i]) {
			return false
		}
	}
	return true
}
