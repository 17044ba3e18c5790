// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"strings"

	"github.com/stratastor/rodent/pkg/errors"
)

// defaultKeytabPath is the fallback when no keytab name is given: the
// system default keytab the realm library would otherwise resolve.
const defaultKeytabPath = "/etc/krb5.keytab"

// openKeytab opens the target keytab file, creating it in memory if absent
// — nothing is written to disk until writeKeytab's final save.
func (ctx *Context) openKeytab() error {
	path := ctx.KeytabName
	if path == "" {
		path = defaultKeytabPath
	}
	ctx.KeytabName = path
	kt, err := loadKeytabFile(path)
	if err != nil {
		return err
	}
	ctx.keytab = kt
	return nil
}

// writeKeytab rewrites entries for every principal in the context: the
// computer principal first, then each service principal. The computer
// principal carries the salt discovery probe; the result is then reused
// for every later principal.
func (ctx *Context) writeKeytab() error {
	if ctx.keytab == nil {
		if err := ctx.openKeytab(); err != nil {
			return err
		}
	}

	principals := make([]string, 0, len(ctx.ServicePrincipals)+1)
	principals = append(principals, ctx.ComputerPrincipal)
	principals = append(principals, ctx.qualifiedServicePrincipals()...)

	for _, p := range principals {
		if err := ctx.writeKeytabEntries(p); err != nil {
			return err
		}
	}
	return ctx.keytab.save(ctx.KeytabName)
}

// qualifiedServicePrincipals attaches the connection's realm to each bare
// "service/host" string in ServicePrincipals.
func (ctx *Context) qualifiedServicePrincipals() []string {
	out := make([]string, 0, len(ctx.ServicePrincipals))
	for _, p := range ctx.ServicePrincipals {
		if strings.Contains(p, "@") {
			out = append(out, p)
			continue
		}
		out = append(out, p+"@"+ctx.conn.RealmName())
	}
	return out
}

func splitPrincipal(p string) (components []string, realm string) {
	name := p
	if at := strings.LastIndex(p, "@"); at >= 0 {
		name = p[:at]
		realm = p[at+1:]
	}
	return strings.Split(name, "/"), realm
}

// principalNameType mirrors the Kerberos name-type conventions gokrb5 uses:
// a single-component principal (the computer account, e.g. "HOST01$") is
// KRB_NT_PRINCIPAL; a "service/host" SPN is KRB_NT_SRV_HST.
func principalNameType(components []string) int32 {
	const (
		krbNTPrincipal = 1
		krbNTSrvHst    = 3
	)
	if len(components) <= 1 {
		return krbNTPrincipal
	}
	return krbNTSrvHst
}

// writeKeytabEntries clears stale entries for the principal, discovers (or
// reuses) the salt, then installs an entry per enabled enctype.
func (ctx *Context) writeKeytabEntries(principal string) error {
	components, realm := splitPrincipal(principal)
	if realm == "" {
		realm = ctx.conn.RealmName()
	}

	ctx.keytab.clearStale(realm, components, ctx.KVNO)

	salt, err := ctx.resolveSalt(components, realm)
	if err != nil {
		return err
	}

	// Enctypes the crypto library cannot derive keys for (legacy single-DES)
	// are skipped rather than failing the join; the realm library does the
	// same when a keytab enctype is unsupported.
	nameType := principalNameType(components)
	wrote := 0
	for _, et := range ctx.Enctypes {
		key, err := deriveKey(ctx.ComputerPassword, salt, et)
		if err != nil {
			continue
		}
		ctx.keytab.addEntry(realm, components, nameType, ctx.KVNO, et, key)
		wrote++
	}
	if wrote == 0 {
		return errors.New(errors.ADEnctypesUnusable, "no enabled encryption type could derive a key").
			WithMetadata("principal", principal)
	}
	return nil
}

// resolveSalt runs discovery once per Context and reuses the cached result
// for every subsequent principal; AD uses one salt per account, and
// re-probing risks lockout from repeated failed AS-REQs.
func (ctx *Context) resolveSalt(components []string, realm string) (string, error) {
	if ctx.selectedSalt != nil {
		return *ctx.selectedSalt, nil
	}
	prober := ctx.prober
	if prober == nil {
		prober = newKDCProber(ctx.conn.KerberosConfig(), ctx.conn.KDCHost())
	}
	salt, err := discoverSalt(prober, realm, components, ctx.ComputerName, ctx.KVNO, ctx.Enctypes, ctx.ComputerPassword)
	if err != nil {
		return "", err
	}
	ctx.selectedSalt = &salt
	return salt, nil
}
