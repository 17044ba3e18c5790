// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"github.com/stratastor/rodent/pkg/adjoin/conn"
)

// Flags select optional join behavior.
type Flags uint8

const (
	// AllowOverwrite permits modifying an existing computer account rather
	// than failing CONFIG when one is already present.
	AllowOverwrite Flags = 1 << iota
	// NoKeytab skips opening/writing the local keytab entirely.
	NoKeytab
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// passwordState tracks how the computer password was populated — it
// governs whether a re-run regenerates, re-derives, or keeps the value.
type passwordState int

const (
	passwordUnset passwordState = iota
	passwordDerived
	passwordGenerated
	passwordExplicit
)

type hostFQDNState int

const (
	fqdnFromConnection hostFQDNState = iota
	fqdnExplicit
	fqdnCleared
)

type computerNameState int

const (
	computerNameDerived computerNameState = iota
	computerNameExplicit
)

type enctypesState int

const (
	enctypesDefault enctypesState = iota
	enctypesDiscovered
	enctypesExplicit
)

// Context accumulates state through the enrollment pipeline. It
// exclusively owns every derived string and the keytab handle it opens;
// the Connection is a borrowed, shared collaborator that Context never
// closes.
type Context struct {
	conn conn.Connection

	HostFQDN      string
	hostFQDNState hostFQDNState

	ComputerName      string
	computerNameState computerNameState

	SAMName            string
	ComputerPrincipal  string
	ComputerPassword   string
	passwordState      passwordState
	ResetPassword      bool

	PreferredOU        string
	ComputerContainer  string
	ComputerDN         string

	ServiceNames              []string
	ServicePrincipals         []string
	servicePrincipalsExplicit bool

	KVNO int

	Enctypes      []int32
	enctypesState enctypesState

	KeytabName string
	keytab     *ktFile

	// selectedSalt caches the salt discovered in stage 4.6, reused for
	// every subsequent principal.
	// A nil pointer means "not yet discovered"; a non-nil pointer to an
	// empty string is itself a valid discovered salt (the null salt).
	selectedSalt *string

	// prober overrides the real KDC prober used by salt discovery; tests
	// substitute a fake so discovery doesn't require a live realm.
	prober asProber

	// pwSetter overrides the kpasswd-backed password setter the same way
	// prober overrides the KDC prober, so pipeline tests can run the full
	// Join without a reachable kpasswd service.
	pwSetter func() error
}

// New creates an enrollment Context bound to the given connection. Settable
// options are applied via the With* methods before Prepare/Join.
func New(c conn.Connection) *Context {
	return &Context{
		conn:         c,
		ServiceNames: []string{"HOST", "RestrictedKrbHost"},
	}
}

// WithHostFQDN overrides the host FQDN explicitly rather than taking it from
// the connection's discovery.
func (ctx *Context) WithHostFQDN(fqdn string) *Context {
	ctx.HostFQDN = fqdn
	ctx.hostFQDNState = fqdnExplicit
	return ctx
}

// WithoutHostFQDN clears any FQDN so the resolver does not fall back to
// connection discovery — used by callers that intend a short-name-only
// join. Resolution then needs an explicit computer name and fails
// ADInvalidComputerName without one.
func (ctx *Context) WithoutHostFQDN() *Context {
	ctx.HostFQDN = ""
	ctx.hostFQDNState = fqdnCleared
	return ctx
}

func (ctx *Context) WithComputerName(name string) *Context {
	ctx.ComputerName = name
	ctx.computerNameState = computerNameExplicit
	return ctx
}

func (ctx *Context) WithComputerPassword(password string) *Context {
	ctx.ComputerPassword = password
	ctx.passwordState = passwordExplicit
	return ctx
}

func (ctx *Context) WithResetPassword(reset bool) *Context {
	ctx.ResetPassword = reset
	return ctx
}

func (ctx *Context) WithPreferredOU(ou string) *Context {
	ctx.PreferredOU = ou
	return ctx
}

func (ctx *Context) WithComputerContainer(dn string) *Context {
	ctx.ComputerContainer = dn
	return ctx
}

func (ctx *Context) WithComputerDN(dn string) *Context {
	ctx.ComputerDN = dn
	return ctx
}

func (ctx *Context) WithServiceNames(names []string) *Context {
	ctx.ServiceNames = names
	return ctx
}

func (ctx *Context) WithServicePrincipals(principals []string) *Context {
	ctx.ServicePrincipals = principals
	ctx.servicePrincipalsExplicit = true
	return ctx
}

func (ctx *Context) WithKVNO(kvno int) *Context {
	ctx.KVNO = kvno
	return ctx
}

func (ctx *Context) WithKeytabName(name string) *Context {
	ctx.KeytabName = name
	return ctx
}

func (ctx *Context) WithEnctypes(enctypes []int32) *Context {
	ctx.Enctypes = enctypes
	ctx.enctypesState = enctypesExplicit
	return ctx
}

// Close releases resources Context exclusively owns: it clears
// ComputerPassword and drops the in-memory keytab. The password is a Go
// string, so its bytes are not overwritten in memory; only the Context's
// reference is removed. The connection is never closed here — it is a
// shared, borrowed collaborator.
func (ctx *Context) Close() {
	if ctx.ComputerPassword != "" {
		zeroed := make([]byte, len(ctx.ComputerPassword))
		_ = zeroed // the string itself is immutable; drop our only reference
		ctx.ComputerPassword = ""
	}
	ctx.keytab = nil
}
