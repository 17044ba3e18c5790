// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/stratastor/rodent/pkg/errors"
)

// generatedPasswordLength is the length of a freshly generated machine
// password: 120 printable ASCII octets.
const generatedPasswordLength = 120

// resolve populates HostFQDN, ComputerName, SAMName, ComputerPrincipal,
// ComputerPassword, and the service name/principal sets from caller
// overrides and the connection.
func (ctx *Context) resolve() error {
	if err := ctx.ensureHostFQDN(); err != nil {
		return err
	}
	if err := ctx.ensureComputerName(); err != nil {
		return err
	}
	ctx.SAMName = strings.ToUpper(ctx.ComputerName) + "$"

	if err := ctx.ensureComputerPrincipal(); err != nil {
		return err
	}
	if err := ctx.ensureComputerPassword(); err != nil {
		return err
	}
	if err := ctx.ensureServiceNames(); err != nil {
		return err
	}
	return ctx.ensureServicePrincipals()
}

// ensureHostFQDN takes HostFQDN from the connection's discovery unless the
// caller explicitly set or cleared it.
func (ctx *Context) ensureHostFQDN() error {
	switch ctx.hostFQDNState {
	case fqdnExplicit, fqdnCleared:
		return nil
	default:
		if ctx.HostFQDN == "" {
			ctx.HostFQDN = ctx.conn.DiscoveredFQDN()
		}
		return nil
	}
}

// ensureComputerName derives ComputerName from the first label of HostFQDN,
// uppercased. A name without an interior dot is not a usable FQDN.
func (ctx *Context) ensureComputerName() error {
	if ctx.computerNameState == computerNameExplicit && ctx.ComputerName != "" {
		return nil
	}
	if ctx.HostFQDN == "" {
		return errors.New(errors.ADInvalidComputerName, "no host FQDN and no explicit computer name")
	}
	dot := strings.Index(ctx.HostFQDN, ".")
	if dot <= 0 {
		return errors.New(errors.ADInvalidComputerName, "host FQDN has no interior dot").
			WithMetadata("host_fqdn", ctx.HostFQDN)
	}
	ctx.ComputerName = strings.ToUpper(ctx.HostFQDN[:dot])
	return nil
}

func (ctx *Context) ensureComputerPrincipal() error {
	if ctx.ComputerPrincipal != "" {
		return nil
	}
	ctx.ComputerPrincipal = fmt.Sprintf("%s@%s", ctx.SAMName, ctx.conn.RealmName())
	return nil
}

// ensureComputerPassword: a reset derives the well-known AD default
// password from ComputerName; a fresh join generates 120 random
// printable-ASCII octets via rejection sampling.
func (ctx *Context) ensureComputerPassword() error {
	if ctx.passwordState == passwordExplicit && ctx.ComputerPassword != "" {
		return nil
	}
	if ctx.ResetPassword {
		ctx.ComputerPassword = calcResetPassword(ctx.ComputerName)
		ctx.passwordState = passwordDerived
		return nil
	}
	password, err := generateHostPassword(generatedPasswordLength)
	if err != nil {
		return errors.Wrap(err, errors.ADEncodePasswordFailed)
	}
	ctx.ComputerPassword = password
	ctx.passwordState = passwordGenerated
	return nil
}

// calcResetPassword reproduces AD's well-known default reset password for a
// newly created computer account: the lowercased computer name, unquoted.
func calcResetPassword(computerName string) string {
	return strings.ToLower(computerName)
}

// generateHostPassword draws printable-ASCII bytes in [32,122] via
// rejection sampling until length bytes are accepted.
func generateHostPassword(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		out = append(out, filterPasswordChars(buf)...)
		if len(out) > length {
			out = out[:length]
		}
	}
	return string(out), nil
}

// filterPasswordChars keeps only bytes MS documents their servers accept:
// ASCII 32-122 inclusive.
func filterPasswordChars(b []byte) []byte {
	kept := make([]byte, 0, len(b))
	for _, c := range b {
		if c >= 32 && c <= 122 {
			kept = append(kept, c)
		}
	}
	return kept
}

func (ctx *Context) ensureServiceNames() error {
	if len(ctx.ServiceNames) == 0 {
		ctx.ServiceNames = []string{"HOST", "RestrictedKrbHost"}
	}
	return nil
}

// ensureServicePrincipals builds the cross-product of ServiceNames with
// {ComputerName, HostFQDN} (the FQDN variant is omitted when FQDN is empty),
// each carrying the connection's realm.
func (ctx *Context) ensureServicePrincipals() error {
	if ctx.servicePrincipalsExplicit && len(ctx.ServicePrincipals) > 0 {
		return nil
	}
	// Each principal's realm is attached at Kerberos-principal-parse time
	// in keytab.go, not embedded in the string form here.
	principals := make([]string, 0, len(ctx.ServiceNames)*2)
	for _, svc := range ctx.ServiceNames {
		principals = append(principals, fmt.Sprintf("%s/%s", svc, ctx.ComputerName))
		if ctx.HostFQDN != "" {
			principals = append(principals, fmt.Sprintf("%s/%s", svc, ctx.HostFQDN))
		}
	}
	ctx.ServicePrincipals = principals
	return nil
}
