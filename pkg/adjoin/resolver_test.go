// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDerivesFromHostFQDN(t *testing.T) {
	ctx := New(newFakeConn(newFakeLDAP()))
	ctx.WithHostFQDN("host01.example.com")

	require.NoError(t, ctx.resolve())

	assert.Equal(t, "HOST01", ctx.ComputerName)
	assert.Equal(t, "HOST01$", ctx.SAMName)
	assert.Equal(t, "HOST01$@EXAMPLE.COM", ctx.ComputerPrincipal)
	assert.NotEmpty(t, ctx.ComputerPassword)
	assert.Equal(t, passwordGenerated, ctx.passwordState)
}

func TestResolveFailsWithoutInteriorDot(t *testing.T) {
	ctx := New(newFakeConn(newFakeLDAP()))
	ctx.WithHostFQDN("host01")

	err := ctx.resolve()
	require.Error(t, err)
}

func TestResolveResetPasswordUsesComputerName(t *testing.T) {
	ctx := New(newFakeConn(newFakeLDAP()))
	ctx.WithHostFQDN("host01.example.com")
	ctx.WithResetPassword(true)

	require.NoError(t, ctx.resolve())

	assert.Equal(t, strings.ToLower(ctx.ComputerName), ctx.ComputerPassword)
	assert.Equal(t, passwordDerived, ctx.passwordState)
}

func TestResolveExplicitPasswordIsKept(t *testing.T) {
	ctx := New(newFakeConn(newFakeLDAP()))
	ctx.WithHostFQDN("host01.example.com")
	ctx.WithComputerPassword("s3cr3t-explicit")

	require.NoError(t, ctx.resolve())

	assert.Equal(t, "s3cr3t-explicit", ctx.ComputerPassword)
	assert.Equal(t, passwordExplicit, ctx.passwordState)
}

func TestResolveDefaultServicePrincipals(t *testing.T) {
	ctx := New(newFakeConn(newFakeLDAP()))
	ctx.WithHostFQDN("host01.example.com")

	require.NoError(t, ctx.resolve())

	assert.Contains(t, ctx.ServicePrincipals, "HOST/HOST01")
	assert.Contains(t, ctx.ServicePrincipals, "HOST/host01.example.com")
	assert.Contains(t, ctx.ServicePrincipals, "RestrictedKrbHost/HOST01")
}

func TestResolveExplicitServicePrincipalsAreNotOverridden(t *testing.T) {
	ctx := New(newFakeConn(newFakeLDAP()))
	ctx.WithHostFQDN("host01.example.com")
	ctx.WithServicePrincipals([]string{"HOST/custom"})

	require.NoError(t, ctx.resolve())

	assert.Equal(t, []string{"HOST/custom"}, ctx.ServicePrincipals)
}

func TestFilterPasswordCharsKeepsPrintableRangeOnly(t *testing.T) {
	kept := filterPasswordChars([]byte{0x1F, 'A', 0x7F, 'B'})
	assert.Equal(t, []byte{'A', 'B'}, kept)
}

func TestGeneratedPasswordLengthAndRange(t *testing.T) {
	password, err := generateHostPassword(generatedPasswordLength)
	require.NoError(t, err)
	require.Len(t, password, generatedPasswordLength)
	for i := 0; i < len(password); i++ {
		c := password[i]
		assert.GreaterOrEqual(t, c, byte(32))
		assert.LessOrEqual(t, c, byte(122))
	}
}
