// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateDefaultsPreferredOUToNamingContext(t *testing.T) {
	l := newFakeLDAP()
	l.put("DC=example,DC=com", map[string][]string{})

	ctx := New(newFakeConn(l))
	ctx.WithComputerName("HOST01")

	require.NoError(t, ctx.locate())

	assert.Equal(t, "DC=example,DC=com", ctx.PreferredOU)
	assert.Equal(t, "DC=example,DC=com", ctx.ComputerContainer)
	assert.Equal(t, "CN=HOST01,DC=example,DC=com", ctx.ComputerDN)
}

func TestLocateFindsWellKnownComputersContainer(t *testing.T) {
	l := newFakeLDAP()
	l.put("DC=example,DC=com", map[string][]string{
		"wellKnownObjects": {
			wellKnownComputersPrefix + "CN=Computers,DC=example,DC=com",
		},
	})

	ctx := New(newFakeConn(l))
	ctx.WithComputerName("HOST01")

	require.NoError(t, ctx.locate())

	assert.Equal(t, "CN=Computers,DC=example,DC=com", ctx.ComputerContainer)
	assert.Equal(t, "CN=HOST01,CN=Computers,DC=example,DC=com", ctx.ComputerDN)
}

func TestLocateFallsBackToFilterSearchThenOU(t *testing.T) {
	l := newFakeLDAP()
	l.put("DC=example,DC=com", map[string][]string{})
	l.putChild("DC=example,DC=com", "OU=Computers,DC=example,DC=com", map[string][]string{
		"objectClass": {"container"},
		"cn":          {"Computers"},
	})

	ctx := New(newFakeConn(l))
	ctx.WithComputerName("HOST01")

	require.NoError(t, ctx.locate())

	assert.Equal(t, "OU=Computers,DC=example,DC=com", ctx.ComputerContainer)
}

func TestLocateFallsBackToOUWhenNoContainerFound(t *testing.T) {
	l := newFakeLDAP()
	l.put("DC=example,DC=com", map[string][]string{})

	ctx := New(newFakeConn(l))
	ctx.WithComputerName("HOST01")

	require.NoError(t, ctx.locate())

	assert.Equal(t, "DC=example,DC=com", ctx.ComputerContainer)
}

func TestValidatePreferredOURejectsNonOU(t *testing.T) {
	l := newFakeLDAP()
	l.put("OU=Servers,DC=example,DC=com", map[string][]string{
		"objectClass": {"container"},
	})

	ctx := New(newFakeConn(l))
	ctx.WithComputerName("HOST01")
	ctx.WithPreferredOU("OU=Servers,DC=example,DC=com")

	err := ctx.locate()
	require.Error(t, err)
}

func TestValidatePreferredOUAcceptsRealOU(t *testing.T) {
	l := newFakeLDAP()
	l.put("OU=Servers,DC=example,DC=com", map[string][]string{
		"objectClass": {"organizationalUnit"},
	})

	ctx := New(newFakeConn(l))
	ctx.WithComputerName("HOST01")
	ctx.WithPreferredOU("OU=Servers,DC=example,DC=com")

	require.NoError(t, ctx.locate())
	assert.Equal(t, "OU=Servers,DC=example,DC=com", ctx.ComputerContainer)
}
