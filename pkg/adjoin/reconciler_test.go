// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconcilerContext(l *fakeLDAP) *Context {
	ctx := New(newFakeConn(l))
	ctx.SAMName = "HOST01$"
	ctx.ComputerDN = "CN=HOST01,CN=Computers,DC=example,DC=com"
	return ctx
}

func TestReconcileCreatesMissingAccount(t *testing.T) {
	l := newFakeLDAP()
	ctx := newReconcilerContext(l)

	require.NoError(t, ctx.reconcileAccount(0))

	attrs := l.entries[ctx.ComputerDN]
	require.NotNil(t, attrs)
	assert.Equal(t, []string{"HOST01$"}, attrs["sAMAccountName"])
}

func TestReconcileFailsWhenAccountExistsWithoutOverwrite(t *testing.T) {
	l := newFakeLDAP()
	ctx := newReconcilerContext(l)
	l.put(ctx.ComputerDN, map[string][]string{
		"objectClass":        {"computer"},
		"sAMAccountName":     {"HOST01$"},
		"userAccountControl": {"4096"},
	})

	err := ctx.reconcileAccount(0)
	require.Error(t, err)
}

func TestReconcileUpdatesExistingAccountWithOverwrite(t *testing.T) {
	l := newFakeLDAP()
	ctx := newReconcilerContext(l)
	l.put(ctx.ComputerDN, map[string][]string{
		"objectClass":        {"computer"},
		"sAMAccountName":     {"HOST01$"},
		"userAccountControl": {"4096"},
	})

	require.NoError(t, ctx.reconcileAccount(AllowOverwrite))

	assert.Contains(t, l.modifyLog, ctx.ComputerDN)
	attrs := l.entries[ctx.ComputerDN]
	assert.Equal(t, []string{"69632"}, attrs["userAccountControl"])
}

func TestReconcileNoOpWhenNothingDiverges(t *testing.T) {
	l := newFakeLDAP()
	ctx := newReconcilerContext(l)
	l.put(ctx.ComputerDN, map[string][]string{
		"objectClass":        {"computer"},
		"sAMAccountName":     {"HOST01$"},
		"userAccountControl": {"69632"},
	})

	require.NoError(t, ctx.reconcileAccount(AllowOverwrite))

	assert.Empty(t, l.modifyLog)
}
