// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"testing"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/stratastor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) logger.Logger {
	l, err := logger.New(logger.Config{LogLevel: "debug"})
	require.NoError(t, err)
	return l
}

func newSyncContext(l *fakeLDAP) *Context {
	ctx := New(newFakeConn(l))
	ctx.ComputerDN = "CN=HOST01,CN=Computers,DC=example,DC=com"
	ctx.ComputerName = "HOST01"
	ctx.HostFQDN = "host01.example.com"
	ctx.ServicePrincipals = []string{"HOST/HOST01", "HOST/host01.example.com"}
	return ctx
}

func TestSyncKVNODefaultsToZeroWhenAbsent(t *testing.T) {
	l := newFakeLDAP()
	ctx := newSyncContext(l)
	l.put(ctx.ComputerDN, map[string][]string{})

	require.NoError(t, ctx.syncAttributes(testLogger(t)))

	assert.Equal(t, 0, ctx.KVNO)
}

func TestSyncKVNOParsesExistingValue(t *testing.T) {
	l := newFakeLDAP()
	ctx := newSyncContext(l)
	l.put(ctx.ComputerDN, map[string][]string{
		"msDS-KeyVersionNumber": {"7"},
	})

	require.NoError(t, ctx.syncAttributes(testLogger(t)))

	assert.Equal(t, 7, ctx.KVNO)
}

func TestSyncAdoptsAccountEnctypesWhenNotExplicit(t *testing.T) {
	l := newFakeLDAP()
	ctx := newSyncContext(l)
	encoded, err := encodeEnctypes([]int32{etypeID.RC4_HMAC})
	require.NoError(t, err)
	l.put(ctx.ComputerDN, map[string][]string{
		"msDS-supportedEncryptionTypes": {encoded},
		"dNSHostName":                   {"host01.example.com"},
		"servicePrincipalName":          {"HOST/HOST01", "HOST/host01.example.com"},
	})

	require.NoError(t, ctx.syncAttributes(testLogger(t)))

	assert.Equal(t, []int32{etypeID.RC4_HMAC}, ctx.Enctypes)
	assert.Empty(t, l.modifyLog, "no write when the directory value already matches the adopted one")
}

func TestSyncWritesEnctypesWhenExplicitAndDifferent(t *testing.T) {
	l := newFakeLDAP()
	ctx := newSyncContext(l)
	ctx.WithEnctypes([]int32{etypeID.AES256_CTS_HMAC_SHA1_96})
	l.put(ctx.ComputerDN, map[string][]string{})

	require.NoError(t, ctx.syncAttributes(testLogger(t)))

	assert.Contains(t, l.modifyLog, ctx.ComputerDN)
	encoded, err := encodeEnctypes([]int32{etypeID.AES256_CTS_HMAC_SHA1_96})
	require.NoError(t, err)
	assert.Equal(t, []string{encoded}, l.entries[ctx.ComputerDN]["msDS-supportedEncryptionTypes"])
}

func TestSyncWritesDNSHostNameWhenDifferent(t *testing.T) {
	l := newFakeLDAP()
	ctx := newSyncContext(l)
	l.put(ctx.ComputerDN, map[string][]string{
		"dNSHostName": {"stale.example.com"},
	})

	require.NoError(t, ctx.syncAttributes(testLogger(t)))

	assert.Equal(t, []string{"host01.example.com"}, l.entries[ctx.ComputerDN]["dNSHostName"])
}

func TestSyncIsNonFatalOnModifyFailure(t *testing.T) {
	l := newFakeLDAP()
	ctx := newSyncContext(l)
	l.put(ctx.ComputerDN, map[string][]string{})
	l.modifyErr = assertableErr{"insufficient access"}

	err := ctx.syncAttributes(testLogger(t))

	require.NoError(t, err, "attribute write failures are logged, not propagated")
}

type assertableErr struct{ msg string }

func (e assertableErr) Error() string { return e.msg }
