// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeytabRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "adjoin-keytab-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "test.keytab")

	kt, err := loadKeytabFile(path)
	require.NoError(t, err)
	assert.Empty(t, kt.entries)

	key, err := deriveKey("hunter2pass", "EXAMPLE.COMHOST01$", etypeID.AES256_CTS_HMAC_SHA1_96)
	require.NoError(t, err)

	kt.addEntry("EXAMPLE.COM", []string{"HOST01$"}, 1, 3, etypeID.AES256_CTS_HMAC_SHA1_96, key)
	require.NoError(t, kt.save(path))

	reloaded, err := loadKeytabFile(path)
	require.NoError(t, err)
	require.Len(t, reloaded.entries, 1)
	assert.Equal(t, "EXAMPLE.COM", reloaded.entries[0].Realm)
	assert.Equal(t, []string{"HOST01$"}, reloaded.entries[0].Components)
	assert.Equal(t, 3, reloaded.entries[0].KVNO)
	assert.Equal(t, key, reloaded.entries[0].Key)
}

func TestKeytabAddEntryReplacesSameKVNOAndEnctype(t *testing.T) {
	kt := &ktFile{}
	key1 := []byte{1, 2, 3}
	key2 := []byte{4, 5, 6}

	kt.addEntry("EXAMPLE.COM", []string{"HOST01$"}, 1, 3, etypeID.AES256_CTS_HMAC_SHA1_96, key1)
	kt.addEntry("EXAMPLE.COM", []string{"HOST01$"}, 1, 3, etypeID.AES256_CTS_HMAC_SHA1_96, key2)

	require.Len(t, kt.entries, 1)
	assert.Equal(t, key2, kt.entries[0].Key)
}

func TestKeytabClearStaleKeepsPreviousKVNOOnly(t *testing.T) {
	kt := &ktFile{}
	kt.addEntry("EXAMPLE.COM", []string{"HOST01$"}, 1, 1, etypeID.AES256_CTS_HMAC_SHA1_96, []byte{1})
	kt.addEntry("EXAMPLE.COM", []string{"HOST01$"}, 1, 2, etypeID.AES256_CTS_HMAC_SHA1_96, []byte{2})
	kt.addEntry("EXAMPLE.COM", []string{"HOST/other"}, 3, 2, etypeID.AES256_CTS_HMAC_SHA1_96, []byte{3})

	removed := kt.clearStale("EXAMPLE.COM", []string{"HOST01$"}, 3)

	assert.Equal(t, 1, removed)
	require.Len(t, kt.entries, 2)
	assert.Equal(t, 2, kt.entries[0].KVNO)
	assert.Equal(t, []string{"HOST/other"}, kt.entries[1].Components)
}

func TestWriteKeytabEntriesDiscoversSaltOnce(t *testing.T) {
	l := newFakeLDAP()
	c := newFakeConn(l)
	ctx := New(c)
	ctx.SAMName = "HOST01$"
	ctx.ComputerName = "HOST01"
	ctx.ComputerPassword = "hunter2pass"
	ctx.Enctypes = []int32{etypeID.AES256_CTS_HMAC_SHA1_96}
	ctx.KVNO = 1

	canonical := canonicalSalt(c.RealmName(), []string{"HOST01$"})
	prober := &fakeProber{acceptSalt: canonical, password: "hunter2pass"}
	ctx.prober = prober

	dir, err := os.MkdirTemp("", "adjoin-keytab-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	ctx.KeytabName = filepath.Join(dir, "host.keytab")
	ctx.ComputerPrincipal = "HOST01$@EXAMPLE.COM"
	ctx.ServicePrincipals = []string{"HOST/HOST01"}

	require.NoError(t, ctx.writeKeytab())
	assert.Equal(t, canonical, *ctx.selectedSalt)

	callsAfterFirst := prober.calls
	require.NoError(t, ctx.writeKeytabEntries("HOST/HOST01@EXAMPLE.COM"))
	assert.Equal(t, callsAfterFirst, prober.calls, "salt discovery must not re-probe for a later principal")
}
