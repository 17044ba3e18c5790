// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"testing"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber accepts a single predetermined salt, mimicking a KDC that only
// recognizes one of the three candidate salts discoverSalt tries. password
// is what the fake realm believes the account's password to be.
type fakeProber struct {
	acceptSalt string
	password   string
	calls      int
}

func (p *fakeProber) Probe(components []string, realm string, kvno int, encType int32, key []byte) (bool, error) {
	p.calls++
	expected, err := deriveKey(p.password, p.acceptSalt, encType)
	if err != nil {
		return false, nil
	}
	return string(key) == string(expected), nil
}

func TestDiscoverSaltFindsCanonicalSalt(t *testing.T) {
	realm := "EXAMPLE.COM"
	components := []string{"HOST01$"}
	canonical := canonicalSalt(realm, components)
	prober := &fakeProber{acceptSalt: canonical, password: "hunter2pass"}

	salt, err := discoverSalt(prober, realm, components, "HOST01", 1, []int32{etypeID.AES256_CTS_HMAC_SHA1_96}, "hunter2pass")

	require.NoError(t, err)
	assert.Equal(t, canonical, salt)
}

func TestDiscoverSaltFindsW2k3Salt(t *testing.T) {
	realm := "EXAMPLE.COM"
	components := []string{"HOST01$"}
	w2k3 := w2k3MachineSalt(realm, "HOST01")
	prober := &fakeProber{acceptSalt: w2k3, password: "hunter2pass"}

	salt, err := discoverSalt(prober, realm, components, "HOST01", 1, []int32{etypeID.AES256_CTS_HMAC_SHA1_96}, "hunter2pass")

	require.NoError(t, err)
	assert.Equal(t, w2k3, salt)
}

func TestDiscoverSaltFindsNullSalt(t *testing.T) {
	realm := "EXAMPLE.COM"
	components := []string{"HOST01$"}
	prober := &fakeProber{acceptSalt: "", password: "hunter2pass"}

	salt, err := discoverSalt(prober, realm, components, "HOST01", 1, []int32{etypeID.AES256_CTS_HMAC_SHA1_96}, "hunter2pass")

	require.NoError(t, err)
	assert.Equal(t, "", salt)
	assert.Equal(t, 3, prober.calls)
}

func TestDiscoverSaltFailsWhenNoneAccepted(t *testing.T) {
	prober := &fakeProber{acceptSalt: "something-else-entirely", password: "hunter2pass"}

	_, err := discoverSalt(prober, "EXAMPLE.COM", []string{"HOST01$"}, "HOST01", 1, []int32{etypeID.AES256_CTS_HMAC_SHA1_96}, "hunter2pass")

	require.Error(t, err)
}
