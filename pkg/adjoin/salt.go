// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"fmt"
	"strings"

	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/stratastor/rodent/pkg/errors"
)

// candidateSalts builds the three salts an AD realm may have used: the
// canonical Kerberos salt, the Windows 2003 machine-account salt, and the
// null salt. Order matters: salt discovery (discoverSalt) tries them in
// this order and keeps the first that works.
func candidateSalts(realm string, components []string, computerName string) []string {
	return []string{
		canonicalSalt(realm, components),
		w2k3MachineSalt(realm, computerName),
		"",
	}
}

// canonicalSalt reproduces krb5_principal2salt: the realm followed by each
// principal name component, concatenated with no separator.
func canonicalSalt(realm string, components []string) string {
	var b strings.Builder
	b.WriteString(realm)
	for _, c := range components {
		b.WriteString(c)
	}
	return b.String()
}

// w2k3MachineSalt reproduces the Windows 2003 machine-account salt: the
// realm, the literal string "host", the lowercased computer name, a dot,
// and the lowercased realm.
func w2k3MachineSalt(realm, computerName string) string {
	return fmt.Sprintf("%shost%s.%s", realm, strings.ToLower(computerName), strings.ToLower(realm))
}

// deriveKey derives a raw key from password+salt for one enctype, via
// gokrb5's string-to-key (crypto.GetEtype(...).StringToKey), the same
// primitive client.Client uses internally for password logins — just
// invoked here with a caller-chosen salt instead of the library's default.
func deriveKey(password string, salt string, encType int32) ([]byte, error) {
	et, err := crypto.GetEtype(encType)
	if err != nil {
		return nil, errors.Wrap(err, errors.ADEnctypesUnusable).
			WithMetadata("enctype", enctypeName(encType))
	}
	key, err := et.StringToKey(password, salt, et.GetDefaultStringToKeyParams())
	if err != nil {
		return nil, errors.Wrap(err, errors.ADSaltDiscoveryFailed)
	}
	return key, nil
}

// asProber is the trial-AS-REQ primitive salt discovery probes against the
// realm. Abstracted so salt_test.go can substitute a fake prober and
// exercise the discovery loop without a live KDC.
type asProber interface {
	// Probe attempts an AS-REQ for principal at kvno, pre-authenticating
	// with key. It returns true if the KDC accepted the pre-auth (i.e.
	// key was derived with the realm's actual salt for this enctype).
	Probe(components []string, realm string, kvno int, encType int32, key []byte) (bool, error)
}

// discoverSalt tries each candidate salt, for each enabled enctype, until
// the prober accepts one. The first salt that works for *any* enctype is
// returned; the realm uses the same salt for all of an account's
// principals, so the caller caches it.
func discoverSalt(prober asProber, realm string, components []string, computerName string, kvno int, enctypes []int32, password string) (string, error) {
	for _, salt := range candidateSalts(realm, components, computerName) {
		for _, et := range enctypes {
			key, err := deriveKey(password, salt, et)
			if err != nil {
				continue
			}
			ok, err := prober.Probe(components, realm, kvno, et, key)
			if err != nil {
				continue
			}
			if ok {
				return salt, nil
			}
		}
	}
	return "", errors.New(errors.ADSaltDiscoveryFailed, "no candidate salt was accepted by the realm").
		WithMetadata("kvno", fmt.Sprintf("%d", kvno))
}
