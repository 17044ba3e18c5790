// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"github.com/go-ldap/ldap/v3"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/stratastor/rodent/pkg/adjoin/conn"
)

// fakeLDAP is an in-memory LDAPConn double. Base-object lookups are keyed by
// DN directly against entries; single-level/subtree lookups are served from
// a separate children map keyed by the parent DN, so locator tests can
// distinguish "no entry at this DN" from "entry exists one level below".
type fakeLDAP struct {
	entries    map[string]map[string][]string
	children   map[string][]*ldap.Entry
	addErr     error
	modifyErr  error
	searchErrs map[string]error
	modifyLog  []string
}

func newFakeLDAP() *fakeLDAP {
	return &fakeLDAP{
		entries:    map[string]map[string][]string{},
		children:   map[string][]*ldap.Entry{},
		searchErrs: map[string]error{},
	}
}

func (f *fakeLDAP) put(dn string, attrs map[string][]string) {
	f.entries[dn] = attrs
}

// putChild registers dn as discoverable one level below parent, for
// ScopeSingleLevel searches (e.g. the Computers container lookup).
func (f *fakeLDAP) putChild(parent, dn string, attrs map[string][]string) {
	entry := &ldap.Entry{DN: dn}
	for name, v := range attrs {
		entry.Attributes = append(entry.Attributes, &ldap.EntryAttribute{Name: name, Values: v})
	}
	f.children[parent] = append(f.children[parent], entry)
}

func (f *fakeLDAP) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if err, ok := f.searchErrs[req.BaseDN]; ok {
		return nil, err
	}

	if req.Scope != ldap.ScopeBaseObject {
		return &ldap.SearchResult{Entries: f.children[req.BaseDN]}, nil
	}

	attrs, ok := f.entries[req.BaseDN]
	if !ok {
		return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, nil)
	}

	entry := &ldap.Entry{DN: req.BaseDN}
	for _, name := range req.Attributes {
		if v, ok := attrs[name]; ok {
			entry.Attributes = append(entry.Attributes, &ldap.EntryAttribute{Name: name, Values: v})
		}
	}
	return &ldap.SearchResult{Entries: []*ldap.Entry{entry}}, nil
}

func (f *fakeLDAP) Add(req *ldap.AddRequest) error {
	if f.addErr != nil {
		return f.addErr
	}
	attrs := map[string][]string{}
	for _, a := range req.Attributes {
		attrs[a.Type] = a.Vals
	}
	f.put(req.DN, attrs)
	return nil
}

func (f *fakeLDAP) Modify(req *ldap.ModifyRequest) error {
	if f.modifyErr != nil {
		return f.modifyErr
	}
	f.modifyLog = append(f.modifyLog, req.DN)
	attrs := f.entries[req.DN]
	if attrs == nil {
		attrs = map[string][]string{}
	}
	for _, change := range req.Changes {
		attrs[change.Modification.Type] = change.Modification.Vals
	}
	f.entries[req.DN] = attrs
	return nil
}

// fakeConn is a minimal conn.Connection double exercising only what the
// pipeline stages under test read from it.
type fakeConn struct {
	realm         string
	domain        string
	namingContext string
	fqdn          string
	kdcHost       string
	ldap          *fakeLDAP
	loginType     conn.LoginType
	krb5Conf      *config.Config
	admin         *client.Client
	lastError     string
}

func newFakeConn(ldap *fakeLDAP) *fakeConn {
	return &fakeConn{
		realm:         "EXAMPLE.COM",
		domain:        "example.com",
		namingContext: "DC=example,DC=com",
		fqdn:          "host01.example.com",
		kdcHost:       "dc1.example.com",
		ldap:          ldap,
		krb5Conf:      config.New(),
	}
}

func (c *fakeConn) RealmName() string                { return c.realm }
func (c *fakeConn) DomainName() string                { return c.domain }
func (c *fakeConn) NamingContext() string             { return c.namingContext }
func (c *fakeConn) DiscoveredFQDN() string            { return c.fqdn }
func (c *fakeConn) KDCHost() string                   { return c.kdcHost }
func (c *fakeConn) LDAP() conn.LDAPConn               { return c.ldap }
func (c *fakeConn) LoginType() conn.LoginType         { return c.loginType }
func (c *fakeConn) KerberosConfig() *config.Config    { return c.krb5Conf }
func (c *fakeConn) AdminCredentials() *client.Client  { return c.admin }
func (c *fakeConn) ComputerCredentials() (*client.Client, error) {
	return nil, nil
}
func (c *fakeConn) SetLastError(detail string) { c.lastError = detail }

var _ conn.Connection = (*fakeConn)(nil)
