// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package conn implements the narrow connection collaborator the enrollment
// engine in pkg/adjoin consumes: domain discovery, an authenticated LDAP
// connection, and a Kerberos context for either an admin or a computer
// principal.
package conn

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/stratastor/logger"
	"github.com/stratastor/rodent/pkg/errors"
)

func loadKeytab(path string) (*keytab.Keytab, error) {
	return keytab.Load(path)
}

// LoginType discriminates which Kerberos identity the connection
// authenticated with, which in turn selects the Password Setter strategy
// (set-password vs. change-password).
type LoginType int

const (
	UserAccount LoginType = iota
	ComputerAccount
)

// LDAPConn is the subset of *ldap.Conn the engine uses. Narrowed to an
// interface so reconciler/locator/sync tests can fake the directory.
type LDAPConn interface {
	Search(*ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(*ldap.AddRequest) error
	Modify(*ldap.ModifyRequest) error
}

// Connection is the external interface the engine is built against.
type Connection interface {
	RealmName() string
	DomainName() string
	NamingContext() string
	DiscoveredFQDN() string
	// KDCHost returns the domain controller host this connection bound
	// to, used as the kpasswd target (RFC 3244 §2's well-known port on
	// the same host).
	KDCHost() string
	LDAP() LDAPConn
	LoginType() LoginType
	KerberosConfig() *config.Config
	AdminCredentials() *client.Client
	ComputerCredentials() (*client.Client, error)
	SetLastError(detail string)
}

// Options configure a discovered connection.
type Options struct {
	Realm            string
	Domain           string
	Server           string // explicit DC host:port; empty triggers DNS SRV discovery
	KerberosConfPath string // defaults to /etc/krb5.conf
	Username         string // for an admin (USER_ACCOUNT) login
	Password         string
	KeytabPath       string // for a COMPUTER_ACCOUNT login
	InsecureTLS      bool   // skip LDAPS certificate verification; test/dev only
}

// conn is the concrete Connection built on go-ldap + gokrb5.
type conn struct {
	opts          Options
	logger        logger.Logger
	realm         string
	domain        string
	namingContext string
	fqdn          string
	server        string
	krb5Conf      *config.Config
	ldapConn      *ldap.Conn
	loginType     LoginType
	adminClient   *client.Client
	lastError     string
}

// Discover resolves the domain controller (via explicit Server or DNS SRV),
// binds LDAPS with GSSAPI, and returns a ready Connection. Mirrors the shape
// of pkg/ad.New(), generalized to accept either admin-password or
// computer-keytab credentials.
func Discover(l logger.Logger, opts Options) (Connection, error) {
	realm := strings.ToUpper(opts.Realm)
	domain := strings.ToLower(opts.Domain)
	if domain == "" {
		domain = strings.ToLower(realm)
	}

	krb5ConfPath := opts.KerberosConfPath
	if krb5ConfPath == "" {
		krb5ConfPath = "/etc/krb5.conf"
	}
	krb5Conf, err := config.Load(krb5ConfPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ADConnectFailed).
			WithMetadata("krb5_conf", krb5ConfPath)
	}

	server := opts.Server
	if server == "" {
		server, err = discoverDC(domain)
		if err != nil {
			return nil, errors.Wrap(err, errors.ADConnectFailed).
				WithMetadata("domain", domain).
				WithMetadata("action", "dns_srv_discovery")
		}
	}

	fqdn, err := discoverHostFQDN()
	if err != nil {
		l.Warn("Could not determine local host FQDN", "error", err)
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: opts.InsecureTLS}
	ldapURL := fmt.Sprintf("ldaps://%s:636", server)
	lc, err := ldap.DialURL(ldapURL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, errors.Wrap(err, errors.ADConnectFailed).
			WithMetadata("ldap_url", ldapURL)
	}

	c := &conn{
		opts:     opts,
		logger:   l,
		realm:    realm,
		domain:   domain,
		fqdn:     fqdn,
		server:   server,
		krb5Conf: krb5Conf,
		ldapConn: lc,
	}

	var gssClient ldap.GSSAPIClient
	if opts.KeytabPath != "" {
		c.loginType = ComputerAccount
		gssClient, err = gssapi.NewClientWithKeytab(opts.Username, realm, opts.KeytabPath, krb5ConfPath, client.DisablePAFXFAST(true))
	} else {
		c.loginType = UserAccount
		gssClient, err = gssapi.NewClientWithPassword(opts.Username, realm, opts.Password, krb5ConfPath, client.DisablePAFXFAST(true))
	}
	if err != nil {
		lc.Close()
		return nil, errors.Wrap(err, errors.ADInvalidCredentials)
	}
	defer gssClient.DeleteSecContext()

	spn := fmt.Sprintf("ldap/%s", server)
	if err := lc.GSSAPIBind(gssClient, spn, ""); err != nil {
		lc.Close()
		return nil, errors.Wrap(err, errors.ADInvalidCredentials).
			WithMetadata("spn", spn)
	}

	namingContext, err := getDefaultNamingContext(lc)
	if err != nil {
		lc.Close()
		return nil, errors.Wrap(err, errors.ADSearchFailed)
	}
	c.namingContext = namingContext

	if opts.Username != "" && opts.Password != "" && c.loginType == UserAccount {
		c.adminClient = client.NewWithPassword(opts.Username, realm, opts.Password, krb5Conf, client.DisablePAFXFAST(true))
		if err := c.adminClient.Login(); err != nil {
			lc.Close()
			return nil, errors.Wrap(err, errors.ADInvalidCredentials)
		}
	}

	return c, nil
}

func (c *conn) RealmName() string     { return c.realm }
func (c *conn) DomainName() string    { return c.domain }
func (c *conn) NamingContext() string { return c.namingContext }
func (c *conn) DiscoveredFQDN() string { return c.fqdn }
func (c *conn) KDCHost() string        { return c.server }
func (c *conn) LoginType() LoginType  { return c.loginType }
func (c *conn) KerberosConfig() *config.Config { return c.krb5Conf }
func (c *conn) AdminCredentials() *client.Client { return c.adminClient }

func (c *conn) ComputerCredentials() (*client.Client, error) {
	if c.opts.KeytabPath == "" {
		return nil, errors.New(errors.ADInvalidCredentials, "no computer keytab configured on this connection")
	}
	kt, err := loadKeytab(c.opts.KeytabPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ADKeytabOpenFailed).WithMetadata("path", c.opts.KeytabPath)
	}
	cl := client.NewWithKeytab(c.opts.Username, c.realm, kt, c.krb5Conf, client.DisablePAFXFAST(true))
	if err := cl.Login(); err != nil {
		return nil, errors.Wrap(err, errors.ADInvalidCredentials)
	}
	return cl, nil
}

func (c *conn) SetLastError(detail string) {
	c.lastError = detail
	c.logger.Debug("adjoin connection last error", "detail", detail)
}

// LastError returns the most recent diagnostic detail recorded by the
// engine via SetLastError.
func (c *conn) LastError() string { return c.lastError }

// ldapConnAdapter satisfies LDAPConn against the real *ldap.Conn.
type ldapConnAdapter struct{ *ldap.Conn }

func (c *conn) LDAP() LDAPConn { return ldapConnAdapter{c.ldapConn} }

// Close releases the underlying LDAP connection and admin Kerberos client.
// Not part of the Connection interface: the engine never closes a borrowed
// connection; this is for the owner of the conn package value.
func Close(c Connection) {
	if cc, ok := c.(*conn); ok {
		if cc.adminClient != nil {
			cc.adminClient.Destroy()
		}
		if cc.ldapConn != nil {
			cc.ldapConn.Close()
		}
	}
}

func getDefaultNamingContext(lc *ldap.Conn) (string, error) {
	req := ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		[]string{"defaultNamingContext"},
		nil,
	)
	sr, err := lc.Search(req)
	if err != nil {
		return "", err
	}
	if len(sr.Entries) == 0 {
		return "", fmt.Errorf("RootDSE returned no entries")
	}
	return sr.Entries[0].GetAttributeValue("defaultNamingContext"), nil
}

// discoverDC resolves a domain controller host:port via DNS SRV
// (_ldap._tcp.<domain>), falling back to the domain name itself on
// resolution failure so callers behind a split-horizon resolver can still
// connect to a DC that answers on its bare name.
func discoverDC(domain string) (string, error) {
	_, addrs, err := net.LookupSRV("ldap", "tcp", domain)
	if err != nil || len(addrs) == 0 {
		return domain, nil
	}
	target := strings.TrimSuffix(addrs[0].Target, ".")
	return target, nil
}

// discoverHostFQDN resolves this host's own fully-qualified DNS name: a
// forward/reverse lookup of the local hostname, falling back to the bare
// hostname if DNS has no PTR record for it yet.
func discoverHostFQDN() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", err
	}
	addrs, err := net.LookupHost(name)
	if err != nil || len(addrs) == 0 {
		return name, nil
	}
	ptr, err := net.LookupAddr(addrs[0])
	if err != nil || len(ptr) == 0 {
		return name, nil
	}
	return strings.TrimSuffix(ptr[0], "."), nil
}
