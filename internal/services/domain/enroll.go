// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"fmt"
	"strings"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	rodentCfg "github.com/stratastor/rodent/config"
	"github.com/stratastor/rodent/pkg/adjoin"
	"github.com/stratastor/rodent/pkg/adjoin/conn"
)

// EnrollOptions carries the pieces of DomainConfig and the global AD.Join
// configuration the enrollment engine (pkg/adjoin) needs: a superset of
// DomainConfig because the engine also wants a keytab path, an explicit
// enctype list, and the reset-password flag net ads join never exposed.
type EnrollOptions struct {
	Realm         string
	Server        string // explicit DC; empty triggers DNS SRV discovery
	AdminUser     string
	AdminPassword string
	ComputerName  string // overrides the host's own name; used by the HTTP enroll endpoint
	ComputerOU    string
	KeytabPath    string
	Enctypes      []string
	ResetPassword bool
}

// EnrollOptionsFromGlobal builds EnrollOptions from the global config's
// AD.Join section, layered over the legacy DomainConfig fields so CLI flags
// that only set DomainConfig still work.
func EnrollOptionsFromGlobal(cfg *DomainConfig) EnrollOptions {
	global := rodentCfg.GetConfig()
	opts := EnrollOptions{
		Realm:         cfg.Realm,
		AdminUser:     cfg.AdminUser,
		AdminPassword: cfg.AdminPassword,
		ComputerOU:    global.AD.Join.ComputerOU,
		KeytabPath:    global.AD.Join.KeytabPath,
		Enctypes:      global.AD.Join.Enctypes,
		ResetPassword: global.AD.Join.ResetPassword,
	}
	if opts.ComputerOU == "" {
		opts.ComputerOU = global.AD.ComputerOU
	}
	if len(cfg.DCServers) > 0 {
		opts.Server = cfg.DCServers[0]
	}
	return opts
}

// Enroll runs the full join pipeline (Prepare + Join) of the enrollment
// engine in pkg/adjoin, replacing the earlier net ads join shell-out.
// Kerberos/NSS/DNS host configuration
// (configureKerberos/configureNSS/configureDNS) still runs separately in
// Join, ahead of this call, since winbind's NSS integration is an OS-level
// concern the enrollment protocol itself doesn't touch.
func (c *Client) Enroll(opts EnrollOptions) error {
	connection, flags, err := c.connectForEnroll(opts)
	if err != nil {
		return err
	}
	defer conn.Close(connection)

	ctx := adjoin.New(connection)
	defer ctx.Close()
	c.applyEnrollOptions(ctx, opts)

	if err := ctx.Prepare(flags); err != nil {
		return fmt.Errorf("preparing domain join: %w", err)
	}
	if err := ctx.Join(flags, c.logger); err != nil {
		return fmt.Errorf("joining domain: %w", err)
	}
	c.logger.Info("Enrollment engine completed domain join", "computer_dn", ctx.ComputerDN)
	return nil
}

// Rejoin re-runs the pipeline against an existing computer account,
// forcing overwrite and a fresh password/keytab.
func (c *Client) Rejoin(opts EnrollOptions) error {
	opts.ResetPassword = true
	connection, flags, err := c.connectForEnroll(opts)
	if err != nil {
		return err
	}
	defer conn.Close(connection)

	ctx := adjoin.New(connection)
	defer ctx.Close()
	c.applyEnrollOptions(ctx, opts)
	ctx.WithResetPassword(true)

	if err := ctx.Prepare(flags); err != nil {
		return fmt.Errorf("preparing domain rejoin: %w", err)
	}
	if err := ctx.Rejoin(flags, c.logger); err != nil {
		return fmt.Errorf("rejoining domain: %w", err)
	}
	c.logger.Info("Enrollment engine completed domain rejoin", "computer_dn", ctx.ComputerDN)
	return nil
}

// SyncKeytab refreshes the local keytab and the directory's kvno/enctypes
// without touching the account's password.
func (c *Client) SyncKeytab(opts EnrollOptions) error {
	connection, flags, err := c.connectForEnroll(opts)
	if err != nil {
		return err
	}
	defer conn.Close(connection)

	ctx := adjoin.New(connection)
	defer ctx.Close()
	c.applyEnrollOptions(ctx, opts)

	if err := ctx.Prepare(flags); err != nil {
		return fmt.Errorf("resolving computer identity: %w", err)
	}
	if err := ctx.SyncKeytabOnly(c.logger); err != nil {
		return fmt.Errorf("syncing keytab: %w", err)
	}
	c.logger.Info("Enrollment engine synced keytab", "keytab", ctx.KeytabName)
	return nil
}

func (c *Client) connectForEnroll(opts EnrollOptions) (conn.Connection, adjoin.Flags, error) {
	if opts.Realm == "" {
		return nil, 0, fmt.Errorf("realm is required")
	}
	connOpts := conn.Options{
		Realm:    opts.Realm,
		Server:   opts.Server,
		Username: opts.AdminUser,
		Password: opts.AdminPassword,
	}
	connection, err := conn.Discover(c.logger, connOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("connecting to domain controller: %w", err)
	}

	var flags adjoin.Flags
	if opts.KeytabPath == "" {
		flags |= adjoin.NoKeytab
	}
	return connection, flags, nil
}

func (c *Client) applyEnrollOptions(ctx *adjoin.Context, opts EnrollOptions) {
	if opts.ComputerName != "" {
		ctx.WithComputerName(opts.ComputerName)
	}
	if opts.ComputerOU != "" {
		ctx.WithPreferredOU(opts.ComputerOU)
	}
	if opts.KeytabPath != "" {
		ctx.WithKeytabName(opts.KeytabPath)
	}
	if len(opts.Enctypes) > 0 {
		ctx.WithEnctypes(parseEnctypeNames(opts.Enctypes))
	}
	if opts.ResetPassword {
		ctx.WithResetPassword(true)
	}
}

// parseEnctypeNames maps the config's human-readable enctype names onto
// the iana etype IDs the engine works with; unrecognized names are
// skipped rather than failing the join outright.
func parseEnctypeNames(names []string) []int32 {
	lookup := map[string]int32{
		"aes256-cts-hmac-sha1-96": etypeID.AES256_CTS_HMAC_SHA1_96,
		"aes128-cts-hmac-sha1-96": etypeID.AES128_CTS_HMAC_SHA1_96,
		"des3-cbc-sha1":           etypeID.DES3_CBC_SHA1,
		"arcfour-hmac":            etypeID.RC4_HMAC,
		"des-cbc-md5":             etypeID.DES_CBC_MD5,
		"des-cbc-crc":             etypeID.DES_CBC_CRC,
	}
	out := make([]int32, 0, len(names))
	for _, n := range names {
		if id, ok := lookup[strings.ToLower(strings.TrimSpace(n))]; ok {
			out = append(out, id)
		}
	}
	return out
}
