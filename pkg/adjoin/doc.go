// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package adjoin implements the Active Directory enrollment engine: it
// derives the computer account's identity, locates or creates the account
// object in the directory, rotates its password through kpasswd, reconciles
// its attributes, and rewrites a local keytab with entries that authenticate
// against the realm.
//
// The engine is single-threaded and synchronous. It consumes a Connection
// (pkg/adjoin/conn) for directory and Kerberos access and never owns or
// closes it; it exclusively owns the Context it builds and the keytab handle
// that Context opens.
package adjoin
