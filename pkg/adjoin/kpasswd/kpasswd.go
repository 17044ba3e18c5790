// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package kpasswd implements the Kerberos password-change/set protocol,
// RFC 3244, over the gokrb5 primitives (messages, crypto, types). gokrb5
// itself ships no kpasswd client and no KRB-PRIV message type, so both are
// built here on the library's ASN.1 fork and application-tag constants,
// carrying Active Directory's extended result-string convention.
package kpasswd

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/asn1tools"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana"
	"github.com/jcmturner/gokrb5/v8/iana/asnAppTag"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/iana/msgtype"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

// Port is the well-known kpasswd service port (RFC 3244 §2).
const Port = 464

// versionChangePassword and versionSetPassword are the 2-byte version
// fields RFC 3244 §2 defines to discriminate a self-service password
// change (kpasswd) from an administrator set-password.
const (
	versionChangePassword uint16 = 0x0001
	versionSetPassword    uint16 = 0xff80
)

// Result is the decoded outcome of a kpasswd exchange: the protocol result
// code, its short result string, and AD's optional extended message.
type Result struct {
	Code       int
	CodeString string
	Message    string
}

// Success reports whether the KDC accepted the password change.
func (r Result) Success() bool { return r.Code == 0 }

// changePasswdData is RFC 3244's ChangePasswdData structure, used for the
// set-password form where an admin changes a *different* principal's
// password (targname/targrealm identify that principal).
type changePasswdData struct {
	NewPasswd []byte              `asn1:"explicit,tag:0"`
	TargName  types.PrincipalName `asn1:"optional,explicit,tag:1"`
	TargRealm string              `asn1:"optional,generalstring,explicit,tag:2"`
}

// krbPriv is RFC 4120 §5.7.1's KRB-PRIV message ([APPLICATION 21]); tag 2
// is unused by the protocol. gokrb5 does not implement this message type,
// so it is declared here against the same gofork ASN.1 encoder and
// application-tag table the library's own messages use.
type krbPriv struct {
	PVNO    int                 `asn1:"explicit,tag:0"`
	MsgType int                 `asn1:"explicit,tag:1"`
	EncPart types.EncryptedData `asn1:"explicit,tag:3"`
}

func (p *krbPriv) marshal() ([]byte, error) {
	b, err := asn1.Marshal(*p)
	if err != nil {
		return nil, err
	}
	return asn1tools.AddASNAppTag(b, asnAppTag.KRBPriv), nil
}

func (p *krbPriv) unmarshal(b []byte) error {
	_, err := asn1.UnmarshalWithParams(b, p, fmt.Sprintf("application,explicit,tag:%d", asnAppTag.KRBPriv))
	return err
}

// encKrbPrivPart is the encrypted payload of a KRB-PRIV
// ([APPLICATION 28] EncKrbPrivPart, RFC 4120 §5.7.1).
type encKrbPrivPart struct {
	UserData       []byte            `asn1:"explicit,tag:0"`
	Timestamp      time.Time         `asn1:"generalized,optional,explicit,tag:1"`
	Usec           int               `asn1:"optional,explicit,tag:2"`
	SequenceNumber int64             `asn1:"optional,explicit,tag:3"`
	SAddress       types.HostAddress `asn1:"optional,explicit,tag:4"`
	RAddress       types.HostAddress `asn1:"optional,explicit,tag:5"`
}

func (p *encKrbPrivPart) marshal() ([]byte, error) {
	b, err := asn1.Marshal(*p)
	if err != nil {
		return nil, err
	}
	return asn1tools.AddASNAppTag(b, asnAppTag.EncKrbPrivPart), nil
}

func (p *encKrbPrivPart) unmarshal(b []byte) error {
	_, err := asn1.UnmarshalWithParams(b, p, fmt.Sprintf("application,explicit,tag:%d", asnAppTag.EncKrbPrivPart))
	return err
}

// SetPassword is the administrative strategy: the admin's TGT-derived
// client authenticates to kadmin/changepw and asks it to set target's
// password directly, no knowledge of target's old password required.
func SetPassword(adminClient *client.Client, target types.PrincipalName, realm, newPassword, kdcHost string) (Result, error) {
	data := changePasswdData{
		NewPasswd: []byte(newPassword),
		TargName:  target,
		TargRealm: realm,
	}
	payload, err := asn1.Marshal(data)
	if err != nil {
		return Result{}, err
	}
	return exchange(adminClient, realm, kdcHost, versionSetPassword, payload)
}

// ChangePassword is the self-service strategy: the computer's own
// credentials authenticate against kadmin/changepw and the new password is
// sent as a bare octet string, per RFC 3244 §2's simple case (no
// ChangePasswdData wrapper when changing one's own password).
func ChangePassword(computerClient *client.Client, realm, newPassword, kdcHost string) (Result, error) {
	return exchange(computerClient, realm, kdcHost, versionChangePassword, []byte(newPassword))
}

// exchange implements the RFC 3244 §2 wire exchange common to both
// strategies: acquire a service ticket for kadmin/changepw, wrap payload in
// a KRB-PRIV under the ticket's session key, frame it with the
// length/version/ap-req-length header, and run one request/response against
// the KDC's kpasswd port over TCP.
func exchange(cl *client.Client, realm, kdcHost string, version uint16, payload []byte) (Result, error) {
	tkt, sessionKey, err := cl.GetServiceTicket("kadmin/changepw")
	if err != nil {
		return Result{}, fmt.Errorf("acquiring kadmin/changepw ticket: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", kdcHost, Port)
	tcpConn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return Result{}, err
	}
	defer tcpConn.Close()
	tcpConn.SetDeadline(time.Now().Add(10 * time.Second))

	msg, err := buildRequest(cl, tkt, sessionKey, realm, version, payload, tcpConn.LocalAddr())
	if err != nil {
		return Result{}, err
	}
	resp, err := roundTrip(tcpConn, msg)
	if err != nil {
		return Result{}, err
	}
	return parseResponse(resp, sessionKey)
}

func buildRequest(cl *client.Client, tkt messages.Ticket, sessionKey types.EncryptionKey, realm string, version uint16, payload []byte, local net.Addr) ([]byte, error) {
	auth, err := types.NewAuthenticator(realm, cl.Credentials.CName())
	if err != nil {
		return nil, err
	}
	apReq, err := messages.NewAPReq(tkt, sessionKey, auth)
	if err != nil {
		return nil, err
	}
	apReqBytes, err := apReq.Marshal()
	if err != nil {
		return nil, err
	}

	sAddr, err := types.GetHostAddress(local.String())
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	privPart := encKrbPrivPart{
		UserData:       payload,
		Timestamp:      now,
		Usec:           int(now.UnixNano()/1000) % 1000000,
		SequenceNumber: auth.SeqNumber,
		SAddress:       sAddr,
	}
	privPartBytes, err := privPart.marshal()
	if err != nil {
		return nil, err
	}
	encPart, err := crypto.GetEncryptedData(privPartBytes, sessionKey, keyusage.KRB_PRIV_ENCPART, 0)
	if err != nil {
		return nil, err
	}
	priv := krbPriv{
		PVNO:    iana.PVNO,
		MsgType: msgtype.KRB_PRIV,
		EncPart: encPart,
	}
	privBytes, err := priv.marshal()
	if err != nil {
		return nil, err
	}

	total := 6 + len(apReqBytes) + len(privBytes)
	msg := make([]byte, 0, total)
	msg = binary.BigEndian.AppendUint16(msg, uint16(total))
	msg = binary.BigEndian.AppendUint16(msg, version)
	msg = binary.BigEndian.AppendUint16(msg, uint16(len(apReqBytes)))
	msg = append(msg, apReqBytes...)
	msg = append(msg, privBytes...)
	return msg, nil
}

// roundTrip sends one length-prefixed kpasswd request and reads the
// length-prefixed reply (RFC 3244 §2 framing over TCP).
func roundTrip(conn net.Conn, msg []byte) ([]byte, error) {
	framed := make([]byte, 4+len(msg))
	binary.BigEndian.PutUint32(framed, uint32(len(msg)))
	copy(framed[4:], msg)
	if _, err := conn.Write(framed); err != nil {
		return nil, err
	}

	var respLen [4]byte
	if _, err := io.ReadFull(conn, respLen[:]); err != nil {
		return nil, err
	}
	resp := make([]byte, binary.BigEndian.Uint32(respLen[:]))
	if _, err := io.ReadFull(conn, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// parseResponse decodes an RFC 3244 §2 reply: length/version/ap-rep-length
// header, then either a KRB-ERROR (the e-data carries the result
// code/string) or an AP-REP followed by a KRB-PRIV wrapping a 2-byte result
// code and the result string. Some AD KDCs answer a malformed request with
// a bare KRB-ERROR and no kpasswd header at all; that shape is recognized
// by its ASN.1 application tag.
func parseResponse(resp []byte, sessionKey types.EncryptionKey) (Result, error) {
	if len(resp) > 0 && resp[0] == 0x7e { // [APPLICATION 30] KRB-ERROR
		return resultFromKRBError(resp)
	}
	if len(resp) < 6 {
		return Result{}, fmt.Errorf("kpasswd response too short")
	}
	apRepLen := binary.BigEndian.Uint16(resp[4:6])
	offset := 6 + int(apRepLen)
	if offset > len(resp) {
		return Result{}, fmt.Errorf("kpasswd response malformed ap-rep length")
	}
	body := resp[offset:]

	if apRepLen == 0 {
		return resultFromKRBError(body)
	}

	var priv krbPriv
	if err := priv.unmarshal(body); err != nil {
		return Result{}, fmt.Errorf("decoding kpasswd KRB-PRIV: %w", err)
	}
	plain, err := crypto.DecryptEncPart(priv.EncPart, sessionKey, keyusage.KRB_PRIV_ENCPART)
	if err != nil {
		return Result{}, fmt.Errorf("decrypting kpasswd reply: %w", err)
	}
	var privPart encKrbPrivPart
	if err := privPart.unmarshal(plain); err != nil {
		return Result{}, fmt.Errorf("decoding kpasswd reply body: %w", err)
	}
	code, str, msg := decodeResultData(privPart.UserData)
	return Result{Code: code, CodeString: str, Message: msg}, nil
}

func resultFromKRBError(body []byte) (Result, error) {
	var krbErr messages.KRBError
	if err := krbErr.Unmarshal(body); err != nil {
		return Result{}, fmt.Errorf("decoding kpasswd KRB-ERROR: %w", err)
	}
	code, str, msg := decodeResultData(krbErr.EData)
	if code < 0 {
		// No kpasswd result data in e-data; fall back to the KRB error
		// itself so the caller still gets a code and text.
		return Result{Code: int(krbErr.ErrorCode), CodeString: krbErr.EText}, nil
	}
	return Result{Code: code, CodeString: str, Message: msg}, nil
}

// decodeResultData splits kpasswd result data into the 2-byte result code,
// the short result string, and AD's optional extended message. AD appends
// the extended text after the standard string, NUL-separated; plain MIT
// KDCs send only the string.
func decodeResultData(data []byte) (code int, codeString, message string) {
	if len(data) < 2 {
		return -1, "", ""
	}
	code = int(binary.BigEndian.Uint16(data[:2]))
	rest := string(data[2:])
	for i := 0; i < len(rest); i++ {
		if rest[i] == 0 {
			return code, rest[:i], trimNULs(rest[i+1:])
		}
	}
	return code, rest, ""
}

func trimNULs(s string) string {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	for len(s) > 0 && s[0] == 0 {
		s = s[1:]
	}
	return s
}
