// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/iana/nametype"
	"github.com/jcmturner/gokrb5/v8/iana/patype"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

// kdcProber is the real asProber (salt.go): it builds a genuine AS-REQ for
// the probed principal, attaches a PA-ENC-TIMESTAMP pre-auth encrypted under
// the candidate key, and submits it to the realm's KDC over the wire.
// gokrb5's high-level client.Client only ever authenticates with a key it
// derives itself from a password under the *default* salt, and its
// ASExchange would then fail decrypting the AS-REP with that wrong key, so
// the probe marshals the AS-REQ and exchanges raw bytes with the KDC
// directly — acceptance of the pre-auth is all it needs to observe.
type kdcProber struct {
	krb5Conf *config.Config
	kdcHost  string // preferred KDC (the bound DC); config lookup is the fallback
}

func newKDCProber(conf *config.Config, kdcHost string) *kdcProber {
	return &kdcProber{krb5Conf: conf, kdcHost: kdcHost}
}

// Probe returns true when the KDC accepts the PA-ENC-TIMESTAMP built from
// key, meaning key's salt matches the one the realm actually used when it
// last set this principal's password. KDC_ERR_PREAUTH_FAILED means the salt
// was wrong; any other KRB-ERROR (clock skew, unknown principal) or
// transport failure is a real problem, not a salt miss.
func (p *kdcProber) Probe(components []string, realm string, kvno int, encType int32, key []byte) (bool, error) {
	cname := types.NewPrincipalName(nametype.KRB_NT_PRINCIPAL, strings.Join(components, "/"))

	asReq, err := messages.NewASReqForTGT(realm, p.krb5Conf, cname)
	if err != nil {
		return false, err
	}
	asReq.ReqBody.EType = []int32{encType}

	tsBytes, err := types.GetPAEncTSEncAsnMarshalled()
	if err != nil {
		return false, err
	}
	encKey := types.EncryptionKey{KeyType: encType, KeyValue: key}
	paEncTS, err := crypto.GetEncryptedData(tsBytes, encKey, keyusage.AS_REQ_PA_ENC_TIMESTAMP, kvno)
	if err != nil {
		return false, err
	}
	pb, err := paEncTS.Marshal()
	if err != nil {
		return false, err
	}
	asReq.PAData = append(asReq.PAData, types.PAData{
		PADataType:  patype.PA_ENC_TIMESTAMP,
		PADataValue: pb,
	})

	reqBytes, err := asReq.Marshal()
	if err != nil {
		return false, err
	}
	respBytes, err := p.sendToKDC(realm, reqBytes)
	if err != nil {
		return false, err
	}

	var asRep messages.ASRep
	if err := asRep.Unmarshal(respBytes); err == nil {
		return true, nil
	}
	var krbErr messages.KRBError
	if err := krbErr.Unmarshal(respBytes); err != nil {
		return false, fmt.Errorf("KDC response is neither AS-REP nor KRB-ERROR: %w", err)
	}
	if krbErr.ErrorCode == errorcode.KDC_ERR_PREAUTH_FAILED {
		return false, nil
	}
	return false, krbErr
}

// sendToKDC performs one request/response exchange with the realm's KDC over
// TCP with RFC 4120 §7.2.2 length framing.
func (p *kdcProber) sendToKDC(realm string, req []byte) ([]byte, error) {
	addr := p.kdcHost
	if addr == "" {
		_, kdcs, err := p.krb5Conf.GetKDCs(realm, true)
		if err != nil || len(kdcs) == 0 {
			return nil, fmt.Errorf("no KDC available for realm %s: %v", realm, err)
		}
		addr = kdcs[1]
	}
	if !strings.Contains(addr, ":") {
		addr += ":88"
	}

	c, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	c.SetDeadline(time.Now().Add(10 * time.Second))

	framed := make([]byte, 4+len(req))
	binary.BigEndian.PutUint32(framed, uint32(len(req)))
	copy(framed[4:], req)
	if _, err := c.Write(framed); err != nil {
		return nil, err
	}

	var respLen [4]byte
	if _, err := io.ReadFull(c, respLen[:]); err != nil {
		return nil, err
	}
	resp := make([]byte, binary.BigEndian.Uint32(respLen[:]))
	if _, err := io.ReadFull(c, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
