// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/stratastor/rodent/pkg/errors"
)

// defaultEnctypes is the preference-ordered list used when neither the
// caller nor the account specifies one.
func defaultEnctypes() []int32 {
	return []int32{
		etypeID.AES256_CTS_HMAC_SHA1_96,
		etypeID.AES128_CTS_HMAC_SHA1_96,
		etypeID.DES3_CBC_SHA1,
		etypeID.RC4_HMAC,
		etypeID.DES_CBC_MD5,
		etypeID.DES_CBC_CRC,
	}
}

// msDSSupportedEncryptionTypes bit assignments (MS-ADTS 2.2.6, RFC 8409).
// Only the session-key bits are modeled; newer bits (FAST, compound
// identity, claims) are never set by this engine.
const (
	bitDESCBCCRC          = 1 << 0
	bitDESCBCMD5          = 1 << 1
	bitRC4HMAC            = 1 << 2
	bitAES128CTSHMACSHA1  = 1 << 3
	bitAES256CTSHMACSHA1  = 1 << 4
)

// encodeEnctypes formats an enctype list into the msDS-supportedEncryptionTypes
// bitmask string. DES3 has no dedicated AD bit, so it is silently dropped
// from the written bitmask (it can still be used for keytab entries).
func encodeEnctypes(enctypes []int32) (string, error) {
	var mask int64
	for _, et := range enctypes {
		switch et {
		case etypeID.DES_CBC_CRC:
			mask |= bitDESCBCCRC
		case etypeID.DES_CBC_MD5:
			mask |= bitDESCBCMD5
		case etypeID.RC4_HMAC:
			mask |= bitRC4HMAC
		case etypeID.AES128_CTS_HMAC_SHA1_96:
			mask |= bitAES128CTSHMACSHA1
		case etypeID.AES256_CTS_HMAC_SHA1_96:
			mask |= bitAES256CTSHMACSHA1
		case etypeID.DES3_CBC_SHA1:
			// no AD bit; carried in the keytab only.
		default:
			return "", errors.New(errors.ADEnctypesUnusable, "unsupported enctype").
				WithMetadata("enctype", strconv.Itoa(int(et)))
		}
	}
	if mask == 0 {
		return "", errors.New(errors.ADEnctypesUnusable, "no usable encryption types")
	}
	return strconv.FormatInt(mask, 10), nil
}

// parseEnctypes decodes msDS-supportedEncryptionTypes into an enctype list,
// in the same bit-to-enctype order as defaultEnctypes. Returns nil (no
// error) when value does not parse, treating bad input as absent.
func parseEnctypes(value string) []int32 {
	mask, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return nil
	}
	var out []int32
	if mask&bitAES256CTSHMACSHA1 != 0 {
		out = append(out, etypeID.AES256_CTS_HMAC_SHA1_96)
	}
	if mask&bitAES128CTSHMACSHA1 != 0 {
		out = append(out, etypeID.AES128_CTS_HMAC_SHA1_96)
	}
	if mask&bitRC4HMAC != 0 {
		out = append(out, etypeID.RC4_HMAC)
	}
	if mask&bitDESCBCMD5 != 0 {
		out = append(out, etypeID.DES_CBC_MD5)
	}
	if mask&bitDESCBCCRC != 0 {
		out = append(out, etypeID.DES_CBC_CRC)
	}
	return out
}

// enctypeName renders an enctype id for logging/errors.
func enctypeName(et int32) string {
	switch et {
	case etypeID.AES256_CTS_HMAC_SHA1_96:
		return "aes256-cts-hmac-sha1-96"
	case etypeID.AES128_CTS_HMAC_SHA1_96:
		return "aes128-cts-hmac-sha1-96"
	case etypeID.DES3_CBC_SHA1:
		return "des3-cbc-sha1"
	case etypeID.RC4_HMAC:
		return "arcfour-hmac"
	case etypeID.DES_CBC_MD5:
		return "des-cbc-md5"
	case etypeID.DES_CBC_CRC:
		return "des-cbc-crc"
	default:
		return fmt.Sprintf("etype-%d", et)
	}
}
