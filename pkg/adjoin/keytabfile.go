// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package adjoin

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/stratastor/rodent/pkg/errors"
)

// ktFile is a minimal reader/writer for the MIT keytab binary format
// (version 0x0502). The off-the-shelf github.com/jcmturner/gokrb5/v8/keytab
// package is used elsewhere in this engine (conn.go loads an existing
// computer keytab to authenticate with), but its only entry-writing method,
// AddEntry, always re-derives the key from a password using the *default*
// (canonical) salt — it has no parameter for a caller-supplied salt. Stage
// 4.6's whole point is writing entries under an empirically *discovered*
// salt that may not be canonical, so this engine derives keys itself
// (salt.go) and serializes them with this hand-rolled writer instead.
//
// Wire format (big-endian throughout):
//
//	file   := version(2) record*
//	version:= 0x05 0x02
//	record := length(int32) body
//	          length < 0 means an empty/deleted record of abs(length) bytes
//	body   := numComponents(int16) realm(countedString)
//	          component(countedString){numComponents}
//	          nameType(int32) timestamp(int32) vno8(uint8)
//	          keyEnctype(int16) keyLength(int16) keyBytes
//	          [vno32(uint32)]   -- optional; when non-zero it overrides vno8
//	                               (this writer always emits it)
//	countedString := length(int16) bytes
type ktFile struct {
	entries []ktEntry
}

type ktEntry struct {
	Realm      string
	Components []string
	NameType   int32
	Timestamp  time.Time
	KVNO       int
	EncType    int32
	Key        []byte
}

func (e ktEntry) matchesPrincipal(realm string, components []string) bool {
	if !strings.EqualFold(e.Realm, realm) || len(e.Components) != len(components) {
		return false
	}
	for i := range components {
		if !strings.EqualFold(e.Components[i], components[i]) {
			return false
		}
	}
	return true
}

// loadKeytabFile opens an existing keytab, or returns an empty one if the
// file does not exist yet.
func loadKeytabFile(path string) (*ktFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ktFile{}, nil
		}
		return nil, errors.Wrap(err, errors.ADKeytabOpenFailed).WithMetadata("path", path)
	}
	kt, err := parseKeytabFile(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ADKeytabOpenFailed).WithMetadata("path", path)
	}
	return kt, nil
}

func parseKeytabFile(data []byte) (*ktFile, error) {
	kt := &ktFile{}
	if len(data) == 0 {
		return kt, nil
	}
	r := bytes.NewReader(data)
	var version [2]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return nil, fmt.Errorf("short keytab header: %w", err)
	}
	if version[0] != 0x05 || version[1] != 0x02 {
		return nil, fmt.Errorf("unsupported keytab version %x%x", version[0], version[1])
	}
	for {
		var length int32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if length < 0 {
			if _, err := r.Seek(int64(-length), io.SeekCurrent); err != nil {
				return nil, err
			}
			continue
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
		entry, err := parseKeytabEntry(body)
		if err != nil {
			return nil, err
		}
		kt.entries = append(kt.entries, entry)
	}
	return kt, nil
}

func parseKeytabEntry(body []byte) (ktEntry, error) {
	r := bytes.NewReader(body)
	var numComponents int16
	if err := binary.Read(r, binary.BigEndian, &numComponents); err != nil {
		return ktEntry{}, err
	}
	realm, err := readCountedString(r)
	if err != nil {
		return ktEntry{}, err
	}
	components := make([]string, numComponents)
	for i := range components {
		components[i], err = readCountedString(r)
		if err != nil {
			return ktEntry{}, err
		}
	}
	var nameType, ts int32
	if err := binary.Read(r, binary.BigEndian, &nameType); err != nil {
		return ktEntry{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &ts); err != nil {
		return ktEntry{}, err
	}
	var vno8 uint8
	if err := binary.Read(r, binary.BigEndian, &vno8); err != nil {
		return ktEntry{}, err
	}
	var encType, keyLen int16
	if err := binary.Read(r, binary.BigEndian, &encType); err != nil {
		return ktEntry{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
		return ktEntry{}, err
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return ktEntry{}, err
	}
	kvno := int(vno8)
	var vno32 uint32
	if err := binary.Read(r, binary.BigEndian, &vno32); err == nil && vno32 != 0 {
		kvno = int(vno32)
	}
	return ktEntry{
		Realm:      realm,
		Components: components,
		NameType:   nameType,
		Timestamp:  time.Unix(int64(ts), 0),
		KVNO:       kvno,
		EncType:    int32(encType),
		Key:        key,
	}, nil
}

func readCountedString(r *bytes.Reader) (string, error) {
	var n int16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// addEntry appends a new (principal, kvno, enctype, key) tuple, replacing
// any existing entry that exactly matches principal+kvno+enctype.
func (kt *ktFile) addEntry(realm string, components []string, nameType int32, kvno int, encType int32, key []byte) {
	for i, e := range kt.entries {
		if e.matchesPrincipal(realm, components) && e.KVNO == kvno && e.EncType == encType {
			kt.entries[i].Key = key
			kt.entries[i].Timestamp = time.Now()
			return
		}
	}
	kt.entries = append(kt.entries, ktEntry{
		Realm:      realm,
		Components: components,
		NameType:   nameType,
		Timestamp:  time.Now(),
		KVNO:       kvno,
		EncType:    encType,
		Key:        key,
	})
}

// clearStale removes every entry matching the principal whose kvno is not
// exactly newKVNO-1. The one-behind entries stay so sessions authenticated
// with the previous key keep validating for their ticket lifetime. Returns
// how many entries were removed.
func (kt *ktFile) clearStale(realm string, components []string, newKVNO int) int {
	kept := kt.entries[:0]
	removed := 0
	for _, e := range kt.entries {
		if e.matchesPrincipal(realm, components) && e.KVNO != newKVNO-1 {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	kt.entries = kept
	return removed
}

func (kt *ktFile) marshal() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x05, 0x02})
	for _, e := range kt.entries {
		var body bytes.Buffer
		binary.Write(&body, binary.BigEndian, int16(len(e.Components)))
		writeCountedString(&body, e.Realm)
		for _, c := range e.Components {
			writeCountedString(&body, c)
		}
		binary.Write(&body, binary.BigEndian, e.NameType)
		binary.Write(&body, binary.BigEndian, int32(e.Timestamp.Unix()))
		vno8 := e.KVNO
		if vno8 > 255 {
			vno8 = 255
		}
		binary.Write(&body, binary.BigEndian, uint8(vno8))
		binary.Write(&body, binary.BigEndian, int16(e.EncType))
		binary.Write(&body, binary.BigEndian, int16(len(e.Key)))
		body.Write(e.Key)
		binary.Write(&body, binary.BigEndian, uint32(e.KVNO))

		binary.Write(&buf, binary.BigEndian, int32(body.Len()))
		buf.Write(body.Bytes())
	}
	return buf.Bytes()
}

func writeCountedString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, int16(len(s)))
	buf.WriteString(s)
}

// save writes the keytab to path atomically (write-then-rename), matching
// the no-torn-writes expectation for a file other processes may be reading
// mid-join.
func (kt *ktFile) save(path string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, kt.marshal(), 0600); err != nil {
		return errors.Wrap(err, errors.ADKeytabWriteFailed).WithMetadata("path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, errors.ADKeytabWriteFailed).WithMetadata("path", path)
	}
	return nil
}
