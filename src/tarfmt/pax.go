package tarfmt

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// PaxPath is the only PAX keyword this codec acts on. Other keys round-trip
// as opaque strings.
const PaxPath = "path"

// PaxHeaderName is the advisory name stamped into extended headers.
const PaxHeaderName = "./PaxHeader"

// paxLine renders one "<size> <key>=<value>\n" record. The size counts its
// own digits, so it is computed by iterating until the digit count settles.
func paxLine(key, value string) string {
	base := len(key) + len(value) + 3
	size := base + len(strconv.Itoa(base))
	for {
		n := base + len(strconv.Itoa(size))
		if n == size {
			break
		}
		size = n
	}
	return strconv.Itoa(size) + " " + key + "=" + value + "\n"
}

// EncodePax renders records as a PAX extended-header payload, keys in
// lexical order.
func EncodePax(records map[string]string) []byte {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(paxLine(k, records[k]))
	}
	return buf.Bytes()
}

// DecodePax parses a PAX extended-header payload into its records.
func DecodePax(payload []byte) (map[string]string, error) {
	records := make(map[string]string)
	for len(payload) > 0 {
		sp := bytes.IndexByte(payload, ' ')
		if sp <= 0 {
			return nil, errors.Wrap(ErrInvalidHeader, "pax record without size")
		}
		size, err := strconv.Atoi(string(payload[:sp]))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidHeader, "malformed pax size %q", payload[:sp])
		}
		if size <= sp+1 || size > len(payload) {
			return nil, errors.Wrapf(ErrInvalidHeader, "pax size %d out of bounds", size)
		}
		rec := payload[sp+1 : size]
		if rec[len(rec)-1] != '\n' {
			return nil, errors.Wrap(ErrInvalidHeader, "pax record not newline-terminated")
		}
		rec = rec[:len(rec)-1]
		eq := bytes.IndexByte(rec, '=')
		if eq < 0 {
			return nil, errors.Wrapf(ErrInvalidHeader, "pax record %q without separator", rec)
		}
		records[string(rec[:eq])] = string(rec[eq+1:])
		payload = payload[size:]
	}
	return records, nil
}
