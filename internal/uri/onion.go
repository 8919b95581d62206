package uri

import (
	"bytes"
	"encoding/base32"
	"strings"

	"golang.org/x/crypto/sha3"
)

// A v3 onion label is base32(pubkey[32] || checksum[2] || version[1]).
const (
	onionV3LabelLength = 56
	onionV3Version     = 0x03
)

// IsValidOnionV3 reports whether host is a v3 onion address whose checksum
// matches its public key. Registry entries sometimes carry truncated or
// mistyped onion hosts; the engine still probes them but logs a warning.
func IsValidOnionV3(host string) bool {
	label, ok := strings.CutSuffix(strings.ToLower(host), onionSuffix)
	if !ok || len(label) != onionV3LabelLength {
		return false
	}

	raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(label))
	if err != nil || len(raw) != 35 {
		return false
	}
	pubkey, checksum, version := raw[:32], raw[32:34], raw[34]
	if version != onionV3Version {
		return false
	}

	h := sha3.New256()
	h.Write([]byte(".onion checksum"))
	h.Write(pubkey)
	h.Write([]byte{version})
	return bytes.Equal(h.Sum(nil)[:2], checksum)
}
