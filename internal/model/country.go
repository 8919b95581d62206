package model

import (
	"errors"
	"strings"
)

// AnonymizedCode is the wire value stored for servers reachable only
// through the Tor network.
const AnonymizedCode = "TOR"

// ErrEmptyCountry is returned when decoding an empty country value.
var ErrEmptyCountry = errors.New("country code cannot be empty")

// Country is the outcome of a successful geolocation.
// It is either an ISO 3166 country code or the anonymized network marker.
// The absence of a country is expressed by a nil *Country, never by a
// zero Country.
type Country struct {
	code       string
	anonymized bool
}

// ISOCountry returns a Country for the given ISO code.
// The code is upper-cased.
func ISOCountry(code string) Country {
	return Country{code: strings.ToUpper(strings.TrimSpace(code))}
}

// AnonymizedCountry returns the Country used for onion addresses.
func AnonymizedCountry() Country {
	return Country{anonymized: true}
}

// IsAnonymized reports whether the country is the anonymized network marker.
func (c Country) IsAnonymized() bool {
	return c.anonymized
}

// Code returns the ISO code, or an empty string for anonymized countries.
func (c Country) Code() string {
	if c.anonymized {
		return ""
	}
	return c.code
}

// String returns the stored representation: the ISO code or "TOR".
func (c Country) String() string {
	if c.anonymized {
		return AnonymizedCode
	}
	return c.code
}

// MarshalText implements encoding.TextMarshaler.
func (c Country) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Country) UnmarshalText(text []byte) error {
	country, err := ParseCountry(string(text))
	if err != nil {
		return err
	}
	*c = country
	return nil
}

// ParseCountry converts a stored value back into a Country.
func ParseCountry(s string) (Country, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Country{}, ErrEmptyCountry
	}
	if strings.EqualFold(s, AnonymizedCode) {
		return AnonymizedCountry(), nil
	}
	return ISOCountry(s), nil
}
