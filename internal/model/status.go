package model

import "time"

// ServerStatus is the outcome of validating one server in one run.
// Exactly one is created per processed server; it is never mutated after
// creation and is persisted as an append-only row.
type ServerStatus struct {
	// ServerUUID references Server.UUID.
	ServerUUID string `json:"server_uuid"`

	// Status is true when at least one liveness probe succeeded.
	Status bool `json:"status"`

	// Country is nil when geolocation failed or was not attempted.
	Country *Country `json:"country"`

	// InfoPageAvailable is true when the info page contained the marker.
	InfoPageAvailable bool `json:"info_page_available"`

	// CheckedAt is when the record was assembled. Backends that stamp rows
	// themselves ignore it.
	CheckedAt time.Time `json:"-"`
}

// NewServerStatus assembles a status record.
// The country is copied so later changes by the caller cannot leak in.
func NewServerStatus(serverUUID string, live bool, country *Country, infoPageAvailable bool) *ServerStatus {
	var c *Country
	if country != nil {
		copied := *country
		c = &copied
	}
	return &ServerStatus{
		ServerUUID:        serverUUID,
		Status:            live,
		Country:           c,
		InfoPageAvailable: infoPageAvailable,
		CheckedAt:         time.Now().UTC(),
	}
}

// CountryString returns the stored country value, or "" when absent.
func (s *ServerStatus) CountryString() string {
	if s.Country == nil {
		return ""
	}
	return s.Country.String()
}
