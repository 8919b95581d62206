// Package model defines the data structures shared by the validation engine.
//
// This package contains the following main types:
//   - Server: A registered SMP/XFTP server as stored in the registry
//   - ServerStatus: The single status record produced for a server per run
//   - Country: The geolocation outcome (ISO code or anonymized network)
//
// The database, pipeline and report packages all import these types. They
// serialize to the JSON shape used by the registry backend.
package model
