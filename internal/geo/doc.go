// Package geo maps server hosts to countries using a local MaxMind database.
//
// Onion hosts never reach the database or DNS; they resolve to the
// anonymized country. Any other host is used as-is when it is an IP literal
// and resolved through DNS otherwise, taking the first address returned.
package geo
