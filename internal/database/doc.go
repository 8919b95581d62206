// Package database holds the server registry and the status history.
//
// Two backends implement Store. PostgREST talks to a hosted registry (for
// example a Supabase project) over its REST API. SQLite keeps a local
// registry in a single file and additionally supports adding servers and
// reading back the status history of a server.
package database
