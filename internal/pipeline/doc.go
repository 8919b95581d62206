// Package pipeline validates the server registry.
//
// Every server goes through the same ordered steps:
//
//	official -> classify -> liveness -> geolocate -> info_page -> persist
//
// A Step works on a Check, the per-server state, and may end the pipeline
// early by returning ErrStop (official servers are deleted instead of
// tested). Engine fetches the server set, shuffles it and runs the pipeline
// for one server at a time. A failing server is logged and skipped; only a
// failed fetch aborts the run.
package pipeline
