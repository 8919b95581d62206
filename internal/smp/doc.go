// Package smp implements the liveness probe for SMP and XFTP servers.
//
// The probe does not speak SMP itself. It asks a validation relay (a chat
// client exposing a websocket command API) to run "/_server test" against the
// target address and waits for the reply carrying the same correlation id.
//
// Each call to Tester.Test owns exactly one websocket connection, which is
// closed on every return path. Tester.Probe repeats Test with a fresh
// connection per attempt until one succeeds or the attempt budget runs out.
package smp
