// Package uri parses and classifies registry server addresses.
//
// A server address has the form "smp://identity@host[:port][,host[:port]...]".
// Classification is pure and performs no I/O: it splits the host list, strips
// ports, decides whether the address points at the Tor network and whether it
// belongs to the operator's own (official) infrastructure.
package uri
