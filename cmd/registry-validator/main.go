// Command registry-validator checks every SimpleX SMP and XFTP server listed
// in a registry: it tests liveness through a SimpleX client, geolocates the
// server, looks for its info page and appends one status row per server.
//
//	registry-validator init
//	registry-validator server add --uri smp://KEY@smp.example.com
//	registry-validator validate --geoip-db GeoLite2-Country.mmdb --dry-run
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "registry-validator:", err)
		os.Exit(1)
	}
}
