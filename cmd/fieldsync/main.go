// Command fieldsync queues SafeWork Pro mutations while offline and syncs
// them once the device is back online.
package main

import (
	"fmt"
	"os"

	"github.com/safeworkpro/fieldsync/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
