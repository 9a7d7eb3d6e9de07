// stackctl deploys and inspects compose stacks against a local Docker
// daemon, sharing the stackd database. See the cli package for commands.
package main

import (
	"github.com/artpar/stackd/internal/shell/cli"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime
	cli.Execute()
}
