package main

import (
	"context"
	"fmt"
	"os"

	"github.com/secmon-lab/claimdesk/pkg/cli"
)

var version = "dev"

func main() {
	if err := cli.Run(context.Background(), os.Args, version); err != nil {
		fmt.Fprintf(os.Stderr, "claimdesk: %v\n", err)
		os.Exit(1)
	}
}
