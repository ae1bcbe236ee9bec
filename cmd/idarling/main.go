// Command idarling inspects session identities, queries relays and runs
// session scenarios.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/majinxin2003/IDArling/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
