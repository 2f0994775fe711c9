// Command funimationlater browses the Funimation XML catalog from a terminal.
//
//	shows    List a catalog page (simulcasts, broadcast dubs, all shows)
//	search   Search shows by title
//	queue    Show or edit your queue (needs credentials)
//	history  Show your watch history (needs credentials)
//	show     Show details and season list for a show id
//	season   List the episodes of one season
//	stream   Resolve an episode to its HLS stream (sub or dub track)
//	related  Follow a stream back to its show
//	sync     Walk the whole catalog into a local sqlite snapshot
//	local    List or search that snapshot offline
//	check    Check that the API answers
//	login    Verify credentials
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/snapetech/funimationlater/internal/config"
)

func main() {
	_ = config.LoadEnvFile(".env")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) < 1 {
			return 2
		}
		return 0
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "Unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	g := addGlobalFlags(fs)
	action := cmd.flags(fs)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: funimationlater %s [flags] %s\n\n%s\n\nFlags:\n", cmd.name, cmd.args, cmd.summary)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := g.loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	a, err := newApp(cfg, stdout, stderr, g.noColor)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	a.serveMetrics(ctx)

	if err := action(ctx, a, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%v\n", err)
			fs.Usage()
			return 2
		}
		a.log.Error(cmd.name+" failed", "err", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: funimationlater <command> [flags] [args]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun funimationlater <command> --help for command flags.\n")
}
