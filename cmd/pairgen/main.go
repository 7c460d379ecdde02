// pairgen - Device Pairing & Lockdown Session Manager
//
// pairgen exports, tests and regenerates the pairing records a host holds for
// attached iOS devices, and turns on WiFi sync. Run without arguments for the
// interactive menu, or use the subcommands for scripting.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/pairgen/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration and dotenv paths.
const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvFile    = ".env"
	configEnvVar      = "PAIRGEN_CONFIG"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(execute(ctx, defaultEnv(os.Stdout, os.Stderr), os.Args[1:]))
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, env *environment, args []string) int {
	root := newRootCmd(env)
	root.SetArgs(args)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(env.stderr, err)
		return 1
	}
	return 0
}

// printError writes err and, for failures the operator can act on, a hint.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(w, hint)
	}
}
