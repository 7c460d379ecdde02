package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/pairgen/internal/api"
	"github.com/nerrad567/pairgen/internal/audit"
	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/orchestrator"
)

// Errors reported by the command line itself.
var (
	errMultipleDevices = errors.New("more than one device is connected; choose one with --device")
	errHistoryDisabled = errors.New("operation history is not enabled (database.enabled)")
	errInvalidResult   = errors.New("--result must be success or failure")
)

// hintFor returns follow-up advice for errors the operator can fix.
func hintFor(err error) string {
	switch orchestrator.ErrorKind(err) {
	case "EnumerationUnavailable":
		return "Make sure that you have usbmuxd running, and that you can connect to it"
	case "NoDevicesFound":
		return "Connect a device over USB, unlock it and trust this computer"
	case "DestinationNotSelected":
		return "No path specified"
	case "WrongTransportForPairing":
		return "Device must be plugged into USB"
	default:
		return ""
	}
}

// cli carries the flags shared by every command.
type cli struct {
	env        *environment
	configPath string
	envFile    string
}

// open builds an app for cmd. source tags recorded events.
func (c *cli) open(cmd *cobra.Command, source string) (*app, error) {
	explicit := cmd.Flags().Changed("config") || os.Getenv(configEnvVar) != ""
	return newApp(cmd.Context(), c.env, appOptions{
		configPath:     c.configPath,
		configExplicit: explicit,
		envFile:        c.envFile,
		source:         source,
	})
}

func newRootCmd(env *environment) *cobra.Command {
	c := &cli{env: env}

	root := &cobra.Command{
		Use:   "pairgen",
		Short: "Export, test and regenerate iOS device pairing files",
		Long: `pairgen manages the pairing records this computer holds for iOS devices.

Run without a command for the interactive menu. The subcommands perform the
same operations non-interactively.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runInteractive(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", configPathFromEnv(), "path to configuration file (env "+configEnvVar+")")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", defaultEnvFile, "path to dotenv file")

	root.AddCommand(
		c.newListCmd(),
		c.newExportCmd(),
		c.newWiFiCmd(),
		c.newRegenerateCmd(),
		c.newHistoryCmd(),
		c.newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// runInteractive shows the device menu, then the operation menu, and runs
// the chosen operation.
func (c *cli) runInteractive(cmd *cobra.Command) error {
	a, err := c.open(cmd, "cli")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	term := c.env.newTerminal(a.cfg, out)

	devices, err := a.orch.Devices(ctx)
	if err != nil {
		return err
	}

	var d device.Descriptor
	if len(devices) == 1 {
		d = devices[0]
		fmt.Fprintf(out, "Using %s\n", d.Label())
	} else {
		d, err = term.ChooseDevice(ctx, devices)
		if err != nil {
			return err
		}
	}

	op, err := term.ChooseOperation(ctx)
	if err != nil {
		return err
	}

	res, err := a.orch.Run(ctx, op, d, term)
	if err != nil {
		return err
	}
	printResult(out, res)
	return nil
}

func (c *cli) newListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connected devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			devices, err := a.orch.Devices(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), devices)
			}
			for _, d := range devices {
				fmt.Fprintln(cmd.OutOrStdout(), d.Label())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print devices as JSON")
	return cmd
}

func (c *cli) newExportCmd() *cobra.Command {
	var identity, dest string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the pairing file for a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runOperation(cmd, orchestrator.OpExport, identity, operationFlags{dest: dest})
		},
	}
	addDeviceFlag(cmd, &identity)
	addDestFlag(cmd, &dest)
	return cmd
}

func (c *cli) newWiFiCmd() *cobra.Command {
	wifi := &cobra.Command{
		Use:   "wifi",
		Short: "Test or enable WiFi sync",
	}

	var testIdentity, address string
	test := &cobra.Command{
		Use:   "test",
		Short: "Check that a device answers over the network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runOperation(cmd, orchestrator.OpWiFiTest, testIdentity, operationFlags{address: address})
		},
	}
	addDeviceFlag(test, &testIdentity)
	test.Flags().StringVarP(&address, "address", "a", "", "device IP address, with optional port (USB devices only)")

	var enableIdentity string
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Turn on WiFi sync for a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runOperation(cmd, orchestrator.OpWiFiEnable, enableIdentity, operationFlags{})
		},
	}
	addDeviceFlag(enable, &enableIdentity)

	wifi.AddCommand(test, enable)
	return wifi
}

func (c *cli) newRegenerateCmd() *cobra.Command {
	var identity, dest string
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Pair again over USB and export the new pairing file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runOperation(cmd, orchestrator.OpRegenerate, identity, operationFlags{dest: dest})
		},
	}
	addDeviceFlag(cmd, &identity)
	addDestFlag(cmd, &dest)
	return cmd
}

// operationFlags are the prompt answers given on the command line.
type operationFlags struct {
	dest    string
	address string
}

// runOperation resolves the target device and runs op, answering prompts
// from flags. An empty --dest falls back to export.directory.
func (c *cli) runOperation(cmd *cobra.Command, op orchestrator.Operation, identity string, flags operationFlags) error {
	a, err := c.open(cmd, "cli")
	if err != nil {
		return err
	}
	defer a.Close()

	if flags.dest == "" {
		flags.dest = a.cfg.Export.Directory
	}
	prompt := notifyingPrompt{
		StaticPrompt: orchestrator.StaticPrompt{Directory: flags.dest, Address: flags.address},
		out:          cmd.OutOrStdout(),
	}

	d, err := selectDevice(cmd.Context(), a.orch, identity)
	if err != nil {
		return err
	}

	res, err := a.orch.Run(cmd.Context(), op, d, prompt)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

// selectDevice returns the device named by identity, or the only connected
// device when identity is empty.
func selectDevice(ctx context.Context, o *orchestrator.Orchestrator, identity string) (device.Descriptor, error) {
	if identity != "" {
		return o.Lookup(ctx, identity)
	}
	devices, err := o.Devices(ctx)
	if err != nil {
		return device.Descriptor{}, err
	}
	if len(devices) > 1 {
		return device.Descriptor{}, errMultipleDevices
	}
	return devices[0], nil
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var (
		filter audit.Filter
		result string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch result {
			case "":
			case "success", "failure":
				ok := result == "success"
				filter.Success = &ok
			default:
				return errInvalidResult
			}
			if filter.Operation != "" {
				op, err := orchestrator.ParseOperation(filter.Operation)
				if err != nil {
					return err
				}
				filter.Operation = string(op)
			}

			a, err := c.open(cmd, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			if a.history == nil {
				return errHistoryDisabled
			}
			page, err := a.history.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}
			printHistory(cmd.OutOrStdout(), page)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter.Operation, "operation", "o", "", "only this operation (export, wifi-test, wifi-enable, regenerate)")
	cmd.Flags().StringVarP(&filter.Identity, "device", "d", "", "only this device identity")
	cmd.Flags().StringVar(&result, "result", "", "only success or failure")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 50, "maximum entries to show")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "entries to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print history as JSON")
	return cmd
}

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd, "api")
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := api.New(api.Deps{
				Config:             a.cfg.API,
				Logger:             a.log,
				Orchestrator:       a.orch,
				History:            a.history,
				Checks:             a.checks,
				DefaultDestination: a.cfg.Export.Directory,
				Version:            version,
			})
			if err != nil {
				return fmt.Errorf("creating API server: %w", err)
			}

			ctx := cmd.Context()
			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("starting API server: %w", err)
			}
			a.log.Info("pairgen API ready", "address", srv.Addr(), "version", version)

			<-ctx.Done()
			a.log.Info("shutdown signal received")
			return srv.Close()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pairgen %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

func addDeviceFlag(cmd *cobra.Command, identity *string) {
	cmd.Flags().StringVarP(identity, "device", "d", "", "device identity (UDID); required when several devices are connected")
}

func addDestFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "dest", "", "directory to export the pairing file to (default export.directory)")
}

// notifyingPrompt is a StaticPrompt that prints progress messages.
type notifyingPrompt struct {
	orchestrator.StaticPrompt
	out io.Writer
}

func (p notifyingPrompt) Notify(message string) {
	fmt.Fprintln(p.out, message)
}

// printResult prints the operation's message. A WiFi test that passed
// without a heartbeat says so.
func printResult(w io.Writer, res orchestrator.Result) {
	fmt.Fprintln(w, res.Message)
	if res.Outcome != nil && !res.Outcome.Verified {
		fmt.Fprintln(w, "The device was found over WiFi, so no heartbeat was sent")
	}
}

func printHistory(w io.Writer, page *audit.ListResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOPERATION\tDEVICE\tRESULT\tDURATION")
	for _, e := range page.Entries {
		status := "ok"
		if !e.Success {
			status = e.ErrorKind
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Operation,
			e.Identity,
			status,
			(time.Duration(e.DurationMS) * time.Millisecond).String(),
		)
	}
	tw.Flush() //nolint:errcheck,gosec // Output errors surface on the writer
	fmt.Fprintf(w, "%d of %d entries\n", len(page.Entries), page.Total)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
