// Package process runs external command-line tools to completion.
//
// pairgen talks to devices through the libimobiledevice tool suite. Each
// call is a short-lived child process: Run starts it in its own process
// group, captures stdout and stderr, and kills the group if the command
// outlives its timeout. A timeout is reported as ErrTimeout and is terminal
// for the caller's operation; nothing here retries.
//
// Example usage:
//
//	runner := process.NewExecRunner(30 * time.Second)
//	runner.SetLogger(log)
//
//	res, err := runner.Run(ctx, process.Command{
//	    Name:   "idevice_id",
//	    Binary: "idevice_id",
//	    Args:   []string{"-l"},
//	})
//
//	var exitErr *process.ExitError
//	switch {
//	case errors.Is(err, process.ErrBinaryNotFound):
//	    // libimobiledevice is not installed
//	case errors.As(err, &exitErr):
//	    // tool ran and reported failure in exitErr.Stderr
//	}
package process
