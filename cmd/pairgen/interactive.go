package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/orchestrator"
)

// terminal is the interactive surface: device and operation menus plus the
// prompts operations need.
type terminal interface {
	orchestrator.Prompt
	orchestrator.Notifier

	ChooseDevice(ctx context.Context, devices []device.Descriptor) (device.Descriptor, error)
	ChooseOperation(ctx context.Context) (orchestrator.Operation, error)
}

// huhTerminal renders menus and prompts with huh.
type huhTerminal struct {
	out        io.Writer
	defaultDir string
}

func newHuhTerminal(out io.Writer, defaultDir string) *huhTerminal {
	return &huhTerminal{out: out, defaultDir: defaultDir}
}

func (t *huhTerminal) ChooseDevice(ctx context.Context, devices []device.Descriptor) (device.Descriptor, error) {
	options := make([]huh.Option[int], 0, len(devices))
	for i, d := range devices {
		options = append(options, huh.NewOption(d.Label(), i))
	}

	var chosen int
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().
			Title("Choose a device").
			Options(options...).
			Value(&chosen),
	)).RunWithContext(ctx)
	if err != nil {
		return device.Descriptor{}, err
	}
	return devices[chosen], nil
}

func (t *huhTerminal) ChooseOperation(ctx context.Context) (orchestrator.Operation, error) {
	options := make([]huh.Option[orchestrator.Operation], 0, len(orchestrator.Operations))
	for _, op := range orchestrator.Operations {
		options = append(options, huh.NewOption(op.Title(), op))
	}

	var chosen orchestrator.Operation
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[orchestrator.Operation]().
			Title("Choose an option").
			Options(options...).
			Value(&chosen),
	)).RunWithContext(ctx)
	if err != nil {
		return "", err
	}
	return chosen, nil
}

// ChooseDirectory asks for the export folder. Aborting the prompt counts as
// declining.
func (t *huhTerminal) ChooseDirectory(ctx context.Context, identity string) (string, error) {
	dir := t.defaultDir
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Select a folder to save the pairing file to").
			Description(fmt.Sprintf("Pairing file for %s", identity)).
			Value(&dir),
	)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return dir, nil
}

func (t *huhTerminal) AskAddress(ctx context.Context, _ string) (string, error) {
	var addr string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Enter the IP address of your device").
			Placeholder("192.168.1.20").
			Value(&addr),
	)).RunWithContext(ctx)
	if err != nil {
		return "", err
	}
	return addr, nil
}

func (t *huhTerminal) Notify(message string) {
	fmt.Fprintln(t.out, message)
}

var _ terminal = (*huhTerminal)(nil)
