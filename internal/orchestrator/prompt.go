package orchestrator

import "context"

// Prompt asks the operator for the inputs an operation needs.
type Prompt interface {
	// ChooseDirectory returns the export directory for identity's record.
	// An empty string means the operator declined.
	ChooseDirectory(ctx context.Context, identity string) (string, error)

	// AskAddress returns the device's network address as typed.
	AskAddress(ctx context.Context, identity string) (string, error)
}

// Notifier is implemented by prompts that can show progress messages
// between steps of an operation.
type Notifier interface {
	Notify(message string)
}

// StaticPrompt answers with fixed values. It serves flag-driven commands
// and the HTTP API.
type StaticPrompt struct {
	Directory string
	Address   string
}

// ChooseDirectory returns p.Directory.
func (p StaticPrompt) ChooseDirectory(_ context.Context, _ string) (string, error) {
	return p.Directory, nil
}

// AskAddress returns p.Address.
func (p StaticPrompt) AskAddress(_ context.Context, _ string) (string, error) {
	return p.Address, nil
}
