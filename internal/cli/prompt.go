package cli

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("confirmation required: re-run with --yes or from a terminal")

// ConfirmFunc prompts the user for confirmation and returns true if confirmed.
type ConfirmFunc func(prompt string) (bool, error)

// NewConfirmFunc creates a ConfirmFunc using huh's interactive confirm component.
func NewConfirmFunc() ConfirmFunc {
	return func(prompt string) (bool, error) {
		var result bool
		err := huh.NewConfirm().
			Title(prompt).
			Affirmative("예").
			Negative("아니오").
			Value(&result).
			Run()
		return result, err
	}
}

// AlwaysYes returns a ConfirmFunc that always confirms.
func AlwaysYes() ConfirmFunc {
	return func(_ string) (bool, error) {
		return true, nil
	}
}

// refuse is the ConfirmFunc used without a terminal.
func refuse(_ string) (bool, error) {
	return false, ErrNotInteractive
}

// PromptFunc prompts the user for free-text input and returns the response.
type PromptFunc func(prompt string) (string, error)

// NewPromptFunc creates a PromptFunc using huh's interactive input component.
func NewPromptFunc() PromptFunc {
	return func(prompt string) (string, error) {
		var result string
		err := huh.NewInput().
			Title(prompt).
			Value(&result).
			Run()
		return result, err
	}
}

// PromptKit bundles the prompt functions for dependency injection. A nil Prompt
// means free-text input is unavailable.
type PromptKit struct {
	Prompt  PromptFunc
	Confirm ConfirmFunc
}

// Interactive reports whether stdin is a terminal.
func Interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewPromptKit returns huh-based prompts on a terminal and refusing ones otherwise.
func NewPromptKit() PromptKit {
	if !Interactive() {
		return PromptKit{Confirm: refuse}
	}
	return PromptKit{
		Prompt:  NewPromptFunc(),
		Confirm: NewConfirmFunc(),
	}
}

// confirmer returns the confirm function honouring --yes.
func (pk PromptKit) confirmer(yes bool) ConfirmFunc {
	if yes {
		return AlwaysYes()
	}
	if pk.Confirm == nil {
		return refuse
	}
	return pk.Confirm
}
