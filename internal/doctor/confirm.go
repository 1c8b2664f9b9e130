package doctor

import "github.com/charmbracelet/huh"

// TerminalConfirmer prompts on the controlling terminal.
type TerminalConfirmer struct{}

func (TerminalConfirmer) Confirm(title string) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(title).
		Affirmative("Repair").
		Negative("Skip").
		Value(&ok)
	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, err
	}
	return ok, nil
}
