package prompt

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// keyModel shows a message and quits on the first key press.
type keyModel struct {
	msg string
}

func (m keyModel) Init() tea.Cmd { return nil }

func (m keyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, tea.Quit
	}
	return m, nil
}

func (m keyModel) View() string {
	return m.msg + "\n"
}

// WaitForKey shows msg and blocks until a key is pressed on in.
func WaitForKey(in io.Reader, out io.Writer, msg string) error {
	p := tea.NewProgram(keyModel{msg: msg}, tea.WithInput(in), tea.WithOutput(out))
	_, err := p.Run()
	return err
}
