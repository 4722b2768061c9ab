package prompt

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted_Line(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty uses default", input: "\n", want: `C:\Games\DesktopMate`},
		{name: "whitespace uses default", input: "   \r\n", want: `C:\Games\DesktopMate`},
		{name: "answer trimmed", input: "  D:\\DM  \n", want: `D:\DM`},
		{name: "answer without newline", input: "E:\\Games", want: `E:\Games`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewScripted(strings.NewReader(tt.input), &out)
			got, err := p.Line("Enter installation path: ", `C:\Games\DesktopMate`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Enter installation path: ")
		})
	}
}

func TestScripted_Required(t *testing.T) {
	var out bytes.Buffer
	p := NewScripted(strings.NewReader("\n  \nsteamuser\n"), &out)

	got, err := p.Required("Enter your Steam username: ", "Steam username is required.")
	require.NoError(t, err)
	assert.Equal(t, "steamuser", got)
	assert.Equal(t, 2, strings.Count(out.String(), "Steam username is required."))
}

func TestScripted_RequiredEOF(t *testing.T) {
	p := NewScripted(strings.NewReader("\n"), new(bytes.Buffer))
	_, err := p.Required("user: ", "required")
	require.ErrorIs(t, err, ErrAborted)
}

func TestScripted_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"Y\n", true},
		{"y\n", true},
		{" y \n", true},
		{"yes\n", false},
		{"N\n", false},
		{"\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			p := NewScripted(strings.NewReader(tt.input), new(bytes.Buffer))
			got, err := p.Confirm("Update? (Y/N): ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScripted_Password(t *testing.T) {
	var out bytes.Buffer
	p := NewScripted(strings.NewReader("hunter2\n"), &out)
	got, err := p.Password("Enter your Steam password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
	assert.NotContains(t, out.String(), "hunter2")
}

func TestScripted_Pause(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewScripted(strings.NewReader(""), &out).Pause("Press any key to exit..."))
	assert.Contains(t, out.String(), "Press any key to exit...")
}

func TestKeyModel(t *testing.T) {
	m := keyModel{msg: "Press any key to exit..."}
	assert.Nil(t, m.Init())
	assert.Equal(t, "Press any key to exit...\n", m.View())

	_, cmd := m.Update(tea.WindowSizeMsg{Width: 80})
	assert.Nil(t, cmd)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
