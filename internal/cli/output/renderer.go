// Package output renders user-facing messages for the terminal, for plain
// markdown, or as JSON lines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/desktopmate-tools/dminstall/internal/report"
)

// Mode selects how output is formatted.
type Mode string

const (
	// ModeAuto picks text for terminals and markdown otherwise.
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Modes lists the accepted --output values.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}
}

// ParseMode validates s. An empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeText, ModeMarkdown, ModeJSON:
		return m, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want one of %s)", s, strings.Join(Modes(), ", "))
	}
}

// BannerWidth is the width of the banner rule.
const BannerWidth = 45

// Renderer writes messages in the selected mode. It implements
// report.Reporter.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles Styles
}

var _ report.Reporter = (*Renderer)(nil)

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal flag.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	lr := lipgloss.NewRenderer(out)
	if isTTY && os.Getenv("NO_COLOR") == "" {
		lr.SetColorProfile(termenv.ANSI)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: newStyles(lr),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves ModeAuto.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Styles returns the text mode styles.
func (r *Renderer) Styles() Styles { return r.styles }

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer is the primary output stream.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter is the diagnostic stream.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Println writes one line as-is. In JSON mode it becomes an event.
func (r *Renderer) Println(msg string) {
	if r.EffectiveMode() == ModeJSON {
		r.event("output", msg)
		return
	}
	r.write(msg)
}

// Printf writes formatted text without adding a newline.
func (r *Renderer) Printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *Renderer) Info(msg string)    { r.leveled("info", r.styles.Info, "", msg) }
func (r *Renderer) Success(msg string) { r.leveled("success", r.styles.Success, "", msg) }
func (r *Renderer) Warning(msg string) { r.leveled("warning", r.styles.Warning, "Warning:", msg) }
func (r *Renderer) Error(msg string)   { r.leveled("error", r.styles.Error, "Error:", msg) }

func (r *Renderer) leveled(level string, style lipgloss.Style, mdPrefix, msg string) {
	switch r.EffectiveMode() {
	case ModeJSON:
		r.event(level, msg)
	case ModeMarkdown:
		if mdPrefix != "" && !strings.HasPrefix(strings.ToLower(msg), strings.ToLower(mdPrefix)) {
			msg = "**" + mdPrefix + "** " + msg
		}
		r.write(msg)
	default:
		r.write(style.Render(msg))
	}
}

// Header writes a section heading.
func (r *Renderer) Header(level int, text string) {
	switch r.EffectiveMode() {
	case ModeJSON:
		r.event("header", text)
	case ModeMarkdown:
		r.write(FormatHeader(level, text))
	default:
		style := r.styles.Header2
		if level <= 1 {
			style = r.styles.Header1
		}
		r.write(style.Render(text))
	}
}

// StatusLine writes "icon name detail" for status "success", "warn" or
// anything else meaning failure.
func (r *Renderer) StatusLine(name, status, detail string) {
	switch r.EffectiveMode() {
	case ModeJSON:
		r.encode(map[string]string{"event": "status", "name": name, "status": status, "detail": detail})
		return
	case ModeMarkdown:
		line := fmt.Sprintf("- [%s] %s", status, name)
		if detail != "" {
			line += ": " + detail
		}
		r.write(line)
		return
	}

	icon := r.styles.StatusFailed.String()
	switch status {
	case "success", "pass":
		icon = r.styles.StatusSuccess.String()
	case "warn", "warning":
		icon = r.styles.StatusWarning.String()
	}
	line := icon + " " + name
	if detail != "" {
		line += " " + r.styles.Muted.Render(detail)
	}
	r.write(line)
}

// Banner writes title centered between two rules.
func (r *Renderer) Banner(title string) {
	rule := strings.Repeat("=", BannerWidth)
	pad := 0
	if len(title) < BannerWidth {
		pad = (BannerWidth - len(title)) / 2
	}
	centered := strings.Repeat(" ", pad) + title + strings.Repeat(" ", pad)

	switch r.EffectiveMode() {
	case ModeJSON:
		r.event("banner", title)
	case ModeMarkdown:
		r.write(FormatHeader(1, title))
		r.write("")
	default:
		for _, l := range []string{rule, centered, rule} {
			r.write(r.styles.Banner.Render(l))
		}
		r.write("")
	}
}

// SetTitle sets the terminal window title in text mode.
func (r *Renderer) SetTitle(title string) {
	if !r.isTTY || r.EffectiveMode() != ModeText {
		return
	}
	termenv.NewOutput(r.out).SetWindowTitle(title)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) event(level, msg string) {
	r.encode(map[string]string{"level": level, "message": msg})
}

func (r *Renderer) encode(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = json.NewEncoder(r.out).Encode(v)
}

func (r *Renderer) write(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.out, line)
}

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item "- **key**: value".
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}
