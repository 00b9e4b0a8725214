package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"h265-compressor/config"
	"h265-compressor/encoder"
)

const (
	fieldInput = iota
	fieldOutput
	fieldCRF
	fieldCount
)

var fieldLabels = [fieldCount]string{"Input", "Output", "CRF"}

// form collects one encode request.
type form struct {
	cfg    config.Config
	inputs [fieldCount]textinput.Model
	focus  int
	err    string
	// suggested is the output path last filled in automatically. While the
	// output still equals it, editing the input refreshes it.
	suggested string
}

func newForm(cfg config.Config, input string) form {
	f := form{cfg: cfg}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 4096
		ti.Width = 60
		f.inputs[i] = ti
	}
	f.inputs[fieldInput].Placeholder = "/path/to/video.mov"
	f.inputs[fieldOutput].Placeholder = "<input>" + cfg.OutputSuffix + cfg.OutputExt
	f.inputs[fieldCRF].Placeholder = strconv.Itoa(cfg.CRF)
	f.inputs[fieldCRF].CharLimit = 3
	f.inputs[fieldCRF].Width = 4
	f.inputs[fieldCRF].SetValue(strconv.Itoa(cfg.CRF))

	if input != "" {
		f.inputs[fieldInput].SetValue(input)
		f.refreshSuggestion()
	}
	f.inputs[f.focus].Focus()
	return f
}

func (f *form) init() tea.Cmd {
	return textinput.Blink
}

func (f *form) focusCmd() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	return f.inputs[f.focus].Focus()
}

func (f *form) blur() {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

// reset keeps the last input and quality so a follow-up encode is quick,
// but clears the output.
func (f *form) reset(cfg config.Config) {
	f.cfg = cfg
	f.err = ""
	f.inputs[fieldOutput].SetValue("")
	f.suggested = ""
	f.refreshSuggestion()
	f.focus = fieldInput
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.focus = (f.focus + 1) % fieldCount
			return f.focusCmd()
		case "shift+tab", "up":
			f.focus = (f.focus + fieldCount - 1) % fieldCount
			return f.focusCmd()
		}
	}

	var cmds []tea.Cmd
	for i := range f.inputs {
		var cmd tea.Cmd
		f.inputs[i], cmd = f.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	if f.focus == fieldInput {
		f.refreshSuggestion()
	}
	return tea.Batch(cmds...)
}

func (f *form) refreshSuggestion() {
	out := f.inputs[fieldOutput].Value()
	if out != "" && out != f.suggested {
		return
	}
	f.suggested = f.cfg.SuggestOutput(config.CleanPath(f.inputs[fieldInput].Value()))
	f.inputs[fieldOutput].SetValue(f.suggested)
}

// request builds and validates the encode request from the fields.
func (f *form) request(cfg config.Config) (encoder.Request, error) {
	input := config.CleanPath(f.inputs[fieldInput].Value())
	output := cfg.NormalizeOutput(config.CleanPath(f.inputs[fieldOutput].Value()))

	quality := cfg.CRF
	if s := strings.TrimSpace(f.inputs[fieldCRF].Value()); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return encoder.Request{}, fmt.Errorf("%w (got %q)", encoder.ErrQualityRange, s)
		}
		quality = n
	}

	req := encoder.Request{Input: input, Output: output, Quality: quality, Codec: cfg.Codec}
	return req, req.Validate()
}

// formMessage turns a validation error into the text shown under the form.
func formMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, encoder.ErrMissingPath):
		return "Please choose both an input and an output file."
	case errors.Is(err, encoder.ErrInputNotFound):
		return "Input file does not exist."
	case errors.Is(err, encoder.ErrInputIsDir):
		return "Input is a directory, not a video file."
	case errors.Is(err, encoder.ErrSamePath):
		return "Output must be a different file from the input."
	case errors.Is(err, encoder.ErrQualityRange):
		return fmt.Sprintf("CRF must be a whole number from %d to %d.", config.MinCRF, config.MaxCRF)
	default:
		return err.Error()
	}
}
