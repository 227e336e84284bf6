package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"

	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/yaml"
)

// ErrorHandler renders err for fang. Document errors that carry annotated
// source are printed with the message first and the source below it.
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	msg, detail := splitDetail(err)

	mustN(fmt.Fprintln(w, styles.ErrorHeader.String()))
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(msg)))
	mustN(fmt.Fprintln(w))
	if detail != "" {
		mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(4).Faint(true).Render(detail)))
		mustN(fmt.Fprintln(w))
	}
	if h := hint(err); h != "" {
		mustN(fmt.Fprintln(w, styles.ErrorText.UnsetWidth().Render(h)))
		mustN(fmt.Fprintln(w))
	}
	if isUsageError(err) {
		mustN(fmt.Fprintln(w, lipgloss.JoinHorizontal(
			lipgloss.Left,
			styles.ErrorText.UnsetWidth().Render("Try"),
			styles.Program.Flag.Render("--help"),
			styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
		)))
		mustN(fmt.Fprintln(w))
	}
}

// hint suggests a way out of errors the user can act on.
func hint(err error) string {
	switch {
	case errors.Is(err, preference.ErrStoreUnavailable):
		return "Fix the preferences file and try again. It is not written to while it cannot be loaded."
	case errors.Is(err, chip.ErrEnvironmentUnavailable):
		return "Check that the browser is running, or use --demo to run without one."
	case errors.Is(err, log.ErrInvalidArgument):
		return fmt.Sprintf("Log levels are %s; formats are %s.", log.AllLevels, log.AllFormats)
	}

	return ""
}

func splitDetail(err error) (string, string) {
	var yamlErr *yaml.Error

	s := err.Error()
	if !errors.As(err, &yamlErr) {
		return s, ""
	}

	msg, detail, _ := strings.Cut(s, "\n")

	return msg, strings.TrimRight(detail, "\n")
}

// XXX: this is a hack to detect usage errors.
// See: https://github.com/spf13/cobra/pull/2266
func isUsageError(err error) bool {
	s := err.Error()
	for _, prefix := range []string{
		"flag needs an argument:",
		"unknown flag:",
		"unknown shorthand flag:",
		"unknown command",
		"invalid argument",
	} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustN(_ int, err error) {
	must(err)
}
