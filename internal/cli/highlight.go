package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const highlightStyle = "monokai"

// writeYAML writes a YAML document to w, highlighted when w is a terminal.
func writeYAML(w io.Writer, data []byte) error {
	if !isTerminal(w) {
		_, err := w.Write(data)
		if err != nil {
			return fmt.Errorf("write yaml: %w", err)
		}

		return nil
	}

	err := highlightYAML(w, string(data), termenv.ColorProfile())
	if err != nil {
		// Fall back to the plain document.
		_, werr := w.Write(data)
		if werr != nil {
			return fmt.Errorf("write yaml: %w", werr)
		}

		return err
	}

	return nil
}

func highlightYAML(w io.Writer, yaml string, profile termenv.Profile) error {
	lexer := chroma.Coalesce(lexers.Get("YAML"))

	formatterName := "noop"
	switch profile {
	case termenv.TrueColor:
		formatterName = "terminal16m"

	case termenv.ANSI256:
		formatterName = "terminal256"

	case termenv.ANSI:
		formatterName = "terminal8"
	}

	iterator, err := lexer.Tokenise(nil, yaml)
	if err != nil {
		return fmt.Errorf("tokenise yaml: %w", err)
	}

	err = formatters.Get(formatterName).Format(w, styles.Get(highlightStyle), iterator)
	if err != nil {
		return fmt.Errorf("format yaml: %w", err)
	}

	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // Fd fits in an int.
}
