package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/log"
)

// ErrChipMoved indicates the chip at a position no longer has the expected
// text.
var ErrChipMoved = errors.New("chip moved")

var _ chip.Source = (*Browser)(nil)

// Browser is a [chip.Source] backed by a page in a Chrome browser.
type Browser struct {
	rod      *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	sel      *Selectors
	timeout  time.Duration
}

// Open connects to the browser at [Config.ControlURL], or launches one, and
// opens [Config.URL] in a new page.
func Open(ctx context.Context, cfg *Config) (*Browser, error) {
	cfg.EnsureDefaults()

	b := &Browser{
		sel:     cfg.Selectors,
		timeout: cfg.Timeout.Get(DefaultTimeout),
	}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l, err := newLauncher(cfg)
		if err != nil {
			return nil, err
		}

		controlURL, err = l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}

		b.launcher = l
	}

	b.rod = rod.New().ControlURL(controlURL).Context(ctx)

	err := b.rod.Connect()
	if err != nil {
		b.cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	b.page, err = b.rod.Page(proto.TargetCreateTarget{URL: cfg.URL})
	if err != nil {
		b.cleanup()
		return nil, fmt.Errorf("open page %s: %w", cfg.URL, err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err = b.page.Context(loadCtx).WaitLoad()
	if err != nil {
		b.cleanup()
		return nil, fmt.Errorf("load page %s: %w", cfg.URL, err)
	}

	log.WithContext(ctx).DebugContext(ctx, "opened page",
		slog.String("url", cfg.URL),
		slog.Bool("launched", b.launcher != nil),
	)

	return b, nil
}

func newLauncher(cfg *Config) (*launcher.Launcher, error) {
	l := launcher.New().Headless(cfg.IsHeadless())
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	args, err := cfg.LaunchArgs()
	if err != nil {
		return nil, err
	}

	for _, arg := range args {
		name, val, hasVal := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	return l, nil
}

// Close closes the page. A launched browser is shut down as well; a browser
// reached through a control URL is left running.
func (b *Browser) Close() error {
	var errs []error

	if b.launcher == nil && b.page != nil {
		err := b.page.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}

	if b.launcher != nil && b.rod != nil {
		err := b.rod.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}

	b.cleanup()

	return errors.Join(errs...)
}

func (b *Browser) cleanup() {
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

// Snapshot implements [chip.Source].
func (b *Browser) Snapshot(ctx context.Context) ([]chip.State, error) {
	raw, err := b.eval(ctx, snapshotJS, b.sel)
	if err != nil {
		return nil, fmt.Errorf("read chips: %w", err)
	}

	return ParseStates(raw)
}

// Click implements [chip.Source]. It refuses to click when the chip at
// c.Position no longer reads as c.Text.
func (b *Browser) Click(ctx context.Context, c chip.Candidate) error {
	raw, err := b.eval(ctx, chipTextJS, b.sel, c.Position)
	if err != nil {
		return fmt.Errorf("read chip %q: %w", c.Text, err)
	}

	var text string

	err = json.Unmarshal(raw, &text)
	if err != nil {
		return fmt.Errorf("decode chip %q: %w", c.Text, err)
	}
	if got := ChipText(text); got != c.Text {
		return fmt.Errorf("%w: %q at position %d is now %q", ErrChipMoved, c.Text, c.Position, got)
	}

	raw, err = b.eval(ctx, clickJS, b.sel, c.Position)
	if err != nil {
		return fmt.Errorf("click chip %q: %w", c.Text, err)
	}

	var clicked bool

	err = json.Unmarshal(raw, &clicked)
	if err != nil {
		return fmt.Errorf("decode click %q: %w", c.Text, err)
	}
	if !clicked {
		return fmt.Errorf("%w: %q", ErrChipMoved, c.Text)
	}

	return nil
}

// Hide implements [chip.Source].
func (b *Browser) Hide(ctx context.Context) error {
	_, err := b.eval(ctx, hideJS, b.sel)
	if err != nil {
		return fmt.Errorf("hide chips: %w", err)
	}

	return nil
}

// eval runs js on the page and returns its JSON result.
func (b *Browser) eval(ctx context.Context, js string, args ...any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	res, err := b.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	return raw, nil
}

// ChipText returns the label of a chip from its raw text content. Chips
// render their label twice, so only the first half is used.
func ChipText(raw string) string {
	r := []rune(strings.TrimSpace(raw))
	return strings.TrimSpace(string(r[:len(r)/2]))
}

type rawState struct {
	Raw      string `json:"raw"`
	Position int    `json:"position"`
	Selected bool   `json:"selected"`
}

// ParseStates decodes the result of a chip snapshot script. Chips without
// a label are dropped.
func ParseStates(raw []byte) ([]chip.State, error) {
	var rows []rawState

	err := json.Unmarshal(raw, &rows)
	if err != nil {
		return nil, fmt.Errorf("decode chips: %w", err)
	}

	out := make([]chip.State, 0, len(rows))
	for _, row := range rows {
		text := ChipText(row.Raw)
		if text == "" {
			continue
		}

		out = append(out, chip.State{
			Candidate: chip.Candidate{Text: text, Position: row.Position},
			Selected:  row.Selected,
		})
	}

	return out, nil
}
