package browser

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/macropower/chipper/api/v1beta1"
)

const (
	// DefaultURL is the page chipper opens when it launches a browser.
	DefaultURL = "https://www.youtube.com/"
	// DefaultPollInterval is how often buffered page events are drained.
	DefaultPollInterval = 250 * time.Millisecond
	// DefaultTimeout bounds a single page operation.
	DefaultTimeout = 10 * time.Second
)

// Selectors are the CSS selectors used to read and watch the page.
type Selectors struct {
	// ChipContainer matches the element holding the chips.
	ChipContainer string `json:"chipContainer,omitempty" jsonschema:"title=Chip Container"`
	// Chip matches a single chip inside ChipContainer.
	Chip string `json:"chip,omitempty" jsonschema:"title=Chip"`
	// Item matches the container of one content item.
	Item string `json:"item,omitempty" jsonschema:"title=Item"`
	// ItemTitle matches the title inside an Item.
	ItemTitle string `json:"itemTitle,omitempty" jsonschema:"title=Item Title"`
	// SearchForm matches the page's search form.
	SearchForm string `json:"searchForm,omitempty" jsonschema:"title=Search Form"`
	// SearchInput matches the query input inside SearchForm.
	SearchInput string `json:"searchInput,omitempty" jsonschema:"title=Search Input"`
	// SearchButton matches the button that submits SearchForm.
	SearchButton string `json:"searchButton,omitempty" jsonschema:"title=Search Button"`
}

// NewSelectors returns [Selectors] with default values.
func NewSelectors() *Selectors {
	s := &Selectors{}
	s.EnsureDefaults()

	return s
}

// EnsureDefaults sets default values for any unset fields.
func (s *Selectors) EnsureDefaults() {
	if s.ChipContainer == "" {
		s.ChipContainer = "ytd-feed-filter-chip-bar-renderer"
	}
	if s.Chip == "" {
		s.Chip = "yt-chip-cloud-chip-renderer"
	}
	if s.Item == "" {
		s.Item = "ytd-rich-item-renderer, ytd-video-renderer, ytd-compact-video-renderer, " +
			"ytd-grid-video-renderer, ytd-playlist-panel-video-renderer, ytd-playlist-video-renderer, " +
			"ytd-compact-radio-renderer, ytd-radio-renderer"
	}
	if s.ItemTitle == "" {
		s.ItemTitle = "yt-formatted-string#video-title, #video-title.ytd-rich-grid-media, " +
			".title.ytd-rich-grid-media, #video-title-link yt-formatted-string, " +
			"#title h3.title-and-badge, #title yt-formatted-string"
	}
	if s.SearchForm == "" {
		s.SearchForm = `form[action="/results"]`
	}
	if s.SearchInput == "" {
		s.SearchInput = `input[name="search_query"]`
	}
	if s.SearchButton == "" {
		s.SearchButton = "button.ytSearchboxComponentSearchButton"
	}
}

// Config configures the browser environment.
type Config struct {
	// Headless runs a launched browser without a window.
	Headless *bool `json:"headless,omitempty" jsonschema:"title=Headless"`
	// PollInterval is how often buffered page events are drained.
	PollInterval *v1beta1.Duration `json:"pollInterval,omitempty" jsonschema:"title=Poll Interval"`
	// Timeout bounds a single page operation.
	Timeout *v1beta1.Duration `json:"timeout,omitempty" jsonschema:"title=Timeout"`
	// Selectors locate the chips and the watched page elements.
	Selectors *Selectors `json:"selectors,omitempty" jsonschema:"title=Selectors"`
	// URL is the page to open.
	URL string `json:"url,omitempty" jsonschema:"title=URL,format=uri"`
	// ControlURL is the DevTools endpoint of a running browser. When empty,
	// a browser is launched.
	ControlURL string `json:"controlURL,omitempty" jsonschema:"title=Control URL"`
	// Bin is the browser binary to launch. When empty, one is located or
	// downloaded.
	Bin string `json:"bin,omitempty" jsonschema:"title=Binary"`
	// Args are extra launch flags, split like a shell command line.
	Args string `json:"args,omitempty" jsonschema:"title=Arguments"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults sets default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.Headless == nil {
		headless := false
		c.Headless = &headless
	}
	if c.PollInterval == nil {
		c.PollInterval = v1beta1.NewDuration(DefaultPollInterval)
	}
	if c.Timeout == nil {
		c.Timeout = v1beta1.NewDuration(DefaultTimeout)
	}
	if c.Selectors == nil {
		c.Selectors = &Selectors{}
	}
	c.Selectors.EnsureDefaults()

	if c.URL == "" {
		c.URL = DefaultURL
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("url: %w", err))
		} else if u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("url %q: must be absolute", c.URL))
		}
	}
	if c.PollInterval != nil && c.PollInterval.Duration <= 0 {
		errs = append(errs, errors.New("pollInterval must be positive"))
	}
	if c.Timeout != nil && c.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}

	_, err := c.LaunchArgs()
	if err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// IsHeadless reports whether a launched browser runs headless.
func (c *Config) IsHeadless() bool {
	return c.Headless != nil && *c.Headless
}

// LaunchArgs splits [Config.Args] into individual flags.
func (c *Config) LaunchArgs() ([]string, error) {
	if c.Args == "" {
		return nil, nil
	}

	args, err := shellwords.Parse(c.Args)
	if err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	return args, nil
}
