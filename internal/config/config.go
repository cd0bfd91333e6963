package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Timing defaults mirror the behavior of rendering real content-heavy
// municipal and documentation sites, where client-side routers need a
// few seconds before meaningful text exists.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ragspider"

	// DefaultOutputDir is where page records are written when the user
	// does not choose a directory. A relative path keeps the corpus
	// next to wherever the crawl was started.
	DefaultOutputDir = "output"

	// DefaultWorkers renders one page at a time. Headless rendering is
	// memory-hungry and most target sites are small, so sequential is
	// the safe default. Raise via --workers for large crawls.
	DefaultWorkers = 1

	// DefaultMaxPages of 0 means unlimited. Same-site scoping already
	// bounds a crawl to one site, so a hard cap is opt-in.
	DefaultMaxPages = 0

	// DefaultDelay of 0 adds no politeness pause between fetches.
	// Rendering each page in a browser is slow enough that most sites
	// never see more than a request every few seconds anyway.
	DefaultDelay = 0 * time.Second

	// DefaultTimeout is the per-page rendering budget. 120 seconds
	// covers slow single-page applications on congested networks;
	// when it expires the page is recorded as failed and the crawl
	// moves on.
	DefaultTimeout = 120 * time.Second

	// DefaultInitialDelay gives client-side frameworks 3 seconds to
	// boot before the first content probe. Probing earlier just burns
	// polls on an empty root element.
	DefaultInitialDelay = 3 * time.Second

	// DefaultPollInterval spaces content probes 1 second apart.
	DefaultPollInterval = 1 * time.Second

	// DefaultMaxWait stops probing after 15 seconds. Pages that have
	// not produced text by then are captured as-is rather than holding
	// up the crawl.
	DefaultMaxWait = 15 * time.Second

	// DefaultTextThreshold is the number of body text characters that
	// marks a page as ready. 200 skips cookie banners and spinners
	// while accepting genuinely short pages after the wait budget.
	DefaultTextThreshold = 200

	// DefaultSettleDelay is the pause after readiness before capture,
	// letting late images and embeds finish mutating the DOM.
	DefaultSettleDelay = 2 * time.Second

	// DefaultUserAgent presents as a desktop Chrome browser. Sites
	// that sniff user agents serve the full JavaScript application to
	// this string, which is exactly what we want to render.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultViewportWidth and DefaultViewportHeight emulate a common
	// desktop window so responsive layouts render their desktop
	// variant, which carries the most text.
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// Config holds all configuration options for a crawl.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested
// structs (e.g., RenderConfig, StorageConfig) for simplicity. The
// number of options is manageable, and nesting would add complexity
// without significant benefit.
type Config struct {
	// Seeds are the starting URLs given as positional arguments.
	Seeds []string

	// SeedFile is the path to a JSON batch file ({"urls": [...]}).
	// When set, its URLs are crawled in addition to Seeds.
	SeedFile string

	// OutputDir is the root directory for page records. The directory
	// hierarchy under it mirrors the crawled URL structure.
	OutputDir string

	// Workers is the number of pages rendered concurrently.
	Workers int

	// MaxPages limits the total number of pages crawled. 0 means
	// unlimited.
	MaxPages int

	// Delay is the minimum spacing between page fetches.
	Delay time.Duration

	// Timeout is the rendering budget for a single page.
	Timeout time.Duration

	// InitialDelay is how long to wait before the first content probe.
	InitialDelay time.Duration

	// PollInterval is the spacing between content probes.
	PollInterval time.Duration

	// MaxWait is the total probing budget per page.
	MaxWait time.Duration

	// TextThreshold is the body text length that marks a page ready.
	TextThreshold int

	// SettleDelay is the pause after readiness before capture.
	SettleDelay time.Duration

	// Scroll scrolls each page to the bottom before capture to
	// trigger lazy-loaded content.
	Scroll bool

	// BlockResources drops image, font, and media requests during
	// rendering. Text extraction does not need them and skipping them
	// speeds up page loads considerably.
	BlockResources bool

	// RespectRobots gates every URL on the host's robots.txt.
	RespectRobots bool

	// Stealth masks the telltale signs of headless automation so
	// bot-detection scripts serve the normal page.
	Stealth bool

	// UserAgent is the browser identity sent with every request.
	UserAgent string

	// ViewportWidth and ViewportHeight set the emulated window size.
	ViewportWidth  int
	ViewportHeight int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .ragspider in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config
	// file. Populated by LoadConfigFile.
	SiteConfigs *File

	// JSONReport prints the crawl summary as JSON instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the crawl summary as GitHub Flavored
	// Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory for the crawl history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB records crawled pages and runs in the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most
// sites. Users override specific values via flags after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeouts, viewport,
// thresholds). This also serves as documentation of what the defaults
// are.
func NewConfig() *Config {
	return &Config{
		OutputDir:      DefaultOutputDir,
		Workers:        DefaultWorkers,
		MaxPages:       DefaultMaxPages,
		Delay:          DefaultDelay,
		Timeout:        DefaultTimeout,
		InitialDelay:   DefaultInitialDelay,
		PollInterval:   DefaultPollInterval,
		MaxWait:        DefaultMaxWait,
		TextThreshold:  DefaultTextThreshold,
		SettleDelay:    DefaultSettleDelay,
		BlockResources: true,
		Stealth:        true,
		UserAgent:      DefaultUserAgent,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for the crawler.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/ragspider
// On macOS: ~/Library/Application Support/ragspider
// On Windows: %LOCALAPPDATA%\ragspider
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the crawler.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for the crawler.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before the browser starts.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// A crawl needs at least one way to obtain seeds
	if len(c.Seeds) == 0 && c.SeedFile == "" {
		return ErrNoSeed
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	// Timeout must be positive; zero would fail every page immediately
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Readiness polling needs a positive interval and non-negative
	// delays, otherwise the probe loop cannot make progress
	if c.PollInterval <= 0 || c.InitialDelay < 0 || c.MaxWait < 0 || c.SettleDelay < 0 {
		return ErrInvalidWait
	}

	if c.TextThreshold < 0 {
		return ErrInvalidTextThreshold
	}

	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return ErrInvalidViewport
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
