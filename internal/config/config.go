package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jw6ventures/henboard/internal/calendar"
)

type Config struct {
	ListenAddr string
	BaseURL    string

	HEN struct {
		BaseURL      string
		CalendarPath string
		LoginPath    string
		Timeout      time.Duration
		CacheTTL     time.Duration
		RefreshSpec  string
	}

	OAuth struct {
		ClientID     string
		ClientSecret string
		IssuerURL    string
		RedirectPath string
		GroupsClaim  string
	}

	Session struct {
		Secret  string
		IdleTTL time.Duration
	}

	// APIUsers maps Basic Auth usernames to bcrypt hashes for /api.
	APIUsers map[string]string

	Calendar CalendarLayout

	PrometheusEnabled bool
	TrustedProxies    []string
}

// CalendarLayout controls how the experiment calendar is drawn.
type CalendarLayout struct {
	Columns       int               `yaml:"columns"`
	ColumnWidth   int               `yaml:"column_width"`
	RowHeight     int               `yaml:"row_height"`
	IDPrefix      string            `yaml:"id_prefix"`
	CellIndexAttr string            `yaml:"cell_index_attr"`
	LabelIDAttr   string            `yaml:"label_id_attr"`
	DefaultStep   int               `yaml:"default_step"`
	Palette       map[string]string `yaml:"palette"`
}

// DefaultCalendarLayout is the experiment tab layout used when no layout file is set.
func DefaultCalendarLayout() CalendarLayout {
	return CalendarLayout{
		Columns:       23,
		ColumnWidth:   10,
		RowHeight:     10,
		IDPrefix:      "experiment-calendar",
		CellIndexAttr: "calendarCellName",
		LabelIDAttr:   "elementID",
		DefaultStep:   1,
	}
}

// OIDCEnabled reports whether single sign-on is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.IssuerURL != ""
}

func Load() (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] could not load .env: %v", err)
	}

	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("APP_LISTEN_ADDR", ":8080")
	cfg.BaseURL = getenvDefault("APP_BASE_URL", "http://localhost:8080")

	cfg.HEN.BaseURL = os.Getenv("APP_HEN_BASE_URL")
	cfg.HEN.CalendarPath = os.Getenv("APP_HEN_CALENDAR_PATH")
	cfg.HEN.LoginPath = os.Getenv("APP_HEN_LOGIN_PATH")
	cfg.HEN.RefreshSpec = getenvDefault("APP_HEN_REFRESH", "*/5 * * * *")

	var err error
	if cfg.HEN.Timeout, err = getenvDuration("APP_HEN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.HEN.CacheTTL, err = getenvDuration("APP_HEN_CACHE_TTL", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Session.IdleTTL, err = getenvDuration("APP_SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.OAuth.ClientID = os.Getenv("APP_OAUTH_CLIENT_ID")
	cfg.OAuth.ClientSecret = os.Getenv("APP_OAUTH_CLIENT_SECRET")
	cfg.OAuth.IssuerURL = os.Getenv("APP_OAUTH_ISSUER_URL")
	cfg.OAuth.RedirectPath = getenvDefault("APP_OAUTH_REDIRECT_PATH", "/auth/callback")
	cfg.OAuth.GroupsClaim = getenvDefault("APP_OAUTH_GROUPS_CLAIM", "groups")
	cfg.Session.Secret = os.Getenv("APP_SESSION_SECRET")
	cfg.PrometheusEnabled = getenvBool("APP_PROMETHEUS_ENDPOINT_ENABLED", false)
	cfg.TrustedProxies = getenvList("APP_TRUSTED_PROXIES")

	if cfg.APIUsers, err = parseAPIUsers(getenvList("APP_API_USERS")); err != nil {
		return nil, err
	}

	cfg.Calendar = DefaultCalendarLayout()
	if path := os.Getenv("APP_CALENDAR_FILE"); path != "" {
		if cfg.Calendar, err = LoadCalendarLayout(path); err != nil {
			return nil, err
		}
	}

	if cfg.HEN.BaseURL == "" {
		return nil, errors.New("APP_HEN_BASE_URL is required")
	}
	if cfg.OAuth.ClientID != "" && (cfg.OAuth.ClientSecret == "" || cfg.OAuth.IssuerURL == "") {
		return nil, errors.New("oauth configuration requires APP_OAUTH_CLIENT_SECRET and APP_OAUTH_ISSUER_URL")
	}
	if cfg.Session.Secret == "" {
		return nil, errors.New("APP_SESSION_SECRET is required")
	}
	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("APP_SESSION_SECRET must be at least 32 characters long (got %d)", len(cfg.Session.Secret))
	}

	if len(cfg.TrustedProxies) == 0 {
		log.Println("[WARN] No APP_TRUSTED_PROXIES configured. henboard will trust all proxies - Not recommended for public environments.")
	}

	return cfg, nil
}

// LoadCalendarLayout reads a YAML layout file on top of the defaults.
func LoadCalendarLayout(path string) (CalendarLayout, error) {
	layout := DefaultCalendarLayout()
	data, err := os.ReadFile(path)
	if err != nil {
		return layout, fmt.Errorf("read calendar layout: %w", err)
	}
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return layout, fmt.Errorf("parse calendar layout %s: %w", path, err)
	}
	if err := layout.Validate(); err != nil {
		return layout, fmt.Errorf("calendar layout %s: %w", path, err)
	}
	return layout, nil
}

// Validate checks the layout's numeric bounds and palette keys.
func (l CalendarLayout) Validate() error {
	if l.Columns < 2 {
		return fmt.Errorf("columns must be at least 2 (got %d)", l.Columns)
	}
	if l.ColumnWidth <= 0 || l.RowHeight <= 0 {
		return errors.New("column_width and row_height must be positive")
	}
	switch l.DefaultStep {
	case 1, 7, 30:
	default:
		return fmt.Errorf("default_step must be 1, 7 or 30 (got %d)", l.DefaultStep)
	}
	for _, attr := range []string{l.CellIndexAttr, l.LabelIDAttr} {
		if !validAttrName(attr) {
			return fmt.Errorf("invalid attribute name %q", attr)
		}
	}
	for k := range l.Palette {
		switch k {
		case "unallocated", "user", "shared", "other":
		default:
			return fmt.Errorf("unknown palette category %q", k)
		}
	}
	palette := calendar.Palette{}
	for k, v := range l.Palette {
		palette[calendar.Category(k)] = v
	}
	if err := calendar.DefaultPalette().Merge(palette).Validate(); err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	return nil
}

func validAttrName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func parseAPIUsers(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	users := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, hash, ok := strings.Cut(entry, ":")
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("APP_API_USERS entry %q must be user:bcrypt-hash", entry)
		}
		users[name] = hash
	}
	return users, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	// Bare numbers are seconds.
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return time.Duration(secs) * time.Second, nil
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}
