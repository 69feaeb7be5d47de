package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrCreatedDefault is returned by Load when no config file existed and a
// default one was written. The caller is expected to treat this as a
// distinct startup condition: tell the operator to edit the file (at the
// very least the admin password and participant list) and exit, rather
// than serving with placeholder credentials.
var ErrCreatedDefault = errors.New("config: created default config file, please edit it")

// EmailConfig holds SMTP settings for submission notifications. An empty
// Host disables email entirely.
type EmailConfig struct {
	Host       string   `yaml:"host" json:"host"`
	Port       int      `yaml:"port" json:"port"`
	Username   string   `yaml:"username" json:"username"`
	Password   string   `yaml:"password" json:"password"`
	Sender     string   `yaml:"sender" json:"sender"`
	Recipients []string `yaml:"recipients" json:"recipients"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the web UI.
	Listen string `yaml:"listen" json:"listen"`

	// Event is the display name of the event this instance serves.
	Event string `yaml:"event" json:"event"`

	// ContactEmail is shown to submitters on forms and error pages.
	ContactEmail string `yaml:"contact_email" json:"contact_email"`

	// ParticipantsEmails is the allow-list of addresses that may submit
	// a contribution. Matched case-insensitively.
	ParticipantsEmails []string `yaml:"participants_emails" json:"participants_emails"`

	// AdminPassword gates the scheduling interface.
	AdminPassword string `yaml:"admin_password" json:"admin_password"`

	// DataDir is where the database, its backups, the audit log and the
	// preview image live.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Timezone is the IANA timezone used for "what's next" defaults and
	// the iCalendar export (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// MaxLevel1 caps the number of level-1 categories (days) of the plan.
	MaxLevel1 int `yaml:"max_level1" json:"max_level1"`

	// SlotMinutes is the assumed session length for the iCalendar export.
	SlotMinutes int `yaml:"slot_minutes" json:"slot_minutes"`

	// EventDates maps level-1 categories to calendar dates ("2006-01-02"),
	// in axis order. Categories without a date are skipped by the
	// iCalendar export.
	EventDates []string `yaml:"event_dates" json:"event_dates"`

	// PreviewRefresh is a cron expression for regenerating the slotplan
	// PNG preview. Empty disables the periodic capture.
	PreviewRefresh string `yaml:"preview_refresh" json:"preview_refresh"`

	// MaxBackups limits how many timestamped database backups are kept.
	// 0 keeps all of them.
	MaxBackups int `yaml:"max_backups" json:"max_backups"`

	// Email configures submission notifications.
	Email EmailConfig `yaml:"email" json:"email"`
}

// DefaultConfig returns the configuration written on first run. The
// placeholder values are deliberately unusable so that a forgotten edit
// shows up immediately.
func DefaultConfig() *Config {
	return &Config{
		Listen:             "127.0.0.1:8311",
		Event:              "Some Event",
		ContactEmail:       "contact@domain",
		ParticipantsEmails: []string{"participant_1@domain"},
		AdminPassword:      "admin",
		DataDir:            "./data",
		Timezone:           "Europe/Berlin",
		MaxLevel1:          3,
		SlotMinutes:        45,
		EventDates:         []string{},
		PreviewRefresh:     "*/15 * * * *",
		MaxBackups:         0,
		Email: EmailConfig{
			Port:       587,
			Sender:     "contact@domain",
			Recipients: []string{"organiser@domain"},
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8311"
	}
	if c.Event == "" {
		c.Event = "Some Event"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	if c.MaxLevel1 <= 0 {
		c.MaxLevel1 = 3
	}
	if c.SlotMinutes <= 0 {
		c.SlotMinutes = 45
	}
	if c.MaxBackups < 0 {
		c.MaxBackups = 0
	}
	if c.ParticipantsEmails == nil {
		c.ParticipantsEmails = []string{}
	}
	if c.EventDates == nil {
		c.EventDates = []string{}
	}
	if c.Email.Port <= 0 {
		c.Email.Port = 587
	}
	if c.Email.Recipients == nil {
		c.Email.Recipients = []string{}
	}
}

// Validate rejects configurations the server cannot safely start with.
func (c *Config) Validate() error {
	if c.AdminPassword == "" {
		return errors.New("config: admin_password must not be empty")
	}
	if len(c.ParticipantsEmails) == 0 {
		return errors.New("config: participants_emails must list at least one address")
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written (0600, parent
// directory created as needed) and ErrCreatedDefault is returned together
// with the default config.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if serr := Save(path, cfg); serr != nil {
				return nil, fmt.Errorf("config: writing default config: %w", serr)
			}
			return cfg, fmt.Errorf("%w: %s", ErrCreatedDefault, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".slotplan-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
