// Package catalog holds the static campaign content: message bodies,
// button layouts, the follow-up timeline and fixed reply texts. The data
// is compiled into the binary and validated once at startup.
package catalog

import (
	"embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogFS embed.FS

// Button is one inline button. Exactly one of Token or URL is set:
// Token buttons report a click back to the bot, URL buttons open a link.
type Button struct {
	Label string `yaml:"label"`
	Token string `yaml:"token,omitempty"`
	URL   string `yaml:"url,omitempty"`
}

// MessageSpec is everything needed to render one campaign message.
type MessageSpec struct {
	Body    string     `yaml:"body"`
	Buttons [][]Button `yaml:"buttons,omitempty"`
}

// TimelineEntry schedules one follow-up message relative to /start.
type TimelineEntry struct {
	DelaySec int    `yaml:"delay"`
	Key      string `yaml:"key"`
}

// Delay returns the entry's offset as a duration.
func (e TimelineEntry) Delay() time.Duration {
	return time.Duration(e.DelaySec) * time.Second
}

// Catalog is the full immutable content bundle.
type Catalog struct {
	WelcomeKey   string                 `yaml:"welcome_key"`
	Messages     map[string]MessageSpec `yaml:"messages"`
	Timeline     []TimelineEntry        `yaml:"timeline"`
	TokenReplies map[string]string      `yaml:"token_replies"`
	ClickLabels  map[string]string      `yaml:"click_labels"`
}

// Load reads and validates the embedded catalog.
func Load() (*Catalog, error) {
	data, err := catalogFS.ReadFile("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document and checks its internal references.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

// Message returns the spec for a key, or false when the key is unknown.
func (c *Catalog) Message(key string) (MessageSpec, bool) {
	spec, ok := c.Messages[key]
	return spec, ok
}

func (c *Catalog) validate() error {
	if c.WelcomeKey == "" {
		return fmt.Errorf("welcome_key is empty")
	}
	if _, ok := c.Messages[c.WelcomeKey]; !ok {
		return fmt.Errorf("welcome_key %q has no message", c.WelcomeKey)
	}
	for i, e := range c.Timeline {
		if e.DelaySec <= 0 {
			return fmt.Errorf("timeline[%d]: delay must be positive, got %d", i, e.DelaySec)
		}
		if _, ok := c.Messages[e.Key]; !ok {
			return fmt.Errorf("timeline[%d]: key %q has no message", i, e.Key)
		}
	}
	for key, spec := range c.Messages {
		if spec.Body == "" {
			return fmt.Errorf("message %q: empty body", key)
		}
		for _, row := range spec.Buttons {
			for _, b := range row {
				if b.Label == "" {
					return fmt.Errorf("message %q: button without label", key)
				}
				if (b.Token == "") == (b.URL == "") {
					return fmt.Errorf("message %q: button %q must set exactly one of token or url", key, b.Label)
				}
			}
		}
	}
	return nil
}
