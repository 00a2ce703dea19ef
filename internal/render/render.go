// Package render turns message keys into operator-facing text.
//
// Each catalog entry names the key below it on its escalation ladder, so an
// action can be rendered either as its own line or as the full escalation
// from the base alert up to the reached rung.
package render

import (
	"fmt"
	"sync"

	"github.com/solatis/alertkeeper/internal/engine"
	"github.com/solatis/alertkeeper/internal/rules"
)

// Fixed lines for outcomes without an action.
const (
	InvalidRecordText = "Invalid weather data."
	NoRuleMatchedText = "No strategy found for the given weather type."
)

// Entry is one catalog message.
type Entry struct {
	Text   string
	Parent string // key of the rung below; empty for base rungs
}

// Catalog maps message keys to text. Safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// Option configures a Catalog.
type Option func(*catalogOptions)

type catalogOptions struct {
	heatwaveThreshold int
}

// WithHeatwaveThreshold sets the temperature quoted by the critical heatwave
// text. It should match the heatwave rule's TemperatureAbove.
func WithHeatwaveThreshold(n int) Option {
	return func(o *catalogOptions) { o.heatwaveThreshold = n }
}

// NewCatalog returns a catalog holding the built-in storm and heatwave texts.
func NewCatalog(opts ...Option) *Catalog {
	o := catalogOptions{heatwaveThreshold: rules.DefaultHeatwaveConfig().TemperatureAbove}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Catalog{entries: make(map[string]Entry)}

	c.Set(rules.KeyStormAlert, Entry{Text: "Handling storm alert."})
	c.Set(rules.KeyStormHighSeverity, Entry{Text: "High severity storm detected.", Parent: rules.KeyStormAlert})
	c.Set(rules.KeyStormApproaching, Entry{Text: "Storm is approaching. Taking immediate actions.", Parent: rules.KeyStormHighSeverity})
	c.Set(rules.KeyStormHail, Entry{Text: "Hail detected. Handling hail-specific actions.", Parent: rules.KeyStormApproaching})

	c.Set(rules.KeyHeatwaveAlert, Entry{Text: "Handling heatwave alert."})
	c.Set(rules.KeyHeatwaveCriticalTemperature, Entry{
		Text:   fmt.Sprintf("Critical heatwave conditions with temperature over %d.", o.heatwaveThreshold),
		Parent: rules.KeyHeatwaveAlert,
	})
	c.Set(rules.KeyHeatwaveHighHumidity, Entry{Text: "High humidity encountered during heatwave. Taking additional precautions.", Parent: rules.KeyHeatwaveCriticalTemperature})

	return c
}

// Set adds or replaces the entry for key.
func (c *Catalog) Set(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Text returns the text for key, or the key itself when unknown.
func (c *Catalog) Text(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok && e.Text != "" {
		return e.Text
	}
	return key
}

// Escalation returns the lines from the base rung up to key.
func (c *Catalog) Escalation(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var chain []string
	seen := make(map[string]bool)
	for k := key; k != "" && !seen[k]; {
		seen[k] = true
		e, ok := c.entries[k]
		if !ok || e.Text == "" {
			chain = append(chain, k)
			break
		}
		chain = append(chain, e.Text)
		k = e.Parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Lines renders an outcome as console lines.
func (c *Catalog) Lines(out engine.Outcome) []string {
	switch out.Kind {
	case engine.Rejected:
		return []string{InvalidRecordText}
	case engine.Unmatched:
		return []string{NoRuleMatchedText}
	default:
		return c.Escalation(out.Action.MessageKey)
	}
}
