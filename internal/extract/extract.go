// Package extract locates the designated fragment in a response body and
// classifies it against the expected marker.
//
// Two strategies are available. The pattern strategy is a narrow match on an
// opening tag carrying a known attribute, ending at the first closing tag of
// the same kind. The selector strategy runs a CSS selector over a parsed
// document for targets whose markup does not fit a single pattern.
package extract

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/markercheck/internal/checker"
)

// Mode selects the extraction strategy.
type Mode string

// Supported modes.
const (
	ModePattern  Mode = "pattern"
	ModeSelector Mode = "selector"
)

// Defaults describe the welcome heading of the login page.
const (
	DefaultTag       = "h3"
	DefaultAttribute = `class="mb-1 text-center"`
	DefaultSelector  = "h3.mb-1.text-center"
)

// Config controls which fragment is extracted.
type Config struct {
	Mode      Mode
	Tag       string
	Attribute string
	Selector  string
}

// New builds the extractor for cfg.Mode.
func New(cfg Config) (checker.Extractor, error) {
	switch cfg.Mode {
	case "", ModePattern:
		tag := cfg.Tag
		if tag == "" {
			tag = DefaultTag
		}
		attr := cfg.Attribute
		if attr == "" {
			attr = DefaultAttribute
		}
		return NewPattern(tag, attr)
	case ModeSelector:
		sel := cfg.Selector
		if sel == "" {
			sel = DefaultSelector
		}
		return NewSelector(sel), nil
	default:
		return nil, fmt.Errorf("unknown extract mode %q", cfg.Mode)
	}
}

func classify(fragment string, found bool, marker string) checker.ExtractionResult {
	if !found {
		return checker.ExtractionResult{Fragment: checker.NotFound}
	}
	fragment = strings.TrimSpace(fragment)
	return checker.ExtractionResult{
		Fragment: fragment,
		Matched:  strings.Contains(fragment, marker),
	}
}
