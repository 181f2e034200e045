package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JakeFAU/markercheck/internal/checker"
)

var (
	validTag       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
	attributeParts = regexp.MustCompile(`^\s*([A-Za-z_:][A-Za-z0-9_:.-]*)\s*=\s*(?:"([^"]*)"|'([^']*)')\s*$`)
)

// Pattern extracts the inner text of the first <tag ... attr="value" ...>
// element, up to the first </tag> that follows it. The attribute may appear
// anywhere among the tag's attributes and in either quote style.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern compiles the pattern for tag and an attribute written as
// name="value".
func NewPattern(tag, attribute string) (*Pattern, error) {
	if !validTag.MatchString(tag) {
		return nil, fmt.Errorf("invalid tag %q", tag)
	}
	parts := attributeParts.FindStringSubmatch(attribute)
	if parts == nil {
		return nil, fmt.Errorf("invalid attribute %q: want name=\"value\"", attribute)
	}
	name, value := parts[1], parts[2]
	if value == "" {
		value = parts[3]
	}
	t := regexp.QuoteMeta(tag)
	v := regexp.QuoteMeta(value)
	expr := `(?is)<` + t + `\b[^>]*?\s` + regexp.QuoteMeta(name) +
		`\s*=\s*(?:"` + v + `"|'` + v + `')[^>]*>(.*?)</` + t + `\s*>`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern for <%s %s>: %w", tag, attribute, err)
	}
	return &Pattern{re: re}, nil
}

// Extract returns the trimmed fragment and whether it contains marker
// (case-sensitive).
func (p *Pattern) Extract(body []byte, marker string) checker.ExtractionResult {
	m := p.re.FindSubmatch(body)
	if m == nil {
		return classify("", false, marker)
	}
	return classify(string(m[1]), true, marker)
}

// String returns the compiled expression.
func (p *Pattern) String() string {
	return strings.TrimPrefix(p.re.String(), "(?is)")
}
