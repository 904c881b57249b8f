package script

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"gopkg.in/yaml.v3"

	"github.com/waftester/crawlscan/pkg/finding"
	"github.com/waftester/crawlscan/pkg/match"
)

// Format is the encoding of a script file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatOf picks the format from a file name. Anything that is not .yaml
// or .yml is read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// header holds the fields shared by every script category.
type header struct {
	Name        string       `json:"name" yaml:"name"`
	Find        string       `json:"find" yaml:"find"`
	RunAt       string       `json:"run_at" yaml:"run_at"`
	Request     looseString  `json:"request" yaml:"request"`
	Severity    string       `json:"severity" yaml:"severity"`
	Description string       `json:"description" yaml:"description"`
	Matches     []match.Spec `json:"matches" yaml:"matches"`
}

// The data member is decoded in a second pass once the category is known.
type jsonData struct {
	Data jsontext.Value `json:"data"`
}

type yamlData struct {
	Data yaml.Node `yaml:"data"`
}

// Parse decodes and validates one script. source is recorded on the script
// and used in error messages.
func Parse(data []byte, format Format, source string) (*Script, error) {
	var (
		h          header
		decodeData func(v any) error
	)

	switch format {
	case FormatYAML:
		var doc yamlData
		if err := yaml.Unmarshal(data, &h); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScript, source, err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScript, source, err)
		}
		decodeData = func(v any) error {
			if doc.Data.Kind == 0 {
				return nil
			}
			return doc.Data.Decode(v)
		}
	default:
		var doc jsonData
		data = bytes.TrimSpace(data)
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScript, source, err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScript, source, err)
		}
		decodeData = func(v any) error {
			if len(doc.Data) == 0 || doc.Data.Kind() == 'n' {
				return nil
			}
			return json.Unmarshal(doc.Data, v)
		}
	}

	return build(h, decodeData, source)
}

func build(h header, decodeData func(v any) error, source string) (*Script, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidScript, source, fmt.Sprintf(format, args...))
	}

	name := strings.TrimSpace(h.Name)
	if name == "" {
		return nil, invalid("missing name")
	}
	if len(h.Matches) == 0 {
		return nil, invalid("%s has no matches", name)
	}

	s := &Script{
		Name:        name,
		Description: h.Description,
		Source:      source,
	}

	switch FindPolicy(strings.ToLower(strings.TrimSpace(h.Find))) {
	case FindOnce:
		s.Find = FindOnce
	case FindAlways, "":
		s.Find = FindAlways
	default:
		return nil, invalid("%s: unknown find policy %q", name, h.Find)
	}

	sev, err := finding.ParseSeverity(h.Severity)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScript, source, err)
	}
	s.Severity = sev

	runAt := strings.ToLower(strings.TrimSpace(h.RunAt))
	switch {
	case h.Request != "":
		s.Category = finding.Active
		if s.Inject, err = ParseInjectType(string(h.Request)); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", source, name, err)
		}
		var d InjectionData
		if err := decodeData(&d); err != nil {
			return nil, invalid("%s: data: %v", name, err)
		}
		if d.Value == "" {
			return nil, invalid("%s: active script needs data.inject_value", name)
		}
		if d.Mode != "" && !strings.EqualFold(d.Mode, ModeAppend) && !strings.EqualFold(d.Mode, ModeReplace) {
			return nil, invalid("%s: unknown injection mode %q", name, d.Mode)
		}
		s.Injection = &d
	case runAt == "response":
		s.Category = finding.Passive
	case runAt == "fs":
		s.Category = finding.Filesystem
		var d ProbeData
		if err := decodeData(&d); err != nil {
			return nil, invalid("%s: data: %v", name, err)
		}
		if strings.TrimSpace(d.URL) == "" {
			return nil, invalid("%s: filesystem probe needs data.url", name)
		}
		s.Probe = &d
	default:
		return nil, fmt.Errorf("%w: %s: %s has run_at %q and no request", ErrUnknownCategory, source, name, h.RunAt)
	}

	for i, spec := range h.Matches {
		if spec.Name == "" {
			spec.Name = name
		}
		m, err := match.Compile(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s: matches[%d]: %w", ErrInvalidScript, source, name, i, err)
		}
		s.Matchers = append(s.Matchers, m)
	}
	return s, nil
}

// looseString accepts a string, null or false. Older scripts write
// "request": false for scripts that issue no request of their own.
type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	switch v := strings.TrimSpace(string(b)); v {
	case "null", "false", `""`:
		*l = ""
		return nil
	case "true":
		return fmt.Errorf("request must name an injection type")
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*l = looseString(strings.TrimSpace(s))
	return nil
}

func (l *looseString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("request must be a string at line %d", node.Line)
	}
	switch node.Tag {
	case "!!null":
		*l = ""
		return nil
	case "!!bool":
		if strings.EqualFold(node.Value, "false") {
			*l = ""
			return nil
		}
		return fmt.Errorf("request must name an injection type at line %d", node.Line)
	}
	*l = looseString(strings.TrimSpace(node.Value))
	return nil
}
