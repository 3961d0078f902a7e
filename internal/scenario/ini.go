package scenario

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// INI implements a koanf.Parser for RDR .config files.
// Section and key names are lower-cased; values are kept as raw strings
// so that blank entries survive until schema validation.
type INI struct{}

// Parser returns an INI parser.
func Parser() *INI {
	return &INI{}
}

// Unmarshal parses INI bytes into a map of section -> key -> value.
// Keys outside any section are kept under "default". A trailing backslash
// is part of the value, as in Windows directory paths.
func (p *INI) Unmarshal(b []byte) (map[string]interface{}, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         true,
		IgnoreInlineComment: true,
		IgnoreContinuation:  true,
	}, b)
	if err != nil {
		return nil, fmt.Errorf("parse ini: %w", err)
	}

	out := make(map[string]interface{})
	for _, sec := range f.Sections() {
		keys := sec.Keys()
		if len(keys) == 0 {
			continue
		}
		name := strings.ToLower(sec.Name())
		m := make(map[string]interface{}, len(keys))
		for _, key := range keys {
			m[strings.ToLower(key.Name())] = strings.TrimSpace(unquote(key.Value()))
		}
		out[name] = m
	}
	return out, nil
}

// Marshal writes a section -> key -> value map back out as INI.
func (p *INI) Marshal(o map[string]interface{}) ([]byte, error) {
	f := ini.Empty()
	for secName, v := range o {
		keys, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("section %q: expected a map of keys, got %T", secName, v)
		}
		sec, err := f.NewSection(secName)
		if err != nil {
			return nil, err
		}
		for key, val := range keys {
			if _, err := sec.NewKey(key, fmt.Sprint(val)); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unquote strips one pair of matching surrounding quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
