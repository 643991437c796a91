// Package settings decodes the opaque "[settings]" INI block carried
// verbatim in a calendar event's description (spec.md §4.2, §9) into a
// typed Settings struct, preserving unknown keys in a catch-all map for
// round-trip fidelity.
package settings

import (
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Settings is the decoded shape of the "[settings]" block.
type Settings struct {
	Type         string // "playlist" | "command" | "sequence"
	Enabled      bool
	StopType     int
	Repeat       int
	Start        string // symbolic token name, or empty
	End          string
	StartOffset  int // minutes
	EndOffset    int
	CommandArgs  map[string]string

	// Extra preserves any key not recognized above, verbatim, so a
	// round-trip through Parse/Encode never drops provider data.
	Extra map[string]string
}

const sectionName = "settings"

// Parse extracts and decodes the opaque [settings] INI block from a
// calendar event's description. If no such block is present, Parse returns
// a zero-value Settings and ok=false (the normalizer then falls back to
// summary-derived defaults per spec.md §4.4).
func Parse(description string) (Settings, bool, error) {
	idx := strings.Index(description, "[settings]")
	if idx < 0 {
		return Settings{}, false, nil
	}
	block := description[idx:]

	f, err := ini.Load([]byte(block))
	if err != nil {
		return Settings{}, false, err
	}
	sec, err := f.GetSection(sectionName)
	if err != nil {
		return Settings{}, false, err
	}

	out := Settings{
		CommandArgs: map[string]string{},
		Extra:       map[string]string{},
	}
	known := map[string]bool{
		"type": true, "enabled": true, "stoptype": true, "repeat": true,
		"start": true, "end": true, "start_offset": true, "end_offset": true,
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "type":
			out.Type = key.Value()
		case "enabled":
			out.Enabled, _ = strconv.ParseBool(key.Value())
		case "stoptype":
			out.StopType, _ = strconv.Atoi(key.Value())
		case "repeat":
			out.Repeat, _ = strconv.Atoi(key.Value())
		case "start":
			out.Start = key.Value()
		case "end":
			out.End = key.Value()
		case "start_offset":
			out.StartOffset, _ = strconv.Atoi(key.Value())
		case "end_offset":
			out.EndOffset, _ = strconv.Atoi(key.Value())
		default:
			if strings.HasPrefix(name, "arg_") {
				out.CommandArgs[strings.TrimPrefix(name, "arg_")] = key.Value()
			} else if !known[name] {
				out.Extra[key.Name()] = key.Value()
			}
		}
	}

	return out, true, nil
}

// Encode renders Settings back to an opaque "[settings]\n..." INI block,
// preserving Extra keys verbatim, for mirroring into a calendar event
// description on Apply->Calendar (spec.md §4.9).
func Encode(s Settings) string {
	f := ini.Empty()
	sec, _ := f.NewSection(sectionName)
	_, _ = sec.NewKey("type", s.Type)
	_, _ = sec.NewKey("enabled", strconv.FormatBool(s.Enabled))
	_, _ = sec.NewKey("stopType", strconv.Itoa(s.StopType))
	_, _ = sec.NewKey("repeat", strconv.Itoa(s.Repeat))
	if s.Start != "" {
		_, _ = sec.NewKey("start", s.Start)
	}
	if s.End != "" {
		_, _ = sec.NewKey("end", s.End)
	}
	if s.StartOffset != 0 {
		_, _ = sec.NewKey("start_offset", strconv.Itoa(s.StartOffset))
	}
	if s.EndOffset != 0 {
		_, _ = sec.NewKey("end_offset", strconv.Itoa(s.EndOffset))
	}
	for k, v := range s.CommandArgs {
		_, _ = sec.NewKey("arg_"+k, v)
	}
	for k, v := range s.Extra {
		_, _ = sec.NewKey(k, v)
	}

	var b strings.Builder
	_, _ = f.WriteTo(&b)
	return b.String()
}
