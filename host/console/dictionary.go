package console

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Dictionary is the parsed identify data of a device
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// ParseDictionary decodes identify data
func ParseDictionary(data []byte) (*Dictionary, error) {
	d := &Dictionary{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dictionary: %w", err)
	}
	return d, nil
}

// CommandID returns the ID of a command by bare name
func (d *Dictionary) CommandID(name string) (uint16, bool) {
	return lookupName(d.Commands, name)
}

// ResponseID returns the ID of a response by bare name
func (d *Dictionary) ResponseID(name string) (uint16, bool) {
	return lookupName(d.Responses, name)
}

// CommandNames returns the bare command names, sorted
func (d *Dictionary) CommandNames() []string {
	names := make([]string, 0, len(d.Commands))
	for _, key := range maps.Keys(d.Commands) {
		names = append(names, bareName(key))
	}
	slices.Sort(names)
	return names
}

// Format returns the argument format of a command, e.g. "pin=%c value=%c"
func (d *Dictionary) Format(name string) (string, bool) {
	for key := range d.Commands {
		if bareName(key) == name {
			_, format, _ := strings.Cut(key, " ")
			return format, true
		}
	}
	return "", false
}

// lookupName matches keys of the form "name" or "name args..."
func lookupName(m map[string]int, name string) (uint16, bool) {
	for key, id := range m {
		if bareName(key) == name {
			return uint16(id), true
		}
	}
	return 0, false
}

func bareName(key string) string {
	name, _, _ := strings.Cut(key, " ")
	return name
}
