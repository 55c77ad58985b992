package core

import "sync"

// Dictionary describes the firmware to the host: protocol version, constants
// such as the MCU and clock, the command and response IDs and enumerations.
// It is served as JSON in chunks by the identify command.
type Dictionary struct {
	mu            sync.RWMutex
	registry      *CommandRegistry
	version       string
	buildVersions string
	constants     map[string]string
	enumerations  map[string][]string
	cached        []byte
}

// NewDictionary creates a dictionary over registry
func NewDictionary(registry *CommandRegistry, version string) *Dictionary {
	return &Dictionary{
		registry:      registry,
		version:       version,
		buildVersions: "go-tinygo",
		constants:     make(map[string]string),
		enumerations:  make(map[string][]string),
	}
}

// AddConstant records a named constant. Numbers are stored in decimal.
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = valueToString(value)
	d.cached = nil
}

// AddEnumeration records the value names of an enumerated argument, in value order
func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enumerations[name] = append([]string(nil), values...)
	d.cached = nil
}

// Build renders and caches the JSON. Call after all commands are registered.
func (d *Dictionary) Build() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = d.render()
}

// Generate returns the JSON, rendering it if Build has not been called
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cached
	d.mu.RUnlock()
	if cached != nil {
		return cached
	}
	d.Build()
	return d.Generate()
}

// GetChunk returns up to count bytes of the JSON starting at offset
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	return data[offset:end]
}

// render must be called with mu held
func (d *Dictionary) render() []byte {
	out := make([]byte, 0, 1024)
	out = append(out, `{"version":`...)
	out = append(out, quote(d.version)...)
	out = append(out, `,"build_versions":`...)
	out = append(out, quote(d.buildVersions)...)

	out = append(out, `,"config":{`...)
	for i, name := range sortedKeys(d.constants) {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, quote(name)...)
		out = append(out, ':')
		out = append(out, quote(d.constants[name])...)
	}

	var commands, responses []byte
	for _, c := range d.registry.Entries() {
		key := c.Name
		if c.Format != "" {
			key += " " + c.Format
		}
		entry := quote(key) + ":" + itoa(int(c.ID))
		if c.IsResponse() {
			if len(responses) > 0 {
				responses = append(responses, ',')
			}
			responses = append(responses, entry...)
		} else {
			if len(commands) > 0 {
				commands = append(commands, ',')
			}
			commands = append(commands, entry...)
		}
	}
	out = append(out, `},"commands":{`...)
	out = append(out, commands...)
	out = append(out, `},"responses":{`...)
	out = append(out, responses...)

	out = append(out, `},"enumerations":{`...)
	for i, name := range sortedKeys(d.enumerations) {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, quote(name)...)
		out = append(out, `:{`...)
		for v, label := range d.enumerations[name] {
			if v > 0 {
				out = append(out, ',')
			}
			out = append(out, quote(label)...)
			out = append(out, ':')
			out = append(out, itoa(v)...)
		}
		out = append(out, '}')
	}
	return append(out, `}}`...)
}

// sortedKeys returns the keys of m in ascending order. Insertion sort keeps
// sort and reflection out of the firmware image.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// valueToString renders the constant types the firmware registers
func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return itoa(val)
	case int32:
		return itoa64(int64(val))
	case int64:
		return itoa64(val)
	case uint8:
		return itoa(int(val))
	case uint16:
		return itoa64(int64(val))
	case uint32:
		return utoa(val)
	}
	return ""
}
