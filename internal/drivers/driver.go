package drivers

import "strings"

// ID identifies a database driver implementation, e.g. "postgres".
type ID string

// Normalize lower-cases and trims an identifier so lookups are case-insensitive.
func Normalize(raw string) ID {
	return ID(strings.ToLower(strings.TrimSpace(raw)))
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Descriptor is the fixed capability record published for a driver.
type Descriptor struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
	// SupportsClient reports whether the driver exposes a long-lived connection client
	// (used for multi-statement transactions and session state).
	SupportsClient bool `json:"supportsConnectionClient"`
	// Asynchronous drivers submit queries and poll for results.
	Asynchronous bool     `json:"isAsynchronous"`
	Aliases      []string `json:"aliases,omitempty"`
	SortOrder    int      `json:"-"`
}

// Resolution is the outcome of resolving a driver identifier against a registry.
// Unknown drivers resolve to a zero-capability descriptor with Known=false.
type Resolution struct {
	Descriptor
	Known bool `json:"known"`
}

func (d Descriptor) clone() Descriptor {
	if d.Aliases != nil {
		d.Aliases = append([]string(nil), d.Aliases...)
	}
	return d
}
