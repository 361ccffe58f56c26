package bridge

import "github.com/typester/riverql/internal/state"

// Filter selects the events a subscription receives.
type Filter struct {
	// Kinds is the event kind allow-list. Empty allows every kind.
	Kinds map[state.Kind]bool
	// OutputName restricts delivery to events about one output. Empty
	// allows every output.
	OutputName string
}

// NewFilter builds a filter from an allow-list and optional output name.
func NewFilter(kinds []state.Kind, outputName string) Filter {
	f := Filter{OutputName: outputName}
	if len(kinds) > 0 {
		f.Kinds = make(map[state.Kind]bool, len(kinds))
		for _, k := range kinds {
			f.Kinds[k] = true
		}
	}
	return f
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev state.Event) bool {
	if len(f.Kinds) > 0 && !f.Kinds[ev.Kind] {
		return false
	}
	return f.OutputName == "" || ev.OutputName == f.OutputName
}
