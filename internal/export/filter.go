package export

import "sort"

// ExcludedMeasurements are never exported
var ExcludedMeasurements = map[string]struct{}{
	"%":          {},
	"DemoPoint":  {},
	"DeviceSync": {},
}

// IsExcluded reports whether a measurement is in the exclusion set
func IsExcluded(name string) bool {
	_, ok := ExcludedMeasurements[name]
	return ok
}

// FilterMeasurements drops excluded names, keeping the input order
func FilterMeasurements(names []string) []string {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if IsExcluded(name) {
			continue
		}
		kept = append(kept, name)
	}
	return kept
}

// excludedList returns the exclusion set sorted, for progress output
func excludedList() []string {
	list := make([]string, 0, len(ExcludedMeasurements))
	for name := range ExcludedMeasurements {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}
