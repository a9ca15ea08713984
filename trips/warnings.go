package trips

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Warning is an annotation attached to an output row.
type Warning string

// Warning codes
const (
	// verification
	WarningOriginEqualsDestination Warning = "origin_equals_destination"
	WarningMissingCity             Warning = "missing_city"

	// distance
	WarningUnresolvedEndpoint  Warning = "unresolved_endpoint"
	WarningGeocodingFailed     Warning = "geocoding_failed"
	WarningRoutingFailed       Warning = "routing_failed"
	WarningRoutingSkipped      Warning = "routing_skipped"
	WarningShorterThanCrowLine Warning = "route_shorter_than_crow_flight"
)

// warningInfo holds aggregated information about a specific warning type
type warningInfo struct {
	count    int
	examples []string
}

// WarningAggregator collects warnings during a stage and outputs consolidated
// summaries instead of one log line per row.
type WarningAggregator struct {
	warnings map[Warning]*warningInfo
}

// NewWarningAggregator creates a new warning aggregator
func NewWarningAggregator() *WarningAggregator {
	return &WarningAggregator{
		warnings: make(map[Warning]*warningInfo),
	}
}

// Add records a warning occurrence with an example identifier
func (w *WarningAggregator) Add(warning Warning, example string) {
	if w.warnings[warning] == nil {
		w.warnings[warning] = &warningInfo{
			examples: make([]string, 0, 3),
		}
	}

	info := w.warnings[warning]
	info.count++

	// Store up to 3 distinct examples
	if len(info.examples) < 3 {
		for _, e := range info.examples {
			if e == example {
				return
			}
		}
		info.examples = append(info.examples, example)
	}
}

// Count returns the number of occurrences of a warning.
func (w *WarningAggregator) Count(warning Warning) int {
	if info := w.warnings[warning]; info != nil {
		return info.count
	}
	return 0
}

// Total returns the number of occurrences of all warnings.
func (w *WarningAggregator) Total() int {
	n := 0
	for _, info := range w.warnings {
		n += info.count
	}
	return n
}

// LogAll outputs all collected warnings, one line per warning type.
func (w *WarningAggregator) LogAll(logger *slog.Logger, stage, event string) {
	if len(w.warnings) == 0 {
		return
	}

	keys := make([]Warning, 0, len(w.warnings))
	for k := range w.warnings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, warning := range keys {
		info := w.warnings[warning]
		logger.Warn(w.formatWarningMessage(warning, stage, event, info),
			"warning", string(warning), "count", info.count)
	}
}

// formatWarningMessage creates a human-readable warning message
func (w *WarningAggregator) formatWarningMessage(warning Warning, stage, event string, info *warningInfo) string {
	var description, action string

	switch warning {
	case WarningOriginEqualsDestination:
		description = "legs whose origin and destination normalize to the same city"
		action = "Keeping the rows for manual audit"
	case WarningMissingCity:
		description = "legs with an empty or 'not found' city"
		action = "Keeping the rows without route identity"
	case WarningUnresolvedEndpoint:
		description = "routes with an endpoint that could not be geocoded"
		action = "Leaving distance fields empty, pin the city to fix"
	case WarningGeocodingFailed:
		description = "routes with an endpoint the geocoding service failed to answer for"
		action = "Leaving distance fields empty, will retry on next run"
	case WarningRoutingFailed:
		description = "routes where the routing service failed"
		action = "Leaving distance fields empty, will retry on next run"
	case WarningRoutingSkipped:
		description = "routes not sent to the routing service (offline or after repeated failures)"
		action = "Leaving distance fields empty, will retry on next run"
	case WarningShorterThanCrowLine:
		description = "routes shorter than the straight-line distance"
		action = "Keeping the routed figures, check the geocoded endpoints"
	default:
		description = "unknown issue"
		action = "Keeping the rows unchanged"
	}

	return fmt.Sprintf("Stage %s for event %s has %s (%d occurrences). %s. Examples: %s",
		stage, event, description, info.count, action, strings.Join(info.examples, ", "))
}
