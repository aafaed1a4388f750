package fpga

import (
	"regexp"
	"strings"
)

// RoutingPrefix starts every routing segment instance name VPR emits.
const RoutingPrefix = "routing_segment"

var positionalSuffixRegexp = regexp.MustCompile(`_(?:output|input|clock)_\d+_\d+$`)

// CleanModuleName strips a positional pin suffix (_output_<n>_<m>,
// _input_<n>_<m>, _clock_<n>_<m>) and trailing underscores, recovering the
// instance name the pin belongs to.
func CleanModuleName(name string) string {
	name = positionalSuffixRegexp.ReplaceAllString(name, "")
	return strings.TrimRight(name, "_")
}

// PathInfo is a routing segment decoded from its instance name.
type PathInfo struct {
	From      string `json:"from"`
	To        string `json:"to"`
	FromClean string `json:"fromClean"`
	ToClean   string `json:"toClean"`
}

// ExtractPathInfo decodes routing_segment_<FROM>_to_<TO>. Because FROM and
// TO may contain a "to" token themselves, the split point is the first
// "to" that directly follows a positional output or clock suffix; without
// one the first "to" is used. Either side may come out empty when the "to"
// token opens or closes the name. ok is false only when there is no "to"
// token at all, and all fields are then empty.
func ExtractPathInfo(instance string) (info PathInfo, ok bool) {
	parts := strings.Split(instance, "_")

	split := -1
	for i := 2; i < len(parts); i++ {
		if parts[i] != "to" {
			continue
		}
		if split < 0 {
			split = i
		}
		if followsSourceSuffix(parts[2:i]) {
			split = i
			break
		}
	}
	if split < 0 {
		return PathInfo{}, false
	}

	from := strings.Join(parts[2:split], "_")
	to := strings.Join(parts[split+1:], "_")
	return PathInfo{
		From:      from,
		To:        to,
		FromClean: CleanModuleName(from),
		ToClean:   CleanModuleName(to),
	}, true
}

// followsSourceSuffix reports whether parts ends in output_<n>_<m> or
// clock_<n>_<m>.
func followsSourceSuffix(parts []string) bool {
	if len(parts) < 3 {
		return false
	}
	kind := parts[len(parts)-3]
	return (kind == "output" || kind == "clock") &&
		isDigits(parts[len(parts)-2]) && isDigits(parts[len(parts)-1])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
