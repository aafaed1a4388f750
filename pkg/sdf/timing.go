package sdf

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/diag"
)

// Range is the min:typ:max form of a delay. Unparseable parts are nil.
type Range struct {
	Min     *float64 `json:"min"`
	Typical *float64 `json:"typical"`
	Max     *float64 `json:"max"`
}

// Delay is a rise/fall delay pair in the SDF timescale (picoseconds for the
// supported toolchain). When the SDF gives min:typ:max triplets, Rise and Fall
// hold the typical values and the full triplets are kept in the ranges.
type Delay struct {
	Rise      float64 `json:"rise"`
	Fall      float64 `json:"fall"`
	Avg       float64 `json:"avg"`
	RiseRange *Range  `json:"riseRange,omitempty"`
	FallRange *Range  `json:"fallRange,omitempty"`
}

// Max returns the larger of the rise and fall delays, using the max part of
// triplets when present.
func (d Delay) Max() float64 {
	rise, fall := d.Rise, d.Fall
	if d.RiseRange != nil && d.RiseRange.Max != nil {
		rise = *d.RiseRange.Max
	}
	if d.FallRange != nil && d.FallRange.Max != nil {
		fall = *d.FallRange.Max
	}
	if fall > rise {
		return fall
	}
	return rise
}

// CellTiming holds the pin-to-pin delays of one SDF cell instance.
type CellTiming struct {
	Type   string           `json:"type"`
	Delays map[string]Delay `json:"delays"` // "pin->pin" → delay
	Order  []string         `json:"-"`      // keys in declaration order
}

// NewCellTiming creates an empty CellTiming of the given cell type.
func NewCellTiming(cellType string) *CellTiming {
	return &CellTiming{Type: cellType, Delays: map[string]Delay{}}
}

// Set records a delay, keeping the first declaration position of key.
func (c *CellTiming) Set(key string, d Delay) {
	if _, exists := c.Delays[key]; !exists {
		c.Order = append(c.Order, key)
	}
	c.Delays[key] = d
}

// Keys returns the delay keys in declaration order. Values built without
// Set fall back to sorted order.
func (c *CellTiming) Keys() []string {
	if len(c.Order) == len(c.Delays) {
		return c.Order
	}
	keys := make([]string, 0, len(c.Delays))
	for k := range c.Delays {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TimingModel is the flat, lookup-oriented view of an SDF file.
type TimingModel struct {
	Version string                 `json:"version"`
	Design  string                 `json:"design"`
	Date    string                 `json:"date"`
	Vendor  string                 `json:"vendor"`
	Cells   map[string]*CellTiming `json:"cells"` // instance → timing
	Nets    map[string]Delay       `json:"nets"`  // "from->to" → delay
}

// NewTimingModel returns an empty model.
func NewTimingModel() *TimingModel {
	return &TimingModel{
		Cells: map[string]*CellTiming{},
		Nets:  map[string]Delay{},
	}
}

// Lookup returns the delay stored under instance and key.
func (m *TimingModel) Lookup(instance, key string) (Delay, bool) {
	if m == nil {
		return Delay{}, false
	}
	cell, ok := m.Cells[instance]
	if !ok {
		return Delay{}, false
	}
	d, ok := cell.Delays[key]
	return d, ok
}

// MarshalJSON keeps the renderer contract of always present maps.
func (m *TimingModel) MarshalJSON() ([]byte, error) {
	type model TimingModel
	out := model(*m)
	if out.Cells == nil {
		out.Cells = map[string]*CellTiming{}
	}
	if out.Nets == nil {
		out.Nets = map[string]Delay{}
	}
	return json.Marshal(out)
}

var (
	delayFileHeaderRegexp = regexp.MustCompile(
		`\(DELAYFILE\s*` +
			`(?:\(SDFVERSION\s*"([^"]*)"\s*\)\s*)?` +
			`(?:\(DESIGN\s*"([^"]*)"\s*\)\s*)?` +
			`(?:\(DATE\s*"([^"]*)"\s*\)\s*)?` +
			`(?:\(VENDOR\s*"([^"]*)"\s*\)\s*)?`)

	cellHeaderRegexp = regexp.MustCompile(
		`\(CELL\s*\(CELLTYPE\s*"([^"]*)"\s*\)\s*\(INSTANCE\s*([^()]*?)\s*\)`)

	// pin: bare token or (edge pin); values: (rise) and optional (fall)
	ioPathRegexp = regexp.MustCompile(
		`\(IOPATH\s+(\([^()]*\)|[^\s()]+)\s+(\([^()]*\)|[^\s()]+)\s*\(([^()]*)\)(?:\s*\(([^()]*)\))?`)

	interconnectRegexp = regexp.MustCompile(
		`\(INTERCONNECT\s+(\([^()]*\)|[^\s()]+)\s+(\([^()]*\)|[^\s()]+)\s*\(([^()]*)\)(?:\s*\(([^()]*)\))?`)
)

// ParseTiming extracts the header, cell delays and net delays of an SDF
// file with pattern matching. Each cell body runs from its
// (CELL (CELLTYPE ..) (INSTANCE ..) header to the next cell header or the
// end of the text. A cell instance declared twice keeps its last body.
func ParseTiming(text string) (*TimingModel, diag.List) {
	var diags diag.List
	src := Normalize(text)
	model := NewTimingModel()

	if m := delayFileHeaderRegexp.FindStringSubmatch(src); m != nil {
		model.Version, model.Design, model.Date, model.Vendor = m[1], m[2], m[3], m[4]
	} else if strings.TrimSpace(src) != "" {
		diags.Warnf(component, "missing DELAYFILE header", "no (DELAYFILE ...) block found")
	}

	headers := cellHeaderRegexp.FindAllStringSubmatchIndex(src, -1)
	for i, h := range headers {
		end := len(src)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := src[h[1]:end]

		cellType := src[h[2]:h[3]]
		instance := Unescape(strings.TrimSpace(src[h[4]:h[5]]))

		if _, exists := model.Cells[instance]; exists {
			diags.Warnf(component, "duplicate cell instance", "%q redeclared, last declaration wins", instance)
		}

		cell := NewCellTiming(cellType)
		for _, m := range ioPathRegexp.FindAllStringSubmatchIndex(body, -1) {
			key, d := pathDelay(body, m)
			cell.Set(key, d)
		}
		for _, m := range interconnectRegexp.FindAllStringSubmatchIndex(body, -1) {
			key, d := pathDelay(body, m)
			model.Nets[key] = d
		}
		model.Cells[instance] = cell
	}

	return model, diags
}

// pathDelay decodes an IOPATH or INTERCONNECT submatch index into its
// canonical key and delay. The fall group may be absent or legitimately
// empty: (IOPATH a b (1) ()).
func pathDelay(src string, m []int) (string, Delay) {
	from, to := src[m[2]:m[3]], src[m[4]:m[5]]
	riseText := src[m[6]:m[7]]
	hasFall := m[8] >= 0
	fallText := ""
	if hasFall {
		fallText = src[m[8]:m[9]]
	}
	return DelayKey(CanonicalPin(from), CanonicalPin(to)), delayFromText(riseText, fallText, hasFall)
}

// delayFromText builds a Delay from the rise and fall value texts. A missing
// fall value repeats the rise value, as SDF specifies for single values.
func delayFromText(riseText, fallText string, hasFall bool) Delay {
	rise, riseRange := delayValue(riseText)
	fall, fallRange := rise, riseRange
	if hasFall {
		fall, fallRange = delayValue(fallText)
	}
	return Delay{
		Rise:      rise,
		Fall:      fall,
		Avg:       (rise + fall) / 2,
		RiseRange: riseRange,
		FallRange: fallRange,
	}
}

func delayValue(text string) (float64, *Range) {
	v := parseTimingText(text)
	rep, _ := v.Representative()
	if !v.Triplet {
		return rep, nil
	}
	return rep, &Range{Min: v.Min, Typical: v.Typical, Max: v.Max}
}
