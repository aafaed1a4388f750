// Package propagate orders signal arrivals through a restructured FPGA graph.
//
// Inputs emit at time zero. A connection delivers its value after its
// longest rise or fall delay. A module fires once every incoming connection
// has delivered, after its own cell delay, and then drives its outgoing
// connections. Modules that never receive all of their inputs, such as
// those on a feedback loop, are reported as unreached.
package propagate

import (
	"container/heap"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/fpga"
)

// Kind is the kind of a propagation event.
type Kind string

const (
	Emit   Kind = "emit"   // a source starts driving
	Arrive Kind = "arrive" // a connection delivers to its sink
	Fire   Kind = "fire"   // a module's outputs settle
)

// Event is one step of the propagation, in picoseconds from the start.
type Event struct {
	Time       float64 `json:"time"`
	Kind       Kind    `json:"kind"`
	Module     string  `json:"module"`
	Connection string  `json:"connection,omitempty"`
}

// Options tune the propagation.
type Options struct {
	// CellDelay, when set, replaces every non-IO module's own delay.
	CellDelay *float64
}

// Schedule is the ordered list of propagation events.
type Schedule struct {
	Events    []Event            `json:"events"`
	FireTimes map[string]float64 `json:"fireTimes"`
	Unreached []string           `json:"unreached"`
	Makespan  float64            `json:"makespan"`
}

type queued struct {
	Event
	seq int
}

// eventQueue orders events by time, then by insertion.
type eventQueue []queued

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].Time != q[j].Time {
		return q[i].Time < q[j].Time
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(queued)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

type simulation struct {
	graph    *fpga.Graph
	opts     Options
	queue    eventQueue
	seq      int
	pending  map[string]int
	fired    map[string]bool
	latest   map[string]float64
	outgoing map[string][]int
	sched    *Schedule
}

// Build computes the propagation schedule of g. The same graph always
// yields the same schedule.
func Build(g *fpga.Graph, opts Options) *Schedule {
	s := &simulation{
		graph:    g,
		opts:     opts,
		pending:  map[string]int{},
		fired:    map[string]bool{},
		latest:   map[string]float64{},
		outgoing: map[string][]int{},
		sched: &Schedule{
			Events:    []Event{},
			FireTimes: map[string]float64{},
			Unreached: []string{},
		},
	}

	known := map[string]bool{}
	for _, m := range g.Modules {
		known[m.Instance] = true
	}
	for i, c := range g.Connections {
		if !known[c.FromClean] || !known[c.ToClean] {
			continue
		}
		s.outgoing[c.FromClean] = append(s.outgoing[c.FromClean], i)
		s.pending[c.ToClean]++
	}

	for _, src := range sources(g, s.pending, s.outgoing) {
		s.push(Event{Time: 0, Kind: Emit, Module: src})
	}

	for s.queue.Len() > 0 {
		ev := heap.Pop(&s.queue).(queued).Event
		if s.handle(ev) {
			s.sched.Events = append(s.sched.Events, ev)
		}
	}

	for _, m := range g.Modules {
		if _, fired := s.sched.FireTimes[m.Instance]; !fired {
			s.sched.Unreached = append(s.sched.Unreached, m.Instance)
		}
	}
	return s.sched
}

// sources are the input IO ports that nothing drives, or, when a graph has
// none, every module that drives a connection without receiving one. A
// port that is both driven and driving fires on arrival like any module.
func sources(g *fpga.Graph, pending map[string]int, outgoing map[string][]int) []string {
	var srcs []string
	for _, m := range g.Modules {
		if m.Type == fpga.IOPortType && m.IsInput && pending[m.Instance] == 0 {
			srcs = append(srcs, m.Instance)
		}
	}
	if len(srcs) > 0 {
		return srcs
	}
	for _, m := range g.Modules {
		if pending[m.Instance] == 0 && len(outgoing[m.Instance]) > 0 {
			srcs = append(srcs, m.Instance)
		}
	}
	return srcs
}

func (s *simulation) push(ev Event) {
	heap.Push(&s.queue, queued{Event: ev, seq: s.seq})
	s.seq++
}

// handle applies one event and reports whether it took effect. A module
// drives its outgoing connections at most once and its pending count never
// drops below zero.
func (s *simulation) handle(ev Event) bool {
	switch ev.Kind {
	case Emit, Fire:
		if s.fired[ev.Module] {
			return false
		}
		s.fired[ev.Module] = true
		s.sched.FireTimes[ev.Module] = ev.Time
		if ev.Time > s.sched.Makespan {
			s.sched.Makespan = ev.Time
		}
		for _, i := range s.outgoing[ev.Module] {
			c := &s.graph.Connections[i]
			s.push(Event{Time: ev.Time + c.MaxDelay(), Kind: Arrive, Module: c.ToClean, Connection: c.ID})
		}
	case Arrive:
		if s.fired[ev.Module] || s.pending[ev.Module] == 0 {
			return false
		}
		if ev.Time > s.latest[ev.Module] {
			s.latest[ev.Module] = ev.Time
		}
		s.pending[ev.Module]--
		if s.pending[ev.Module] == 0 {
			s.push(Event{Time: s.latest[ev.Module] + s.cellDelay(ev.Module), Kind: Fire, Module: ev.Module})
		}
	}
	return true
}

func (s *simulation) cellDelay(instance string) float64 {
	m, ok := s.graph.Module(instance)
	if !ok || m.Type == fpga.IOPortType {
		return 0
	}
	if s.opts.CellDelay != nil {
		return *s.opts.CellDelay
	}
	return m.MaxDelay()
}
