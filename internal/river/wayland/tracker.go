package wayland

import (
	"strings"

	"github.com/typester/riverql/internal/river"
	"github.com/typester/riverql/internal/state"
)

type outputInfo struct {
	id     uint32
	proto  uint32
	global uint32

	name        string
	description string
	make        string
	model       string

	announced bool
}

// label picks the output's display name: the wl_output name, else its
// description, else make and model.
func (o *outputInfo) label() string {
	if o.name != "" {
		return o.name
	}
	if o.description != "" {
		return o.description
	}
	return strings.TrimSpace(o.make + " " + o.model)
}

// tracker assigns stable ids to compositor objects and turns their events
// into river callbacks. Wayland protocol ids are reused after destruction, so
// outputs and seats get their own never-reused ids.
type tracker struct {
	handle func(river.Callback) error
	err    error

	nextOutput uint32
	nextSeat   uint32
	outputs    map[uint32]*outputInfo // by registry name
	byProto    map[uint32]*outputInfo // by wl_output object id
	seats      map[uint32]uint32      // registry name -> seat id
}

func newTracker(handle func(river.Callback) error) *tracker {
	return &tracker{
		handle:  handle,
		outputs: make(map[uint32]*outputInfo),
		byProto: make(map[uint32]*outputInfo),
		seats:   make(map[uint32]uint32),
	}
}

// emit forwards cb unless an earlier callback failed; the first failure is
// kept for the dispatch loop to report.
func (t *tracker) emit(cb river.Callback) {
	if t.err != nil {
		return
	}
	t.err = t.handle(cb)
}

func (t *tracker) addOutput(global, proto uint32) *outputInfo {
	t.nextOutput++
	info := &outputInfo{id: t.nextOutput, proto: proto, global: global}
	t.outputs[global] = info
	t.byProto[proto] = info
	return info
}

// outputDone announces the output once a label is known.
func (t *tracker) outputDone(info *outputInfo) {
	if info.announced {
		return
	}
	label := info.label()
	if label == "" {
		return
	}
	info.announced = true
	t.emit(river.Callback{Kind: river.OutputAdded, Output: info.id, Name: label})
}

// flush announces outputs whose compositor never sent wl_output.done.
func (t *tracker) flush() {
	for _, info := range t.outputs {
		t.outputDone(info)
	}
}

func (t *tracker) addSeat(global uint32) uint32 {
	t.nextSeat++
	t.seats[global] = t.nextSeat
	t.emit(river.Callback{Kind: river.SeatAdded, Seat: t.nextSeat})
	return t.nextSeat
}

// removeGlobal handles wl_registry.global_remove and reports whether the
// global was an output or a seat.
func (t *tracker) removeGlobal(global uint32) (*outputInfo, bool) {
	if info, ok := t.outputs[global]; ok {
		delete(t.outputs, global)
		delete(t.byProto, info.proto)
		// Sent for unannounced outputs too, so callbacks held for them are
		// released.
		t.emit(river.Callback{Kind: river.OutputRemoved, Output: info.id})
		return info, true
	}
	if seat, ok := t.seats[global]; ok {
		delete(t.seats, global)
		t.emit(river.Callback{Kind: river.SeatRemoved, Seat: seat})
		return nil, true
	}
	return nil, false
}

func (t *tracker) focusedTags(info *outputInfo, tags uint32) {
	t.emit(river.Callback{Kind: river.FocusedTagsChanged, Output: info.id, Tags: tags})
}

func (t *tracker) viewTags(info *outputInfo, views []uint32) {
	t.emit(river.Callback{Kind: river.ViewTagsChanged, Output: info.id, Tags: state.TagMask(views)})
}

func (t *tracker) urgentTags(info *outputInfo, tags uint32) {
	t.emit(river.Callback{Kind: river.UrgentTagsChanged, Output: info.id, Tags: tags})
}

func (t *tracker) layout(info *outputInfo, name *string) {
	t.emit(river.Callback{Kind: river.LayoutChanged, Output: info.id, Layout: name})
}

// seatOutput maps a wl_output object id from a seat event to the output id;
// zero when the object is not a tracked output.
func (t *tracker) seatOutput(proto uint32) uint32 {
	if info, ok := t.byProto[proto]; ok {
		return info.id
	}
	return 0
}

func (t *tracker) focusedOutput(seat, proto uint32) {
	output := t.seatOutput(proto)
	if output == 0 {
		return
	}
	t.emit(river.Callback{Kind: river.SeatFocusedOutput, Seat: seat, Output: output})
}

func (t *tracker) unfocusedOutput(seat, proto uint32) {
	output := t.seatOutput(proto)
	if output == 0 {
		return
	}
	t.emit(river.Callback{Kind: river.SeatUnfocusedOutput, Seat: seat, Output: output})
}

func (t *tracker) focusedView(seat uint32, title string) {
	t.emit(river.Callback{Kind: river.SeatFocusedView, Seat: seat, Title: title})
}

func (t *tracker) mode(seat uint32, name string) {
	t.emit(river.Callback{Kind: river.SeatModeChanged, Seat: seat, Mode: name})
}
