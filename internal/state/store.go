package state

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrProtocolAnomaly marks a callback that references unknown objects or
	// arrives out of order. Callers log it and carry on.
	ErrProtocolAnomaly = errors.New("protocol anomaly")

	// ErrStateInvariant marks a callback that would break a store invariant,
	// such as a live output id being announced twice. It is fatal.
	ErrStateInvariant = errors.New("state invariant violation")
)

// Store is the canonical in-memory view of outputs and seats.
//
// Store does no locking of its own; its owner serializes Apply and reads.
type Store struct {
	outputs map[uint32]*Output
	names   map[string]uint32
	seats   map[uint32]*Seat
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		outputs: make(map[uint32]*Output),
		names:   make(map[string]uint32),
		seats:   make(map[uint32]*Seat),
	}
}

// Apply mutates the store and returns the events describing the change, in
// order. Redundant commands return no events.
func (s *Store) Apply(cmd Command) ([]Event, error) {
	switch cmd.Op {
	case OpOutputAdded:
		return s.addOutput(cmd.OutputID, cmd.Text)
	case OpOutputRemoved:
		return s.removeOutput(cmd.OutputID)
	case OpFocusedTags, OpViewTags, OpUrgentTags:
		return s.setTags(cmd.Op, cmd.OutputID, cmd.Tags)
	case OpLayout:
		return s.setLayout(cmd.OutputID, cmd.Layout)
	case OpSeatAdded:
		return s.addSeat(cmd.SeatID)
	case OpSeatRemoved:
		return s.removeSeat(cmd.SeatID)
	case OpSeatFocusedOutput:
		return s.focusOutput(cmd.SeatID, cmd.OutputID)
	case OpSeatFocusedView:
		return s.focusView(cmd.SeatID, cmd.Text)
	case OpSeatMode:
		return s.setMode(cmd.SeatID, cmd.Text)
	default:
		return nil, fmt.Errorf("%w: unknown command op %d", ErrProtocolAnomaly, cmd.Op)
	}
}

func (s *Store) addOutput(id uint32, name string) ([]Event, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: output id 0 is reserved", ErrProtocolAnomaly)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: output %d announced without a name", ErrProtocolAnomaly, id)
	}
	if _, exists := s.outputs[id]; exists {
		return nil, fmt.Errorf("%w: output id %d is already live", ErrStateInvariant, id)
	}
	if other, exists := s.names[name]; exists {
		return nil, fmt.Errorf("%w: output name %q is already used by output %d", ErrStateInvariant, name, other)
	}

	s.outputs[id] = &Output{ID: id, Name: name}
	s.names[name] = id
	return []Event{{Kind: KindOutputAdded, OutputID: id, OutputName: name}}, nil
}

func (s *Store) removeOutput(id uint32) ([]Event, error) {
	out, ok := s.outputs[id]
	if !ok {
		return nil, fmt.Errorf("%w: remove of unknown output %d", ErrProtocolAnomaly, id)
	}

	var events []Event
	for _, seat := range s.sortedSeats() {
		if seat.FocusedOutput != id {
			continue
		}
		seat.FocusedOutput = 0
		events = append(events, Event{
			Kind:               KindSeatFocusedOutput,
			SeatID:             seat.ID,
			PreviousOutputName: out.Name,
		})
	}

	delete(s.outputs, id)
	delete(s.names, out.Name)
	events = append(events, Event{Kind: KindOutputRemoved, OutputID: id, OutputName: out.Name})
	return events, nil
}

func (s *Store) setTags(op Op, id, tags uint32) ([]Event, error) {
	out, ok := s.outputs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s for unknown output %d", ErrProtocolAnomaly, op, id)
	}

	var field *uint32
	var kind Kind
	switch op {
	case OpFocusedTags:
		field, kind = &out.FocusedTags, KindOutputFocusedTags
	case OpViewTags:
		field, kind = &out.ViewTags, KindOutputViewTags
	default:
		field, kind = &out.UrgentTags, KindOutputUrgentTags
	}
	if *field == tags {
		return nil, nil
	}
	*field = tags
	return []Event{{Kind: kind, OutputID: id, OutputName: out.Name, Tags: tags}}, nil
}

func (s *Store) setLayout(id uint32, layout *string) ([]Event, error) {
	out, ok := s.outputs[id]
	if !ok {
		return nil, fmt.Errorf("%w: layout for unknown output %d", ErrProtocolAnomaly, id)
	}
	if equalStrings(out.LayoutName, layout) {
		return nil, nil
	}
	out.LayoutName = cloneString(layout)
	return []Event{{Kind: KindOutputLayout, OutputID: id, OutputName: out.Name, LayoutName: out.LayoutName}}, nil
}

func (s *Store) addSeat(id uint32) ([]Event, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: seat id 0 is reserved", ErrProtocolAnomaly)
	}
	if _, exists := s.seats[id]; exists {
		return nil, fmt.Errorf("%w: seat id %d is already live", ErrStateInvariant, id)
	}
	s.seats[id] = &Seat{ID: id}
	return nil, nil
}

func (s *Store) removeSeat(id uint32) ([]Event, error) {
	if _, ok := s.seats[id]; !ok {
		return nil, fmt.Errorf("%w: remove of unknown seat %d", ErrProtocolAnomaly, id)
	}
	delete(s.seats, id)
	return nil, nil
}

func (s *Store) focusOutput(seatID, outputID uint32) ([]Event, error) {
	seat, ok := s.seats[seatID]
	if !ok {
		return nil, fmt.Errorf("%w: focus change for unknown seat %d", ErrProtocolAnomaly, seatID)
	}
	var next *Output
	if outputID != 0 {
		next, ok = s.outputs[outputID]
		if !ok {
			return nil, fmt.Errorf("%w: seat %d focused unknown output %d", ErrProtocolAnomaly, seatID, outputID)
		}
	}
	if seat.FocusedOutput == outputID {
		return nil, nil
	}

	ev := Event{Kind: KindSeatFocusedOutput, SeatID: seatID}
	if prev, ok := s.outputs[seat.FocusedOutput]; ok {
		ev.PreviousOutputName = prev.Name
	}
	if next != nil {
		ev.OutputID = next.ID
		ev.OutputName = next.Name
	}
	seat.FocusedOutput = outputID
	return []Event{ev}, nil
}

func (s *Store) focusView(seatID uint32, title string) ([]Event, error) {
	seat, ok := s.seats[seatID]
	if !ok {
		return nil, fmt.Errorf("%w: focused view for unknown seat %d", ErrProtocolAnomaly, seatID)
	}
	if seat.FocusedView != nil && *seat.FocusedView == title {
		return nil, nil
	}
	seat.FocusedView = &title
	return []Event{{Kind: KindSeatFocusedView, SeatID: seatID, Title: title}}, nil
}

func (s *Store) setMode(seatID uint32, mode string) ([]Event, error) {
	seat, ok := s.seats[seatID]
	if !ok {
		return nil, fmt.Errorf("%w: mode for unknown seat %d", ErrProtocolAnomaly, seatID)
	}
	if seat.Mode != nil && *seat.Mode == mode {
		return nil, nil
	}
	seat.Mode = &mode
	return []Event{{Kind: KindSeatMode, SeatID: seatID, Mode: mode}}, nil
}

// Outputs returns copies of all live outputs ordered by id.
func (s *Store) Outputs() []Output {
	result := make([]Output, 0, len(s.outputs))
	for _, out := range s.outputs {
		result = append(result, *out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Output returns the live output with the given name.
func (s *Store) Output(name string) (Output, bool) {
	id, ok := s.names[name]
	if !ok {
		return Output{}, false
	}
	return *s.outputs[id], true
}

// Seats returns copies of all live seats ordered by id.
func (s *Store) Seats() []Seat {
	seats := s.sortedSeats()
	result := make([]Seat, 0, len(seats))
	for _, seat := range seats {
		result = append(result, *seat)
	}
	return result
}

// DefaultSeat returns the live seat with the lowest id.
func (s *Store) DefaultSeat() (Seat, bool) {
	seats := s.sortedSeats()
	if len(seats) == 0 {
		return Seat{}, false
	}
	return *seats[0], true
}

// SeatFocusedOutput returns the output the given seat currently focuses.
func (s *Store) SeatFocusedOutput(seatID uint32) (Output, bool) {
	seat, ok := s.seats[seatID]
	if !ok || seat.FocusedOutput == 0 {
		return Output{}, false
	}
	out, ok := s.outputs[seat.FocusedOutput]
	if !ok {
		return Output{}, false
	}
	return *out, true
}

// Snapshot describes the whole current state as a sequence of synthetic
// events of the same kinds Apply produces.
func (s *Store) Snapshot() []Event {
	var events []Event
	for _, out := range s.Outputs() {
		events = append(events,
			Event{Kind: KindOutputAdded, OutputID: out.ID, OutputName: out.Name},
			Event{Kind: KindOutputFocusedTags, OutputID: out.ID, OutputName: out.Name, Tags: out.FocusedTags},
			Event{Kind: KindOutputViewTags, OutputID: out.ID, OutputName: out.Name, Tags: out.ViewTags},
			Event{Kind: KindOutputUrgentTags, OutputID: out.ID, OutputName: out.Name, Tags: out.UrgentTags},
		)
		if out.LayoutName != nil {
			events = append(events, Event{Kind: KindOutputLayout, OutputID: out.ID, OutputName: out.Name, LayoutName: out.LayoutName})
		}
	}
	for _, seat := range s.sortedSeats() {
		if out, ok := s.outputs[seat.FocusedOutput]; ok {
			events = append(events, Event{Kind: KindSeatFocusedOutput, SeatID: seat.ID, OutputID: out.ID, OutputName: out.Name})
		}
		if seat.FocusedView != nil {
			events = append(events, Event{Kind: KindSeatFocusedView, SeatID: seat.ID, Title: *seat.FocusedView})
		}
		if seat.Mode != nil {
			events = append(events, Event{Kind: KindSeatMode, SeatID: seat.ID, Mode: *seat.Mode})
		}
	}
	return events
}

func (s *Store) sortedSeats() []*Seat {
	seats := make([]*Seat, 0, len(s.seats))
	for _, seat := range s.seats {
		seats = append(seats, seat)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })
	return seats
}

func equalStrings(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
