package state

// Output holds the last reported status of one compositor output.
type Output struct {
	ID          uint32
	Name        string
	FocusedTags uint32
	ViewTags    uint32
	UrgentTags  uint32
	LayoutName  *string
}

// Seat holds the focus state of one compositor input seat.
// FocusedOutput is zero when no output is focused.
type Seat struct {
	ID            uint32
	FocusedOutput uint32
	FocusedView   *string
	Mode          *string
}

// Kind identifies the variant of an Event.
type Kind string

const (
	KindOutputAdded       Kind = "OutputAdded"
	KindOutputRemoved     Kind = "OutputRemoved"
	KindOutputFocusedTags Kind = "OutputFocusedTags"
	KindOutputViewTags    Kind = "OutputViewTags"
	KindOutputUrgentTags  Kind = "OutputUrgentTags"
	KindOutputLayout      Kind = "OutputLayout"
	KindSeatFocusedOutput Kind = "SeatFocusedOutput"
	KindSeatFocusedView   Kind = "SeatFocusedView"
	KindSeatMode          Kind = "SeatMode"
)

// Kinds lists every event kind in schema order.
var Kinds = []Kind{
	KindOutputAdded,
	KindOutputRemoved,
	KindOutputFocusedTags,
	KindOutputViewTags,
	KindOutputUrgentTags,
	KindOutputLayout,
	KindSeatFocusedOutput,
	KindSeatFocusedView,
	KindSeatMode,
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is an immutable description of one observable state change.
//
// OutputID and OutputName identify the output the event is about, captured
// when the event was produced. For KindSeatFocusedOutput they describe the
// newly focused output (zero and empty when focus was lost) and
// PreviousOutputName names the output that lost focus, if any.
type Event struct {
	Kind               Kind
	OutputID           uint32
	OutputName         string
	Tags               uint32
	LayoutName         *string
	SeatID             uint32
	PreviousOutputName string
	Title              string
	Mode               string
}

// Op identifies the mutation carried by a Command.
type Op int

const (
	OpOutputAdded Op = iota + 1
	OpOutputRemoved
	OpFocusedTags
	OpViewTags
	OpUrgentTags
	OpLayout
	OpSeatAdded
	OpSeatRemoved
	OpSeatFocusedOutput
	OpSeatFocusedView
	OpSeatMode
)

var opNames = map[Op]string{
	OpOutputAdded:       "output_added",
	OpOutputRemoved:     "output_removed",
	OpFocusedTags:       "focused_tags",
	OpViewTags:          "view_tags",
	OpUrgentTags:        "urgent_tags",
	OpLayout:            "layout",
	OpSeatAdded:         "seat_added",
	OpSeatRemoved:       "seat_removed",
	OpSeatFocusedOutput: "seat_focused_output",
	OpSeatFocusedView:   "seat_focused_view",
	OpSeatMode:          "seat_mode",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "unknown"
}

// Command is a primitive state mutation derived from one compositor callback.
type Command struct {
	Op       Op
	OutputID uint32
	SeatID   uint32
	Tags     uint32
	// Text is the output name, view title or mode name depending on Op.
	Text   string
	Layout *string
}

// AddOutput announces an output with its name.
func AddOutput(id uint32, name string) Command {
	return Command{Op: OpOutputAdded, OutputID: id, Text: name}
}

// RemoveOutput removes a live output.
func RemoveOutput(id uint32) Command {
	return Command{Op: OpOutputRemoved, OutputID: id}
}

// SetFocusedTags sets the focused tag mask of an output.
func SetFocusedTags(id, tags uint32) Command {
	return Command{Op: OpFocusedTags, OutputID: id, Tags: tags}
}

// SetViewTags sets the mask of tags occupied by views on an output.
func SetViewTags(id, tags uint32) Command {
	return Command{Op: OpViewTags, OutputID: id, Tags: tags}
}

// SetUrgentTags sets the urgent tag mask of an output.
func SetUrgentTags(id, tags uint32) Command {
	return Command{Op: OpUrgentTags, OutputID: id, Tags: tags}
}

// SetLayout sets the layout name of an output; nil clears it.
func SetLayout(id uint32, name *string) Command {
	return Command{Op: OpLayout, OutputID: id, Layout: name}
}

// AddSeat announces a seat.
func AddSeat(id uint32) Command {
	return Command{Op: OpSeatAdded, SeatID: id}
}

// RemoveSeat removes a live seat.
func RemoveSeat(id uint32) Command {
	return Command{Op: OpSeatRemoved, SeatID: id}
}

// FocusOutput points a seat at an output; output zero means none.
func FocusOutput(seat, output uint32) Command {
	return Command{Op: OpSeatFocusedOutput, SeatID: seat, OutputID: output}
}

// FocusView records the title of the view a seat focuses.
func FocusView(seat uint32, title string) Command {
	return Command{Op: OpSeatFocusedView, SeatID: seat, Text: title}
}

// SetMode records the active mode of a seat.
func SetMode(seat uint32, mode string) Command {
	return Command{Op: OpSeatMode, SeatID: seat, Text: mode}
}
