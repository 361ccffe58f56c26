// Package river turns compositor status callbacks into state commands.
package river

import (
	"fmt"

	"github.com/typester/riverql/internal/state"
)

// CallbackKind names a compositor callback. The values double as the "kind"
// field of replay files.
type CallbackKind string

const (
	OutputAdded         CallbackKind = "output_added"
	OutputRemoved       CallbackKind = "output_removed"
	FocusedTagsChanged  CallbackKind = "focused_tags"
	ViewTagsChanged     CallbackKind = "view_tags"
	UrgentTagsChanged   CallbackKind = "urgent_tags"
	LayoutChanged       CallbackKind = "layout"
	SeatAdded           CallbackKind = "seat_added"
	SeatRemoved         CallbackKind = "seat_removed"
	SeatFocusedOutput   CallbackKind = "seat_focused_output"
	SeatUnfocusedOutput CallbackKind = "seat_unfocused_output"
	SeatFocusedView     CallbackKind = "seat_focused_view"
	SeatModeChanged     CallbackKind = "seat_mode"
)

// Callback is one typed compositor callback.
//
// Output and Seat are compositor-assigned ids. For SeatFocusedOutput an
// Output of zero means no output. For LayoutChanged a nil Layout clears the
// layout name.
type Callback struct {
	Kind   CallbackKind `json:"kind"`
	Output uint32       `json:"output,omitempty"`
	Seat   uint32       `json:"seat,omitempty"`
	Name   string       `json:"name,omitempty"`
	Tags   uint32       `json:"tags,omitempty"`
	Layout *string      `json:"layout,omitempty"`
	Title  string       `json:"title,omitempty"`
	Mode   string       `json:"mode,omitempty"`
}

func (c Callback) String() string {
	switch c.Kind {
	case SeatAdded, SeatRemoved, SeatFocusedView, SeatModeChanged:
		return fmt.Sprintf("%s(seat=%d)", c.Kind, c.Seat)
	case SeatFocusedOutput, SeatUnfocusedOutput:
		return fmt.Sprintf("%s(seat=%d, output=%d)", c.Kind, c.Seat, c.Output)
	default:
		return fmt.Sprintf("%s(output=%d)", c.Kind, c.Output)
	}
}

// command maps callbacks that translate one-to-one onto a state command.
func (c Callback) command() (state.Command, bool) {
	switch c.Kind {
	case OutputAdded:
		return state.AddOutput(c.Output, c.Name), true
	case OutputRemoved:
		return state.RemoveOutput(c.Output), true
	case FocusedTagsChanged:
		return state.SetFocusedTags(c.Output, c.Tags), true
	case ViewTagsChanged:
		return state.SetViewTags(c.Output, c.Tags), true
	case UrgentTagsChanged:
		return state.SetUrgentTags(c.Output, c.Tags), true
	case LayoutChanged:
		return state.SetLayout(c.Output, c.Layout), true
	case SeatAdded:
		return state.AddSeat(c.Seat), true
	case SeatRemoved:
		return state.RemoveSeat(c.Seat), true
	case SeatFocusedOutput:
		return state.FocusOutput(c.Seat, c.Output), true
	case SeatFocusedView:
		return state.FocusView(c.Seat, c.Title), true
	case SeatModeChanged:
		return state.SetMode(c.Seat, c.Mode), true
	default:
		return state.Command{}, false
	}
}
