package wayland

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/typester/riverql/internal/river"
)

type callbackLog struct {
	got []river.Callback
}

func (c *callbackLog) handle(cb river.Callback) error {
	c.got = append(c.got, cb)
	return nil
}

func TestOutputLabel(t *testing.T) {
	tests := []struct {
		info outputInfo
		want string
	}{
		{outputInfo{name: "DP-1", description: "Dell", make: "Dell", model: "U2720Q"}, "DP-1"},
		{outputInfo{description: "Dell U2720Q", make: "Dell", model: "U2720Q"}, "Dell U2720Q"},
		{outputInfo{make: "Dell", model: "U2720Q"}, "Dell U2720Q"},
		{outputInfo{make: "Dell"}, "Dell"},
		{outputInfo{model: "U2720Q"}, "U2720Q"},
		{outputInfo{}, ""},
	}
	for _, tt := range tests {
		if got := tt.info.label(); got != tt.want {
			t.Errorf("label(%+v) = %q, want %q", tt.info, got, tt.want)
		}
	}
}

func TestTracker_AnnouncesOnDoneWithStableIDs(t *testing.T) {
	log := &callbackLog{}
	tr := newTracker(log.handle)

	first := tr.addOutput(40, 7)
	tr.focusedTags(first, 2)
	tr.outputDone(first) // no label yet
	first.name = "DP-1"
	tr.outputDone(first)
	tr.outputDone(first)

	tr.removeGlobal(40)
	// The compositor reuses the protocol id; the output id is fresh.
	second := tr.addOutput(41, 7)
	second.name = "DP-1"
	tr.outputDone(second)

	want := []river.Callback{
		{Kind: river.FocusedTagsChanged, Output: 1, Tags: 2},
		{Kind: river.OutputAdded, Output: 1, Name: "DP-1"},
		{Kind: river.OutputRemoved, Output: 1},
		{Kind: river.OutputAdded, Output: 2, Name: "DP-1"},
	}
	if diff := cmp.Diff(want, log.got); diff != "" {
		t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
	}
}

func TestTracker_SeatEvents(t *testing.T) {
	log := &callbackLog{}
	tr := newTracker(log.handle)

	out := tr.addOutput(10, 20)
	out.description = "Built-in"
	tr.flush()
	seat := tr.addSeat(11)
	tr.focusedOutput(seat, 20)
	tr.focusedOutput(seat, 99) // not an output we track
	tr.unfocusedOutput(seat, 20)
	tr.focusedView(seat, "vim")
	tr.mode(seat, "normal")
	tr.viewTags(out, []uint32{1, 4, 4})
	tr.layout(out, nil)
	tr.removeGlobal(11)
	if _, ok := tr.removeGlobal(12); ok {
		t.Error("unknown global reported as removed")
	}

	want := []river.Callback{
		{Kind: river.OutputAdded, Output: 1, Name: "Built-in"},
		{Kind: river.SeatAdded, Seat: 1},
		{Kind: river.SeatFocusedOutput, Seat: 1, Output: 1},
		{Kind: river.SeatUnfocusedOutput, Seat: 1, Output: 1},
		{Kind: river.SeatFocusedView, Seat: 1, Title: "vim"},
		{Kind: river.SeatModeChanged, Seat: 1, Mode: "normal"},
		{Kind: river.ViewTagsChanged, Output: 1, Tags: 5},
		{Kind: river.LayoutChanged, Output: 1},
		{Kind: river.SeatRemoved, Seat: 1},
	}
	if diff := cmp.Diff(want, log.got); diff != "" {
		t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
	}
}

func TestTracker_RemovesUnannouncedOutput(t *testing.T) {
	log := &callbackLog{}
	tr := newTracker(log.handle)

	out := tr.addOutput(30, 8)
	tr.focusedTags(out, 1)
	if _, ok := tr.removeGlobal(30); !ok {
		t.Fatal("output global not reported as removed")
	}
	tr.flush()

	want := []river.Callback{
		{Kind: river.FocusedTagsChanged, Output: 1, Tags: 1},
		{Kind: river.OutputRemoved, Output: 1},
	}
	if diff := cmp.Diff(want, log.got); diff != "" {
		t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
	}
}

func TestTracker_StopsAfterHandlerError(t *testing.T) {
	fail := errors.New("invariant")
	calls := 0
	tr := newTracker(func(river.Callback) error {
		calls++
		return fail
	})
	tr.addSeat(1)
	tr.addSeat(2)
	if !errors.Is(tr.err, fail) || calls != 1 {
		t.Fatalf("expected first error kept and no further calls, got err=%v calls=%d", tr.err, calls)
	}
}

func wireString(s string) []byte {
	n := len(s) + 1
	buf := make([]byte, 4+client.PaddedLen(n))
	client.PutUint32(buf[0:4], uint32(n))
	copy(buf[4:], s)
	return buf
}

func TestDecodeString(t *testing.T) {
	for _, s := range []string{"", "a", "rivertile", "four"} {
		if got := decodeString(wireString(s)); got != s {
			t.Errorf("decodeString(%q) = %q", s, got)
		}
	}
	if got := decodeString([]byte{1, 0}); got != "" {
		t.Errorf("expected empty string for short input, got %q", got)
	}
}

func TestDecodeUint32Array(t *testing.T) {
	buf := make([]byte, 4+12)
	client.PutUint32(buf[0:4], 12)
	client.PutUint32(buf[4:8], 1)
	client.PutUint32(buf[8:12], 2)
	client.PutUint32(buf[12:16], 8)

	if diff := cmp.Diff([]uint32{1, 2, 8}, decodeUint32Array(buf)); diff != "" {
		t.Errorf("array mismatch (-want +got):\n%s", diff)
	}

	empty := make([]byte, 4)
	if got := decodeUint32Array(empty); len(got) != 0 {
		t.Errorf("expected empty array, got %v", got)
	}
}

func TestOutputStatusDispatch(t *testing.T) {
	var (
		focused uint32
		layouts []*string
	)
	status := &OutputStatus{
		OnFocusedTags: func(tags uint32) { focused = tags },
		OnLayoutName:  func(name *string) { layouts = append(layouts, name) },
	}
	tags := make([]byte, 4)
	client.PutUint32(tags, 0b1011)
	status.Dispatch(0, -1, tags)
	status.Dispatch(3, -1, wireString("monocle"))
	status.Dispatch(4, -1, nil)
	// Events without a handler are dropped.
	status.Dispatch(2, -1, tags)

	if focused != 0b1011 {
		t.Errorf("expected focused tags 0b1011, got %#b", focused)
	}
	if len(layouts) != 2 || layouts[0] == nil || *layouts[0] != "monocle" || layouts[1] != nil {
		t.Errorf("unexpected layout events %v", layouts)
	}
}
