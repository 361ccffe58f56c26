package wayland

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// Interface names and the highest versions this package speaks.
const (
	statusManagerInterface = "zriver_status_manager_v1"
	statusManagerVersion   = 4
	outputInterface        = "wl_output"
	outputVersion          = 4
	seatInterface          = "wl_seat"
	seatVersion            = 5
)

// StatusManager is a zriver_status_manager_v1 proxy.
type StatusManager struct {
	client.BaseProxy
}

// NewStatusManager registers a manager proxy on ctx, ready to be bound.
func NewStatusManager(ctx *client.Context) *StatusManager {
	m := &StatusManager{}
	ctx.Register(m)
	return m
}

// Destroy releases the manager. Existing status objects stay valid.
func (m *StatusManager) Destroy() error {
	defer m.Context().Unregister(m)
	return writeRequest(m, 0)
}

// GetOutputStatus creates the status object for output.
func (m *StatusManager) GetOutputStatus(output *client.Output) (*OutputStatus, error) {
	status := &OutputStatus{}
	m.Context().Register(status)
	return status, writeRequest(m, 1, status.ID(), output.ID())
}

// GetSeatStatus creates the status object for seat.
func (m *StatusManager) GetSeatStatus(seat *client.Seat) (*SeatStatus, error) {
	status := &SeatStatus{}
	m.Context().Register(status)
	return status, writeRequest(m, 2, status.ID(), seat.ID())
}

// Dispatch is a no-op; the manager has no events.
func (m *StatusManager) Dispatch(opcode uint16, fd int, data []byte) {}

// OutputStatus is a zriver_output_status_v1 proxy.
type OutputStatus struct {
	client.BaseProxy

	OnFocusedTags func(tags uint32)
	OnViewTags    func(tags []uint32)
	OnUrgentTags  func(tags uint32)
	// OnLayoutName receives nil when the layout name is cleared.
	OnLayoutName func(name *string)
}

// Destroy releases the status object.
func (s *OutputStatus) Destroy() error {
	defer s.Context().Unregister(s)
	return writeRequest(s, 0)
}

// Dispatch decodes one output status event.
func (s *OutputStatus) Dispatch(opcode uint16, fd int, data []byte) {
	switch opcode {
	case 0:
		if s.OnFocusedTags != nil && len(data) >= 4 {
			s.OnFocusedTags(client.Uint32(data[0:4]))
		}
	case 1:
		if s.OnViewTags != nil {
			s.OnViewTags(decodeUint32Array(data))
		}
	case 2:
		if s.OnUrgentTags != nil && len(data) >= 4 {
			s.OnUrgentTags(client.Uint32(data[0:4]))
		}
	case 3:
		if s.OnLayoutName != nil {
			name := decodeString(data)
			s.OnLayoutName(&name)
		}
	case 4:
		if s.OnLayoutName != nil {
			s.OnLayoutName(nil)
		}
	}
}

// SeatStatus is a zriver_seat_status_v1 proxy.
type SeatStatus struct {
	client.BaseProxy

	// Output arguments are protocol object ids of wl_output proxies.
	OnFocusedOutput   func(output uint32)
	OnUnfocusedOutput func(output uint32)
	OnFocusedView     func(title string)
	OnMode            func(name string)
}

// Destroy releases the status object.
func (s *SeatStatus) Destroy() error {
	defer s.Context().Unregister(s)
	return writeRequest(s, 0)
}

// Dispatch decodes one seat status event.
func (s *SeatStatus) Dispatch(opcode uint16, fd int, data []byte) {
	switch opcode {
	case 0:
		if s.OnFocusedOutput != nil && len(data) >= 4 {
			s.OnFocusedOutput(client.Uint32(data[0:4]))
		}
	case 1:
		if s.OnUnfocusedOutput != nil && len(data) >= 4 {
			s.OnUnfocusedOutput(client.Uint32(data[0:4]))
		}
	case 2:
		if s.OnFocusedView != nil {
			s.OnFocusedView(decodeString(data))
		}
	case 3:
		if s.OnMode != nil {
			s.OnMode(decodeString(data))
		}
	}
}

// writeRequest encodes a request made only of uint32 and object arguments.
func writeRequest(p client.Proxy, opcode uint32, args ...uint32) error {
	size := 8 + 4*len(args)
	buf := make([]byte, size)
	client.PutUint32(buf[0:4], p.ID())
	client.PutUint32(buf[4:8], uint32(size<<16)|opcode&0x0000ffff)
	for i, arg := range args {
		client.PutUint32(buf[8+4*i:12+4*i], arg)
	}
	return p.Context().WriteMsg(buf, nil)
}

// decodeString reads a wire string: length including the NUL, then bytes.
func decodeString(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	n := int(client.Uint32(data[0:4]))
	if n == 0 || 4+n > len(data) {
		return ""
	}
	// Copy: data is the connection's receive buffer.
	return string(data[4 : 4+n-1])
}

// decodeUint32Array reads a wire array of uint32 values.
func decodeUint32Array(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	n := int(client.Uint32(data[0:4]))
	body := data[4:]
	if n > len(body) {
		n = len(body)
	}
	values := make([]uint32, 0, n/4)
	for i := 0; i+4 <= n; i += 4 {
		values = append(values, client.Uint32(body[i:i+4]))
	}
	return values
}
