// Package wayland feeds river status from a running compositor into the
// river listener over the zriver-status-unstable-v1 protocol.
package wayland

import (
	"context"
	"errors"
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/river"
)

// ErrNoStatusManager is returned when the compositor does not advertise
// zriver_status_manager_v1.
var ErrNoStatusManager = errors.New("compositor does not support " + statusManagerInterface)

// Source is a river.Source reading from a Wayland display.
type Source struct {
	display string
	log     pslog.Logger
}

// NewSource creates a source for the named display; empty uses
// $WAYLAND_DISPLAY.
func NewSource(display string, logger pslog.Logger) *Source {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Source{display: display, log: logger}
}

// session holds the proxies of one connection. It is only touched from the
// goroutine calling Dispatch.
type session struct {
	log      pslog.Logger
	display  *client.Display
	registry *client.Registry
	tracker  *tracker

	manager        *StatusManager
	outputs        map[uint32]*client.Output // by registry name
	outputStatuses map[uint32]*OutputStatus  // by registry name
	seats          map[uint32]*client.Seat   // by registry name
	seatIDs        map[uint32]uint32         // registry name -> seat id
	seatStatuses   map[uint32]*SeatStatus    // by registry name
}

// Run connects, announces the current state, and then relays status events
// until ctx is cancelled, the connection fails, or handle returns an error.
func (s *Source) Run(ctx context.Context, handle func(river.Callback) error) error {
	display, err := client.Connect(s.display)
	if err != nil {
		return fmt.Errorf("connect to wayland display: %w", err)
	}
	wctx := display.Context()
	defer wctx.Close()

	sess := &session{
		log:            s.log,
		display:        display,
		tracker:        newTracker(handle),
		outputs:        make(map[uint32]*client.Output),
		outputStatuses: make(map[uint32]*OutputStatus),
		seats:          make(map[uint32]*client.Seat),
		seatIDs:        make(map[uint32]uint32),
		seatStatuses:   make(map[uint32]*SeatStatus),
	}
	sess.registry, err = display.GetRegistry()
	if err != nil {
		return fmt.Errorf("get wayland registry: %w", err)
	}
	sess.registry.SetGlobalHandler(sess.global)
	sess.registry.SetGlobalRemoveHandler(sess.globalRemove)

	// The first roundtrip binds globals, the second collects their state.
	if err := sess.roundtrip(); err != nil {
		return err
	}
	if sess.manager == nil {
		return ErrNoStatusManager
	}
	if err := sess.roundtrip(); err != nil {
		return err
	}
	sess.tracker.flush()
	if sess.tracker.err != nil {
		return sess.tracker.err
	}
	s.log.Info("river status connected", "outputs", len(sess.outputs), "seats", len(sess.seats))

	done := make(chan error, 1)
	go func() {
		for {
			if err := wctx.Dispatch(); err != nil {
				done <- fmt.Errorf("wayland dispatch: %w", err)
				return
			}
			if sess.tracker.err != nil {
				done <- sess.tracker.err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		wctx.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (s *session) roundtrip() error {
	cb, err := s.display.Sync()
	if err != nil {
		return fmt.Errorf("wayland sync: %w", err)
	}
	synced := false
	cb.SetDoneHandler(func(client.CallbackDoneEvent) { synced = true })
	for !synced {
		if err := s.display.Context().Dispatch(); err != nil {
			return fmt.Errorf("wayland dispatch: %w", err)
		}
		if s.tracker.err != nil {
			return s.tracker.err
		}
	}
	return nil
}

func (s *session) global(e client.RegistryGlobalEvent) {
	switch e.Interface {
	case statusManagerInterface:
		manager := NewStatusManager(s.display.Context())
		if err := s.registry.Bind(e.Name, e.Interface, min(e.Version, statusManagerVersion), manager); err != nil {
			s.log.Error("bind status manager", "err", err)
			return
		}
		s.manager = manager
		for name := range s.outputs {
			s.watchOutput(name)
		}
		for name := range s.seats {
			s.watchSeat(name)
		}
	case outputInterface:
		output := client.NewOutput(s.display.Context())
		if err := s.registry.Bind(e.Name, e.Interface, min(e.Version, outputVersion), output); err != nil {
			s.log.Error("bind output", "err", err)
			return
		}
		info := s.tracker.addOutput(e.Name, output.ID())
		output.SetNameHandler(func(ev client.OutputNameEvent) { info.name = ev.Name })
		output.SetDescriptionHandler(func(ev client.OutputDescriptionEvent) { info.description = ev.Description })
		output.SetGeometryHandler(func(ev client.OutputGeometryEvent) {
			info.make = ev.Make
			info.model = ev.Model
		})
		output.SetDoneHandler(func(client.OutputDoneEvent) { s.tracker.outputDone(info) })
		s.outputs[e.Name] = output
		if s.manager != nil {
			s.watchOutput(e.Name)
		}
	case seatInterface:
		seat := client.NewSeat(s.display.Context())
		if err := s.registry.Bind(e.Name, e.Interface, min(e.Version, seatVersion), seat); err != nil {
			s.log.Error("bind seat", "err", err)
			return
		}
		s.seats[e.Name] = seat
		s.seatIDs[e.Name] = s.tracker.addSeat(e.Name)
		if s.manager != nil {
			s.watchSeat(e.Name)
		}
	}
}

func (s *session) watchOutput(name uint32) {
	if _, ok := s.outputStatuses[name]; ok {
		return
	}
	info := s.tracker.outputs[name]
	status, err := s.manager.GetOutputStatus(s.outputs[name])
	if err != nil {
		s.log.Error("get output status", "output", info.id, "err", err)
		return
	}
	status.OnFocusedTags = func(tags uint32) { s.tracker.focusedTags(info, tags) }
	status.OnViewTags = func(views []uint32) { s.tracker.viewTags(info, views) }
	status.OnUrgentTags = func(tags uint32) { s.tracker.urgentTags(info, tags) }
	status.OnLayoutName = func(layout *string) { s.tracker.layout(info, layout) }
	s.outputStatuses[name] = status
}

func (s *session) watchSeat(name uint32) {
	if _, ok := s.seatStatuses[name]; ok {
		return
	}
	seat := s.seatIDs[name]
	status, err := s.manager.GetSeatStatus(s.seats[name])
	if err != nil {
		s.log.Error("get seat status", "seat", seat, "err", err)
		return
	}
	status.OnFocusedOutput = func(output uint32) { s.tracker.focusedOutput(seat, output) }
	status.OnUnfocusedOutput = func(output uint32) { s.tracker.unfocusedOutput(seat, output) }
	status.OnFocusedView = func(title string) { s.tracker.focusedView(seat, title) }
	status.OnMode = func(mode string) { s.tracker.mode(seat, mode) }
	s.seatStatuses[name] = status
}

func (s *session) globalRemove(e client.RegistryGlobalRemoveEvent) {
	if _, ok := s.tracker.removeGlobal(e.Name); !ok {
		return
	}
	if status, ok := s.outputStatuses[e.Name]; ok {
		if err := status.Destroy(); err != nil {
			s.log.Warn("destroy output status", "err", err)
		}
		delete(s.outputStatuses, e.Name)
	}
	if status, ok := s.seatStatuses[e.Name]; ok {
		if err := status.Destroy(); err != nil {
			s.log.Warn("destroy seat status", "err", err)
		}
		delete(s.seatStatuses, e.Name)
	}
	delete(s.outputs, e.Name)
	delete(s.seats, e.Name)
	delete(s.seatIDs, e.Name)
}
