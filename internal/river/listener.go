package river

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/state"
)

// maxPending bounds the callbacks held for one output that has not been
// announced yet.
const maxPending = 64

// Applier is the mutation entry point the listener drives.
type Applier interface {
	Apply(cmd state.Command) ([]state.Event, error)
}

// Source delivers compositor callbacks, in order, to handle until ctx is
// cancelled, the source is exhausted, or handle returns an error.
type Source interface {
	Run(ctx context.Context, handle func(Callback) error) error
}

// Listener maps compositor callbacks onto state commands.
//
// It keeps the bookkeeping the store cannot: state callbacks for an output
// that is not announced yet are held and replayed right after its
// OutputAdded, and seat unfocus callbacks only clear focus when they name the
// output the seat currently focuses. Listener is not safe for concurrent use;
// feed it from a single goroutine.
type Listener struct {
	applier Applier
	log     pslog.Logger

	live    map[uint32]bool
	removed map[uint32]bool
	pending map[uint32][]state.Command
	focus   map[uint32]uint32
}

// NewListener creates a listener applying commands to applier.
func NewListener(applier Applier, logger pslog.Logger) *Listener {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Listener{
		applier: applier,
		log:     logger,
		live:    make(map[uint32]bool),
		removed: make(map[uint32]bool),
		pending: make(map[uint32][]state.Command),
		focus:   make(map[uint32]uint32),
	}
}

// Run drives the listener from src until it stops. A state invariant
// violation stops the source and is returned.
func (l *Listener) Run(ctx context.Context, src Source) error {
	return src.Run(ctx, l.Handle)
}

// Handle processes one callback. Only state invariant violations are
// returned; protocol anomalies are logged and dropped.
func (l *Listener) Handle(cb Callback) error {
	l.log.Trace("callback", "cb", cb.String())

	switch cb.Kind {
	case OutputAdded:
		return l.addOutput(cb)
	case OutputRemoved:
		return l.removeOutput(cb)
	case FocusedTagsChanged, ViewTagsChanged, UrgentTagsChanged, LayoutChanged:
		cmd, _ := cb.command()
		return l.outputCommand(cb.Output, cmd)
	case SeatFocusedOutput:
		if cb.Output != 0 {
			return l.outputCommand(cb.Output, state.FocusOutput(cb.Seat, cb.Output))
		}
		return l.apply(state.FocusOutput(cb.Seat, 0))
	case SeatUnfocusedOutput:
		if current, ok := l.focus[cb.Seat]; !ok || current != cb.Output {
			l.log.Debug("ignoring unfocus of output not focused by seat", "seat", cb.Seat, "output", cb.Output)
			return nil
		}
		return l.apply(state.FocusOutput(cb.Seat, 0))
	case SeatRemoved:
		delete(l.focus, cb.Seat)
		cmd, _ := cb.command()
		return l.apply(cmd)
	default:
		cmd, ok := cb.command()
		if !ok {
			l.log.Warn("protocol anomaly", "err", fmt.Sprintf("unknown callback kind %q", cb.Kind))
			return nil
		}
		return l.apply(cmd)
	}
}

func (l *Listener) addOutput(cb Callback) error {
	if err := l.apply(state.AddOutput(cb.Output, cb.Name)); err != nil {
		return err
	}
	if !l.live[cb.Output] {
		return nil
	}
	delete(l.removed, cb.Output)

	held := l.pending[cb.Output]
	delete(l.pending, cb.Output)
	for _, cmd := range held {
		if err := l.apply(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (l *Listener) removeOutput(cb Callback) error {
	if !l.live[cb.Output] {
		if l.removed[cb.Output] || cb.Output == 0 {
			l.log.Warn("protocol anomaly", "err", fmt.Sprintf("remove of unknown output %d", cb.Output))
			return nil
		}
		held := len(l.pending[cb.Output])
		delete(l.pending, cb.Output)
		l.removed[cb.Output] = true
		l.log.Debug("output removed before it was announced", "output", cb.Output, "dropped", held)
		return nil
	}
	if err := l.apply(state.RemoveOutput(cb.Output)); err != nil {
		return err
	}
	delete(l.live, cb.Output)
	l.removed[cb.Output] = true
	for seat, out := range l.focus {
		if out == cb.Output {
			delete(l.focus, seat)
		}
	}
	return nil
}

// outputCommand applies cmd when output is live and holds it when the output
// has not been announced yet.
func (l *Listener) outputCommand(output uint32, cmd state.Command) error {
	switch {
	case l.live[output]:
		return l.apply(cmd)
	case l.removed[output]:
		l.log.Warn("protocol anomaly", "err", fmt.Sprintf("%s for removed output %d", cmd.Op, output))
		return nil
	case output == 0:
		l.log.Warn("protocol anomaly", "err", fmt.Sprintf("%s for output id 0", cmd.Op))
		return nil
	}

	held := l.pending[output]
	if len(held) >= maxPending {
		l.log.Warn("dropping held callback", "output", output, "op", held[0].Op.String())
		held = held[1:]
	}
	l.pending[output] = append(held, cmd)
	l.log.Debug("holding callback for unannounced output", "output", output, "op", cmd.Op.String())
	return nil
}

func (l *Listener) apply(cmd state.Command) error {
	_, err := l.applier.Apply(cmd)
	if err != nil {
		if errors.Is(err, state.ErrStateInvariant) {
			return fmt.Errorf("apply %s: %w", cmd.Op, err)
		}
		l.log.Warn("protocol anomaly", "op", cmd.Op.String(), "err", err)
		return nil
	}

	switch cmd.Op {
	case state.OpOutputAdded:
		l.live[cmd.OutputID] = true
	case state.OpSeatFocusedOutput:
		if cmd.OutputID == 0 {
			delete(l.focus, cmd.SeatID)
		} else {
			l.focus[cmd.SeatID] = cmd.OutputID
		}
	}
	return nil
}
