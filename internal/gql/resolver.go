package gql

import (
	"context"
	"fmt"

	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/bridge"
	"github.com/typester/riverql/internal/logx"
	"github.com/typester/riverql/internal/state"
)

// Resolver is the root resolver for queries and subscriptions.
type Resolver struct {
	bridge *bridge.Bridge
	log    pslog.Logger
}

type tagListArgs struct {
	TagList bool
}

func (r *Resolver) Outputs(args tagListArgs) []*outputResolver {
	outputs := r.bridge.Outputs()
	result := make([]*outputResolver, 0, len(outputs))
	for _, out := range outputs {
		result = append(result, &outputResolver{out: out, tagList: args.TagList})
	}
	return result
}

func (r *Resolver) Output(args struct {
	Name    string
	TagList bool
}) *outputResolver {
	out, ok := r.bridge.Output(args.Name)
	if !ok {
		return nil
	}
	return &outputResolver{out: out, tagList: args.TagList}
}

func (r *Resolver) SeatFocusedOutput(args tagListArgs) *outputResolver {
	out, ok := r.bridge.SeatFocusedOutput()
	if !ok {
		return nil
	}
	return &outputResolver{out: out, tagList: args.TagList}
}

func (r *Resolver) SeatFocusedView() *string {
	seat, ok := r.bridge.DefaultSeat()
	if !ok {
		return nil
	}
	return seat.FocusedView
}

func (r *Resolver) SeatMode() *string {
	seat, ok := r.bridge.DefaultSeat()
	if !ok {
		return nil
	}
	return seat.Mode
}

func (r *Resolver) Events(ctx context.Context, args struct {
	Types   *[]string
	TagList bool
}) (<-chan *eventResolver, error) {
	return r.subscribe(ctx, args.Types, "", args.TagList)
}

func (r *Resolver) EventsForOutput(ctx context.Context, args struct {
	OutputName string
	Types      *[]string
	TagList    bool
}) (<-chan *eventResolver, error) {
	if args.OutputName == "" {
		return nil, fmt.Errorf("outputName must not be empty")
	}
	return r.subscribe(ctx, args.Types, args.OutputName, args.TagList)
}

// subscribe registers with the bridge and streams the snapshot followed by
// live events until ctx ends or the bridge drops the subscription.
func (r *Resolver) subscribe(ctx context.Context, types *[]string, outputName string, tagList bool) (<-chan *eventResolver, error) {
	var kinds []state.Kind
	if types != nil {
		for _, name := range *types {
			kind := state.Kind(name)
			if !kind.Valid() {
				return nil, fmt.Errorf("unknown event type %q", name)
			}
			kinds = append(kinds, kind)
		}
	}

	sub, snapshot, err := r.bridge.Subscribe(bridge.NewFilter(kinds, outputName), tagList)
	if err != nil {
		return nil, err
	}
	log := logx.WithSubscription(logx.Ctx(ctx), sub.ID, "")
	log.Debug("subscription started", "output", outputName, "snapshot", len(snapshot))

	out := make(chan *eventResolver)
	go func() {
		defer close(out)
		defer r.bridge.Unsubscribe(sub)

		send := func(ev state.Event) bool {
			select {
			case out <- &eventResolver{ev: ev, tagList: sub.TagList}:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, ev := range snapshot {
			if !send(ev) {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				log.Debug("subscription cancelled")
				return
			case ev, ok := <-sub.Events():
				if !ok {
					log.Info("subscription dropped by bridge")
					return
				}
				if !send(ev) {
					return
				}
			}
		}
	}()
	return out, nil
}
