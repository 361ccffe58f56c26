package gql

import (
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/typester/riverql/internal/state"
)

func objectID(id uint32) graphql.ID {
	return graphql.ID(strconv.FormatUint(uint64(id), 10))
}

// tagInt exposes a mask as a GraphQL Int; tag 31 wraps negative.
func tagInt(mask uint32) int32 {
	return int32(mask)
}

func tagList(mask uint32, enabled bool) *[]int32 {
	if !enabled {
		return nil
	}
	list := state.TagList(mask)
	return &list
}

type outputResolver struct {
	out     state.Output
	tagList bool
}

func (r *outputResolver) ID() graphql.ID            { return objectID(r.out.ID) }
func (r *outputResolver) Name() string              { return r.out.Name }
func (r *outputResolver) FocusedTags() int32        { return tagInt(r.out.FocusedTags) }
func (r *outputResolver) FocusedTagsList() *[]int32 { return tagList(r.out.FocusedTags, r.tagList) }
func (r *outputResolver) ViewTags() int32           { return tagInt(r.out.ViewTags) }
func (r *outputResolver) ViewTagsList() *[]int32    { return tagList(r.out.ViewTags, r.tagList) }
func (r *outputResolver) UrgentTags() int32         { return tagInt(r.out.UrgentTags) }
func (r *outputResolver) UrgentTagsList() *[]int32  { return tagList(r.out.UrgentTags, r.tagList) }
func (r *outputResolver) LayoutName() *string       { return r.out.LayoutName }

// eventResolver resolves the Event union.
type eventResolver struct {
	ev      state.Event
	tagList bool
}

func (r *eventResolver) output(kind state.Kind) (*outputEvent, bool) {
	if r.ev.Kind != kind {
		return nil, false
	}
	return &outputEvent{r.ev}, true
}

func (r *eventResolver) tags(kind state.Kind) (*tagsEvent, bool) {
	if r.ev.Kind != kind {
		return nil, false
	}
	return &tagsEvent{outputEvent{r.ev}, r.tagList}, true
}

func (r *eventResolver) ToOutputAdded() (*outputEvent, bool) {
	return r.output(state.KindOutputAdded)
}

func (r *eventResolver) ToOutputRemoved() (*outputEvent, bool) {
	return r.output(state.KindOutputRemoved)
}

func (r *eventResolver) ToOutputFocusedTags() (*tagsEvent, bool) {
	return r.tags(state.KindOutputFocusedTags)
}

func (r *eventResolver) ToOutputViewTags() (*tagsEvent, bool) {
	return r.tags(state.KindOutputViewTags)
}

func (r *eventResolver) ToOutputUrgentTags() (*tagsEvent, bool) {
	return r.tags(state.KindOutputUrgentTags)
}

func (r *eventResolver) ToOutputLayout() (*layoutEvent, bool) {
	if r.ev.Kind != state.KindOutputLayout {
		return nil, false
	}
	return &layoutEvent{outputEvent{r.ev}}, true
}

func (r *eventResolver) ToSeatFocusedOutput() (*seatFocusedOutputEvent, bool) {
	if r.ev.Kind != state.KindSeatFocusedOutput {
		return nil, false
	}
	return &seatFocusedOutputEvent{seatEvent{r.ev}}, true
}

func (r *eventResolver) ToSeatFocusedView() (*seatFocusedViewEvent, bool) {
	if r.ev.Kind != state.KindSeatFocusedView {
		return nil, false
	}
	return &seatFocusedViewEvent{seatEvent{r.ev}}, true
}

func (r *eventResolver) ToSeatMode() (*seatModeEvent, bool) {
	if r.ev.Kind != state.KindSeatMode {
		return nil, false
	}
	return &seatModeEvent{seatEvent{r.ev}}, true
}

type outputEvent struct {
	ev state.Event
}

func (e *outputEvent) OutputID() *graphql.ID {
	id := objectID(e.ev.OutputID)
	return &id
}

func (e *outputEvent) Name() *string { return &e.ev.OutputName }

type tagsEvent struct {
	outputEvent
	tagList bool
}

func (e *tagsEvent) Tags() int32        { return tagInt(e.ev.Tags) }
func (e *tagsEvent) TagsList() *[]int32 { return tagList(e.ev.Tags, e.tagList) }

type layoutEvent struct {
	outputEvent
}

func (e *layoutEvent) LayoutName() *string { return e.ev.LayoutName }

type seatEvent struct {
	ev state.Event
}

func (e *seatEvent) SeatID() graphql.ID { return objectID(e.ev.SeatID) }

type seatFocusedOutputEvent struct {
	seatEvent
}

func (e *seatFocusedOutputEvent) OutputID() *graphql.ID {
	if e.ev.OutputID == 0 {
		return nil
	}
	id := objectID(e.ev.OutputID)
	return &id
}

func (e *seatFocusedOutputEvent) Name() *string {
	return optional(e.ev.OutputName)
}

func (e *seatFocusedOutputEvent) PreviousName() *string {
	return optional(e.ev.PreviousOutputName)
}

type seatFocusedViewEvent struct {
	seatEvent
}

func (e *seatFocusedViewEvent) Title() string { return e.ev.Title }

type seatModeEvent struct {
	seatEvent
}

func (e *seatModeEvent) Name() *string { return &e.ev.Mode }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
