// Package gql exposes the bridge as a GraphQL schema.
package gql

import (
	"context"
	"runtime/debug"

	graphql "github.com/graph-gophers/graphql-go"
	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/bridge"
)

// SDL is the schema served by riverql.
const SDL = `
schema {
	query: Query
	subscription: Subscription
}

type Query {
	"""All live outputs ordered by id."""
	outputs(tagList: Boolean = false): [Output!]!
	"""The live output with the given name, or null."""
	output(name: String!, tagList: Boolean = false): Output
	"""The output focused by the default seat, or null."""
	seatFocusedOutput(tagList: Boolean = false): Output
	"""The title of the view focused by the default seat."""
	seatFocusedView: String
	"""The mode of the default seat."""
	seatMode: String
}

type Subscription {
	"""Current state as a snapshot, then every change."""
	events(types: [EventType!], tagList: Boolean = false): Event!
	"""Like events, restricted to one output by name."""
	eventsForOutput(outputName: String!, types: [EventType!], tagList: Boolean = false): Event!
}

type Output {
	id: ID!
	name: String!
	focusedTags: Int!
	"""Set bits of focusedTags, 0-based; null unless tagList is true."""
	focusedTagsList: [Int!]
	viewTags: Int!
	viewTagsList: [Int!]
	urgentTags: Int!
	urgentTagsList: [Int!]
	layoutName: String
}

enum EventType {
	OutputAdded
	OutputRemoved
	OutputFocusedTags
	OutputViewTags
	OutputUrgentTags
	OutputLayout
	SeatFocusedOutput
	SeatFocusedView
	SeatMode
}

# Fields shared by several members (outputId, name, seatId) have one type
# across the union so a selection can read them on every member at once.
union Event = OutputAdded | OutputRemoved | OutputFocusedTags | OutputViewTags | OutputUrgentTags | OutputLayout | SeatFocusedOutput | SeatFocusedView | SeatMode

type OutputAdded {
	outputId: ID
	name: String
}

type OutputRemoved {
	outputId: ID
	name: String
}

type OutputFocusedTags {
	outputId: ID
	name: String
	tags: Int!
	tagsList: [Int!]
}

type OutputViewTags {
	outputId: ID
	name: String
	tags: Int!
	tagsList: [Int!]
}

type OutputUrgentTags {
	outputId: ID
	name: String
	tags: Int!
	tagsList: [Int!]
}

type OutputLayout {
	outputId: ID
	name: String
	"""Null when the layout name was cleared."""
	layoutName: String
}

type SeatFocusedOutput {
	seatId: ID!
	"""Null when the seat lost focus without focusing another output."""
	outputId: ID
	name: String
	previousName: String
}

type SeatFocusedView {
	seatId: ID!
	title: String!
}

type SeatMode {
	seatId: ID!
	name: String
}
`

// NewSchema parses SDL against a resolver backed by b.
func NewSchema(b *bridge.Bridge, logger pslog.Logger) *graphql.Schema {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return graphql.MustParseSchema(SDL, &Resolver{bridge: b, log: logger},
		graphql.UseStringDescriptions(),
		graphql.Logger(panicLogger{log: logger}),
	)
}

type panicLogger struct {
	log pslog.Logger
}

func (l panicLogger) LogPanic(_ context.Context, value interface{}) {
	l.log.Error("graphql resolver panic", "panic", value, "stack", string(debug.Stack()))
}
