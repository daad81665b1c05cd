package store

import (
	"math"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableLLMEvents     = "llm_request_events"
	tableAttemptEvents = "attempt_events"
	tableSequence      = "global_sequence"
)

// Every event table starts with the same id/sequence/timestamp columns.
func eventColumns() []*schema.Column {
	return []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
	}
}

func text(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: math.MaxInt32, Default: ""}
}

func str(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Default: ""}
}

func integer(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeInt, Default: 0}
}

var llmEventsColumns = append(eventColumns(),
	str("provider"),
	str("model"),
	str("purpose"),
	str("learner_id"),
	integer("input_tokens"),
	integer("output_tokens"),
	&schema.Column{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
	&schema.Column{Name: "success", Type: field.TypeBool},
	text("error_message"),
	text("request_body"),
	text("response_body"),
)

var llmEventsTable = &schema.Table{
	Name:       tableLLMEvents,
	Columns:    llmEventsColumns,
	PrimaryKey: []*schema.Column{llmEventsColumns[0]},
	Indexes: []*schema.Index{
		{Name: "llmrequestevent_timestamp", Columns: []*schema.Column{llmEventsColumns[2]}},
		{Name: "llmrequestevent_purpose", Columns: []*schema.Column{llmEventsColumns[5]}},
		{Name: "llmrequestevent_learner_id", Columns: []*schema.Column{llmEventsColumns[6]}},
	},
}

var attemptEventsColumns = append(eventColumns(),
	str("learner_id"),
	str("tracking_code"),
	text("sentence"),
	text("translation"),
	&schema.Column{Name: "correct", Type: field.TypeBool},
	text("error_detail"),
	text("correct_translation"),
	str("sentence_type"),
	str("topic"),
	integer("level"),
	integer("progress_after"),
	&schema.Column{Name: "graded_at", Type: field.TypeTime},
)

var attemptEventsTable = &schema.Table{
	Name:       tableAttemptEvents,
	Columns:    attemptEventsColumns,
	PrimaryKey: []*schema.Column{attemptEventsColumns[0]},
	Indexes: []*schema.Index{
		{Name: "attemptevent_timestamp", Columns: []*schema.Column{attemptEventsColumns[2]}},
		{Name: "attemptevent_learner_id", Columns: []*schema.Column{attemptEventsColumns[3]}},
	},
}

var sequenceColumns = []*schema.Column{
	{Name: "id", Type: field.TypeInt},
	{Name: "next_val", Type: field.TypeInt64, Default: 1},
}

var sequenceTable = &schema.Table{
	Name:       tableSequence,
	Columns:    sequenceColumns,
	PrimaryKey: []*schema.Column{sequenceColumns[0]},
}

var tables = []*schema.Table{
	llmEventsTable,
	attemptEventsTable,
	sequenceTable,
}
