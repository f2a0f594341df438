package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// SystemState holds the schema definition for the singular recovery
// snapshot row (house state + engagement counters + open round).
type SystemState struct {
	ent.Schema
}

// Fields of the SystemState.
func (SystemState) Fields() []ent.Field {
	return []ent.Field{
		field.Bytes("snapshot"),
		field.Time("saved_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}
