package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// Bet holds the schema definition for the archived Bet entity.
type Bet struct {
	ent.Schema
}

// Fields of the Bet.
func (Bet) Fields() []ent.Field {
	return []ent.Field{
		field.String("user_id"),
		field.Int64("amount"),
		field.Float("entry_multiplier"),
		field.Time("placed_at"),
		field.Bool("collected"),
		field.String("outcome"), // WON / LOST / ABANDONED
		field.Float("cash_out_multiplier").Optional(),
		field.Int64("cash_out_amount").Optional(),
		field.Time("cash_out_time").Optional(),
		field.String("tx_ref"),
	}
}

// Edges of the Bet.
func (Bet) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("round", Round.Type).
			Ref("bets").
			Unique(),
	}
}
