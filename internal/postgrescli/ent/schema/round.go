package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// Round holds the schema definition for the archived Round entity.
type Round struct {
	ent.Schema
}

// Fields of the Round.
func (Round) Fields() []ent.Field {
	return []ent.Field{
		field.Int("sequence"),
		field.String("seed"),
		field.String("seed_hash"),
		field.Time("start_time"),
		field.Time("crashed_at").
			Default(time.Now), // auto-set on create
		field.Float("crash_point"),
		field.Int64("total_stake"),
		field.Int("player_count"),
		field.String("end_reason"), // terminal / risk_stop / payout_cap / recovered / abandoned
		field.JSON("history", []map[string]interface{}{}).Optional(),
	}
}

// Edges of the Round.
func (Round) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("bets", Bet.Type),
		edge.To("transactions", Transaction.Type),
	}
}
