package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// Transaction holds the schema definition for the Transaction entity.
type Transaction struct {
	ent.Schema
}

// Fields of the Transaction.
func (Transaction) Fields() []ent.Field {
	return []ent.Field{
		field.String("user_id"),
		field.String("session_id").Optional(),
		field.String("type"), // bet / cashout / deposit / refund / abandoned
		field.Int64("amount"),
		field.String("currency").Optional(),
		field.Int("status"),
		field.String("description").Optional(),
		field.Int64("final_balance"),
		field.Float("multiplier").Optional(),
		field.Time("timestamp").
			Default(time.Now), // auto-set on create
	}
}

// Edges of the Transaction.
func (Transaction) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("round", Round.Type).
			Ref("transactions").
			Unique(),
	}
}
