package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Builder assembles a Mongo filter document one predicate at a time.
type Builder struct {
	filter bson.M
}

func NewBuilder() *Builder {
	return &Builder{filter: bson.M{}}
}

func (b *Builder) Where(key string, value interface{}) *Builder {
	b.filter[key] = value
	return b
}

// WhereIn skips empty sets so callers can pass optional filters unconditionally.
func (b *Builder) WhereIn(key string, values []interface{}) *Builder {
	if len(values) == 0 {
		return b
	}
	b.filter[key] = bson.M{"$in": values}
	return b
}

// WhereInStrings is WhereIn for string slices.
func (b *Builder) WhereInStrings(key string, values []string) *Builder {
	in := make([]interface{}, len(values))
	for i, v := range values {
		in[i] = v
	}
	return b.WhereIn(key, in)
}

func (b *Builder) WhereGTE(key string, value interface{}) *Builder {
	b.filter[key] = bson.M{"$gte": value}
	return b
}

func (b *Builder) Build() bson.M {
	return b.filter
}
