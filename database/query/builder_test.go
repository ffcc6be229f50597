package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuilderCombinesPredicates(t *testing.T) {
	filter := NewBuilder().
		WhereInStrings("institution_type", []string{"ong", "church"}).
		WhereGTE("average_rating", 4.5).
		Where("id", "1").
		Build()

	assert.Equal(t, bson.M{
		"institution_type": bson.M{"$in": []interface{}{"ong", "church"}},
		"average_rating":   bson.M{"$gte": 4.5},
		"id":               "1",
	}, filter)
}

func TestBuilderSkipsEmptyIn(t *testing.T) {
	filter := NewBuilder().WhereInStrings("institution_type", nil).Build()
	assert.Empty(t, filter)
}
