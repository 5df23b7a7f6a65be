package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hypermobile  EDS", "hypermobile eds"},
		{"  Dr. LiCause,", "dr. licause"},
		{"(Ehlers-Danlos)", "ehlers-danlos"},
		{"Metformin\t500 mg", "metformin 500 mg"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.in))
		})
	}
}

func TestEntity_Key(t *testing.T) {
	a := Entity{Type: EntityCondition, Value: "Hypermobile EDS", SourceDocumentID: "doc-1"}
	b := Entity{Type: EntityCondition, Value: "hypermobile   eds.", SourceDocumentID: "doc-1"}
	c := Entity{Type: EntityCondition, Value: "hypermobile eds", SourceDocumentID: "doc-2"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, "condition|hypermobile eds|doc-1", a.Key().String())
}

func TestEntity_ContentHash(t *testing.T) {
	base := Entity{
		Type:       EntityMedication,
		Value:      "Metformin",
		Attributes: map[string]string{"dose": "500", "unit": "mg"},
		Confidence: 0.5,
	}

	t.Run("ignores confidence and verification", func(t *testing.T) {
		other := base
		other.Confidence = 0.9
		other.IsVerified = true
		assert.Equal(t, base.ContentHash(), other.ContentHash())
	})

	t.Run("changes with attributes", func(t *testing.T) {
		other := base
		other.Attributes = map[string]string{"dose": "1000", "unit": "mg"}
		assert.NotEqual(t, base.ContentHash(), other.ContentHash())
	})

	t.Run("changes with value", func(t *testing.T) {
		other := base
		other.Value = "Metoprolol"
		assert.NotEqual(t, base.ContentHash(), other.ContentHash())
	})
}

func TestEntitySet_AllAndCount(t *testing.T) {
	set := EntitySet{
		EntityProvider:  {{ID: "p1"}},
		EntityCondition: {{ID: "c1"}, {ID: "c2"}},
	}

	all := set.All()

	assert.Equal(t, 3, set.Count())
	assert.Equal(t, []string{"c1", "c2", "p1"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestEntityType_IsValid(t *testing.T) {
	for _, et := range AllEntityTypes() {
		assert.True(t, et.IsValid(), et.String())
	}
	assert.False(t, EntityType("allergy").IsValid())
}
