package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, stripFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripFences(`  {"a": 1}  `))
}

func TestDecodeObject_JoinsListEvidence(t *testing.T) {
	obj, err := decodeObject(`{"qualified": true, "evidence": ["We need", "a CFO"]}`)
	require.NoError(t, err)
	assert.Equal(t, "We need a CFO", obj["evidence"])

	_, err = decodeObject(`[1, 2]`)
	assert.Error(t, err)
	_, err = decodeObject(`null`)
	assert.Error(t, err)
}

func TestCleanEvidence(t *testing.T) {
	assert.Nil(t, cleanEvidence(nil))
	assert.Nil(t, cleanEvidence("   "))
	assert.Nil(t, cleanEvidence(42.0))
	require.NotNil(t, cleanEvidence(" quote "))
	assert.Equal(t, "quote", *cleanEvidence(" quote "))
}

func TestNormalizeServices(t *testing.T) {
	got := NormalizeServices([]interface{}{"talent", "EVOLVE", "Access", " venture ", "Consulting", 7})
	assert.Equal(t, []string{entities.ServiceAccess, entities.ServiceTransform, entities.ServiceVentures}, got)

	got = NormalizeServices([]interface{}{"ventures", "transform", "ACCESS"})
	assert.Equal(t, []string{entities.ServiceVentures, entities.ServiceTransform, entities.ServiceAccess}, got)

	got = NormalizeServices(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	canonical := map[string]bool{entities.ServiceAccess: true, entities.ServiceTransform: true, entities.ServiceVentures: true}
	for _, s := range NormalizeServices([]interface{}{"Talent", "talent", "access", "Evolve", "weird"}) {
		assert.True(t, canonical[s], s)
	}
}

func TestFilterTaxonomy_ClosedVocabularies(t *testing.T) {
	obj := map[string]interface{}{
		"challenges": []interface{}{
			"Succession planning",
			"succession planning",
			"Expand locations",
			"Made up challenge",
			"Shrinking margin",
			"Spikes in workload",
			"Elevating creativity",
			"Consolidating agencies",
		},
		"results":  []interface{}{"Revenue Growth", "Revenue Growth", "World peace", 3},
		"offering": []interface{}{"Not a type", "Fintech", "Gaming"},
	}

	tax := FilterTaxonomy(obj)
	assert.Equal(t, []string{"Succession planning", "Expand locations", "Shrinking margin", "Spikes in workload", "Elevating creativity"}, tax.Challenges)
	assert.Equal(t, []string{"Revenue Growth"}, tax.Results)
	require.NotNil(t, tax.Offering)
	assert.Equal(t, "Fintech", *tax.Offering)

	for _, c := range tax.Challenges {
		assert.Contains(t, ChallengesVocabulary, c)
	}
	for _, r := range tax.Results {
		assert.Contains(t, ResultsVocabulary, r)
	}
}

func TestFilterTaxonomy_OfferingString(t *testing.T) {
	tax := FilterTaxonomy(map[string]interface{}{"challenges": nil, "results": nil, "offering": "PR / Comms"})
	require.NotNil(t, tax.Offering)
	assert.Equal(t, "PR / Comms", *tax.Offering)
	assert.Empty(t, tax.Challenges)

	tax = FilterTaxonomy(map[string]interface{}{"offering": "pr / comms"})
	assert.Nil(t, tax.Offering)
}

func TestCoerceScore(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int
	}{
		{2.0, 2},
		{2.9, 2},
		{7.0, 3},
		{-1.0, 0},
		{"3", 0},
		{nil, 0},
		{true, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, coerceScore(tt.in), "%v", tt.in)
	}
}

func TestSalesFromObject_QualifiedDerivedFromScore(t *testing.T) {
	res := salesFromObject(map[string]interface{}{
		"qualified": true, "score": 1.0, "reason": "thin", "evidence": nil, "coaching_note": "Ask about budget",
	})
	assert.False(t, res.Qualified)
	assert.Equal(t, 1, res.Score)
	require.NotNil(t, res.CoachingNote)
	assert.Equal(t, "Ask about budget", *res.CoachingNote)

	res = salesFromObject(map[string]interface{}{
		"qualified": false, "score": 2.0, "reason": "", "evidence": "quote", "coaching_note": nil,
	})
	assert.True(t, res.Qualified)
	assert.Equal(t, defaultReason, res.Reason)
	assert.Nil(t, res.CoachingNote)
}
