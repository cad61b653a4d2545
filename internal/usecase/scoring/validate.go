package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// maxEvidenceWords caps every evidence quote
const maxEvidenceWords = 25

const (
	reasonInvalidJSON  = "Invalid JSON from model"
	summaryInvalidKeys = "Model returned invalid response format"
	summaryNotBoolean  = "Model returned non-boolean qualified field"
	summaryNotNumeric  = "Model returned non-numeric score field"
	defaultReason      = "No reason provided"
	defaultSummary     = "Not stated."
	salesInvalidCoach  = "Unable to assess - model returned invalid response"
	maxTaxonomyLabels  = 5
	maxServices        = 3
	correctiveBase     = "\n\nYou returned invalid JSON. Return exactly the schema."
	correctiveSales    = "\n\nYou returned invalid JSON. Return exactly the schema with: qualified, score, reason, evidence, coaching_note"
)

// shape is the contract one rubric pass holds its model output to
type shape struct {
	keys []string
	// check reports why a decoded object breaks the contract, or ""
	check func(obj map[string]interface{}) string
	// salvage may coerce a still-invalid object after the corrective retry
	salvage func(obj map[string]interface{}) bool
	// corrective is appended to the prompt for the retry
	corrective string
}

func (s shape) validate(obj map[string]interface{}) string {
	if !exactKeys(obj, s.keys) {
		return summaryInvalidKeys
	}
	if s.check != nil {
		return s.check(obj)
	}
	return ""
}

var sectionShape = shape{
	keys:       []string{"qualified", "reason", "summary", "evidence"},
	check:      requireBoolQualified,
	corrective: correctiveBase,
}

var fitKeys = []string{"qualified", "reason", "summary", "services", "evidence"}

var fitShape = shape{
	keys: fitKeys,
	check: func(obj map[string]interface{}) string {
		if msg := requireBoolQualified(obj); msg != "" {
			return msg
		}
		if _, ok := obj["services"].([]interface{}); !ok {
			return "Model returned non-list services field"
		}
		return ""
	},
	salvage: func(obj map[string]interface{}) bool {
		if !exactKeys(obj, fitKeys) || requireBoolQualified(obj) != "" {
			return false
		}
		obj["services"] = []interface{}{}
		return true
	},
	corrective: correctiveBase,
}

var salesShape = shape{
	keys: []string{"qualified", "score", "reason", "evidence", "coaching_note"},
	check: func(obj map[string]interface{}) string {
		if msg := requireBoolQualified(obj); msg != "" {
			return msg
		}
		if _, ok := obj["score"].(float64); !ok {
			return summaryNotNumeric
		}
		return ""
	},
	corrective: correctiveSales,
}

var taxonomyShape = shape{
	keys: []string{"challenges", "results", "offering"},
	check: func(obj map[string]interface{}) string {
		for _, key := range []string{"challenges", "results"} {
			if obj[key] == nil {
				continue
			}
			if _, ok := obj[key].([]interface{}); !ok {
				return fmt.Sprintf("Model returned non-list %s field", key)
			}
		}
		return ""
	},
	corrective: correctiveBase,
}

var clientShape = shape{
	keys:       []string{"client", "domain", "size"},
	corrective: correctiveBase,
}

func requireBoolQualified(obj map[string]interface{}) string {
	if _, ok := obj["qualified"].(bool); !ok {
		return summaryNotBoolean
	}
	return ""
}

func exactKeys(obj map[string]interface{}, keys []string) bool {
	if len(obj) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

// stripFences removes an optional ```json or ``` wrapper
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(content, "```json"):
		content = strings.TrimPrefix(content, "```json")
	case strings.HasPrefix(content, "```"):
		content = strings.TrimPrefix(content, "```")
	default:
		return content
	}
	if idx := strings.LastIndex(content, "```"); idx != -1 {
		content = content[:idx]
	}
	return strings.TrimSpace(content)
}

// decodeObject parses a model reply into a JSON object. A list-valued
// evidence field is joined into one string.
func decodeObject(content string) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(stripFences(content)), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	if list, ok := obj["evidence"].([]interface{}); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		obj["evidence"] = strings.Join(parts, " ")
	}
	return obj, nil
}

// cleanEvidence returns nil for missing or blank evidence and truncates the
// rest to the word cap.
func cleanEvidence(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return entities.StringPtr(truncateWords(strings.TrimSpace(s), maxEvidenceWords))
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}

func stringField(obj map[string]interface{}, key, fallback string) string {
	if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fallback
}

func sectionFromObject(obj map[string]interface{}) entities.SectionResult {
	qualified, _ := obj["qualified"].(bool)
	return entities.SectionResult{
		Qualified: qualified,
		Reason:    stringField(obj, "reason", defaultReason),
		Summary:   stringField(obj, "summary", defaultSummary),
		Evidence:  cleanEvidence(obj["evidence"]),
	}
}

func fitFromObject(obj map[string]interface{}) entities.FitResult {
	section := sectionFromObject(obj)
	services, _ := obj["services"].([]interface{})
	return entities.FitResult{
		Qualified: section.Qualified,
		Reason:    section.Reason,
		Summary:   section.Summary,
		Services:  NormalizeServices(services),
		Evidence:  section.Evidence,
	}
}

func defaultSection(reason, summary string) entities.SectionResult {
	return entities.SectionResult{Reason: reason, Summary: summary}
}

func defaultFit(reason, summary string) entities.FitResult {
	return entities.FitResult{Reason: reason, Summary: summary, Services: []string{}}
}

var serviceAliases = map[string]string{
	"access":    entities.ServiceAccess,
	"talent":    entities.ServiceAccess,
	"transform": entities.ServiceTransform,
	"evolve":    entities.ServiceTransform,
	"ventures":  entities.ServiceVentures,
	"venture":   entities.ServiceVentures,
}

// NormalizeServices maps service mentions onto the canonical names,
// dropping unknown values and duplicates while keeping first-seen order.
func NormalizeServices(values []interface{}) []string {
	out := []string{}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		canonical, ok := serviceAliases[strings.ToLower(strings.TrimSpace(s))]
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
		if len(out) == maxServices {
			break
		}
	}
	return out
}

// coerceScore clamps a sales score to 0..3. Fractions are truncated and
// anything non-numeric counts as 0.
func coerceScore(v interface{}) int {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > entities.MaxSalesScore:
		return entities.MaxSalesScore
	}
	return int(math.Trunc(f))
}

func salesFromObject(obj map[string]interface{}) entities.SalesAssessmentResult {
	score := coerceScore(obj["score"])
	return entities.SalesAssessmentResult{
		Qualified:    score >= 2,
		Score:        score,
		Reason:       stringField(obj, "reason", defaultReason),
		Evidence:     cleanEvidence(obj["evidence"]),
		CoachingNote: entities.StringPtr(stringField(obj, "coaching_note", "")),
	}
}

func defaultSales(reason string, note string) entities.SalesAssessmentResult {
	return entities.SalesAssessmentResult{
		Reason:       reason,
		CoachingNote: entities.StringPtr(note),
	}
}

var (
	challengeSet = toSet(ChallengesVocabulary)
	resultSet    = toSet(ResultsVocabulary)
	offeringSet  = toSet(OfferingsVocabulary)
)

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// FilterTaxonomy keeps only exact vocabulary members, at most five
// challenges and results and a single offering.
func FilterTaxonomy(obj map[string]interface{}) entities.Taxonomy {
	tax := entities.Taxonomy{
		Challenges: filterLabels(obj["challenges"], challengeSet, maxTaxonomyLabels),
		Results:    filterLabels(obj["results"], resultSet, maxTaxonomyLabels),
	}

	switch v := obj["offering"].(type) {
	case string:
		if offeringSet[strings.TrimSpace(v)] {
			tax.Offering = entities.StringPtr(strings.TrimSpace(v))
		}
	case []interface{}:
		if labels := filterLabels(v, offeringSet, 1); len(labels) == 1 {
			tax.Offering = &labels[0]
		}
	}
	return tax
}

func filterLabels(v interface{}, allowed map[string]bool, limit int) []string {
	out := []string{}
	list, ok := v.([]interface{})
	if !ok {
		return out
	}
	seen := make(map[string]bool, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if !allowed[s] || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

func emptyTaxonomy() entities.Taxonomy {
	return entities.Taxonomy{Challenges: []string{}, Results: []string{}}
}

// sortedKeys is used when logging a rejected object
func sortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
