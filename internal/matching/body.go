package matching

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/oj"
)

// BodySimilarity scores two request bodies in [0,1]. JSON bodies are
// compared structurally, ignoring leaf values: the same keys holding the
// same shapes score 1.0 even when every value differs. XML bodies compare
// element trees. Anything else falls back to an edit-distance ratio. Two
// empty bodies are a perfect match; one empty body against content is 0.
func BodySimilarity(a, b []byte) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ja, errA := oj.Parse(a)
	jb, errB := oj.Parse(b)
	if errA == nil && errB == nil {
		return jsonStructureSimilarity(ja, jb)
	}

	if xa, xb := parseXML(a), parseXML(b); xa != nil && xb != nil {
		return xmlSimilarity(xa, xb)
	}

	return textSimilarity(string(a), string(b))
}

// jsonStructureSimilarity compares parsed JSON values by shape. Objects
// score key overlap blended with the similarity of values under shared
// keys; arrays compare element-wise when lengths agree and earn half credit
// otherwise; leaves score on type alone, never on value.
func jsonStructureSimilarity(a, b any) float64 {
	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok {
			return 0
		}
		return jsonObjectSimilarity(va, vb)
	case []any:
		vb, ok := b.([]any)
		if !ok {
			return 0
		}
		return jsonArraySimilarity(va, vb)
	default:
		return leafTypeSimilarity(a, b)
	}
}

func jsonObjectSimilarity(a, b map[string]any) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	common, union := 0, 0
	var valueSum float64
	for k, av := range a {
		union++
		if bv, ok := b[k]; ok {
			common++
			valueSum += jsonStructureSimilarity(av, bv)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			union++
		}
	}
	keyScore := float64(common) / float64(union)
	valueScore := 0.0
	if common > 0 {
		valueScore = valueSum / float64(common)
	}
	return keyScore*0.5 + valueScore*0.5
}

func jsonArraySimilarity(a, b []any) float64 {
	if len(a) != len(b) {
		return 0.5
	}
	if len(a) == 0 {
		return 1
	}
	var sum float64
	for i := range a {
		sum += jsonStructureSimilarity(a[i], b[i])
	}
	return sum / float64(len(a))
}

// leafTypeSimilarity ignores leaf values: two strings match, two numbers
// match, a string against a number does not.
func leafTypeSimilarity(a, b any) float64 {
	if jsonTypeOf(a) == jsonTypeOf(b) {
		return 1
	}
	return 0
}

func jsonTypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case int64, float64:
		return "number"
	default:
		return "other"
	}
}

func parseXML(data []byte) *etree.Document {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "<") {
		return nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(trimmed); err != nil || doc.Root() == nil {
		return nil
	}
	return doc
}

// xmlSimilarity compares element trees by tag structure, ignoring text
// content, mirroring the leaf-value-blind JSON comparison.
func xmlSimilarity(a, b *etree.Document) float64 {
	return xmlElementSimilarity(a.Root(), b.Root())
}

func xmlElementSimilarity(a, b *etree.Element) float64 {
	if a.Tag != b.Tag {
		return 0
	}
	ca, cb := a.ChildElements(), b.ChildElements()
	if len(ca) == 0 && len(cb) == 0 {
		return 1
	}
	if len(ca) != len(cb) {
		return 0.5
	}
	var sum float64
	for i := range ca {
		sum += xmlElementSimilarity(ca[i], cb[i])
	}
	// The matching root tag carries half the weight at each level.
	return 0.5 + 0.5*sum/float64(len(ca))
}
