package simulate

import (
	"github.com/bretkramer/ethos-content-creator/internal/enroll"
)

// Question-bearing content block types. A card is a question iff its
// content carries one of these; everything else is decorative and excluded
// from scoring.
var questionTypes = map[string]struct{}{
	"singleChoice":   {},
	"multipleChoice": {},
	"trueFalse":      {},
}

// questionBlock finds the first question-type block in a card's content
// definition. Content is either {"blocks": [...]} or a bare block array,
// depending on the tenant.
func questionBlock(card map[string]interface{}) (map[string]interface{}, bool) {
	var blocks []interface{}
	switch c := card["content"].(type) {
	case map[string]interface{}:
		blocks, _ = c["blocks"].([]interface{})
	case []interface{}:
		blocks = c
	default:
		return nil, false
	}
	for _, b := range blocks {
		block, ok := b.(map[string]interface{})
		if !ok {
			continue
		}
		typ, _ := block["type"].(string)
		if _, ok := questionTypes[typ]; ok {
			return block, true
		}
	}
	return nil, false
}

// pickOption selects one option whose correctness flag matches the target.
// Missing flags count as incorrect options.
func pickOption(block map[string]interface{}, wantCorrect bool) (string, bool) {
	opts, _ := block["options"].([]interface{})
	for _, o := range opts {
		opt, ok := o.(map[string]interface{})
		if !ok {
			continue
		}
		correct, _ := opt["correct"].(bool)
		if correct != wantCorrect {
			continue
		}
		if id := enroll.ExtractID(opt); id != "" {
			return id, true
		}
	}
	return "", false
}

// scoreOf reports a settled score. Grading is asynchronous, so a missing,
// null, or zero value means "not settled yet".
func scoreOf(rec map[string]interface{}) (float64, bool) {
	for _, k := range []string{"score", "percentage", "result"} {
		if v, ok := rec[k].(float64); ok && v != 0 {
			return v, true
		}
	}
	return 0, false
}
