package mapper

import (
	"sort"
	"strings"

	"pulsehq.app/pulse/internal/model"
)

// keywordThreshold is deliberately lower than the embedding threshold:
// lexical overlap is a weaker signal than embedding similarity, so this is
// a separate calibration, not the same constant reused.
const keywordThreshold = 0.3

// matchByKeywords is the lower-fidelity mapping mode used when no embedding
// capability is configured. A feature matches when any of its name or
// related keywords appears as a substring of the group's lower-cased text;
// the score is the fraction of keywords that matched.
func matchByKeywords(group model.Group, features []model.Feature) ([]model.FeatureRef, bool) {
	text := strings.ToLower(GroupText(group))
	if text == "" {
		return []model.FeatureRef{model.GeneralFeature()}, false
	}

	type match struct {
		ref   model.FeatureRef
		score float64
	}
	var matches []match

	for _, f := range features {
		keywords := append([]string{f.Name}, f.RelatedKeywords...)
		matched := 0
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(text, kw) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(keywords))
		if score >= keywordThreshold {
			matches = append(matches, match{ref: model.FeatureRef{ID: f.ID, Name: f.Name}, score: score})
		}
	}

	if len(matches) == 0 {
		return []model.FeatureRef{model.GeneralFeature()}, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].ref.ID < matches[j].ref.ID
	})
	if len(matches) > maxFeaturesPerGroup {
		matches = matches[:maxFeaturesPerGroup]
	}

	refs := make([]model.FeatureRef, len(matches))
	for i, mt := range matches {
		refs[i] = mt.ref
	}
	return refs, len(refs) > 1
}
