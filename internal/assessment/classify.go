package assessment

import "strings"

// Tags is the set of catalog keys attached to an assessment. A nil Tags means
// the source carried no tag information at all, which is different from an
// empty set.
type Tags map[string]struct{}

// NewTags builds a tag set, ignoring blank keys. Keys are compared case-insensitively.
func NewTags(keys ...string) Tags {
	tags := make(Tags, len(keys))
	for _, key := range keys {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		tags[key] = struct{}{}
	}
	return tags
}

func (t Tags) hasAny(markers ...string) bool {
	for _, m := range markers {
		if _, ok := t[m]; ok {
			return true
		}
	}
	return false
}

var (
	cognitiveMarkers   = []string{"c", "cognitive"}
	personalityMarkers = []string{"p", "personality"}
	skillMarkers       = []string{"s", "t", "skill", "skills", "technical"}
	adaptiveMarkers    = []string{"a", "adaptive", "irt"}
)

// ClassifyTestType maps a tag set to a test type. The checks run in priority
// order: Cognitive, Personality, Skill-based, then Other. Without any tag
// information the type is Unknown.
func ClassifyTestType(tags Tags) TestType {
	switch {
	case tags == nil:
		return Unknown
	case tags.hasAny(cognitiveMarkers...):
		return Cognitive
	case tags.hasAny(personalityMarkers...):
		return Personality
	case tags.hasAny(skillMarkers...):
		return SkillBased
	default:
		return Other
	}
}

// ClassifyAdaptive reports adaptive/IRT support from a tag set.
func ClassifyAdaptive(tags Tags) YesNo {
	if tags.hasAny(adaptiveMarkers...) {
		return Yes
	}
	return No
}
