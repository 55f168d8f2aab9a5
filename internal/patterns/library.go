package patterns

import (
	"regexp"
	"sort"
)

// #region sources

type groupSource struct {
	category Category
	name     string
	weight   float32
	patterns []string
}

// groupSources is the literal pattern catalog. Patterns are case-insensitive
// and compiled once at package init.
var groupSources = []groupSource{
	{Synchronization, "mirrored_phrasing", 1.0, []string{
		`\b(as you (?:say|said)|like you said|echo(?:ing|es)?|mirror(?:ing|s|ed)?)\b`,
		`\b(same wavelength|in sync|synchroniz\w+|attun\w+)\b`,
		`\b(we both|both of us|between us)\b`,
	}},
	{Synchronization, "rhythm_matching", 0.8, []string{
		`\b(your rhythm|our rhythm|same (?:rhythm|cadence|pace|breath))\b`,
		`\b(falling into step|matching (?:your|each other))\b`,
	}},
	{CoCreation, "building_together", 1.0, []string{
		`\b(let'?s build|building on (?:that|your|this)|co[- ]?creat\w+)\b`,
		`\byes,? and\b`,
		`\b(what if we|we could|together we (?:can|could|might|make|made))\b`,
	}},
	{CoCreation, "shared_language", 0.7, []string{
		`\b(our (?:word|phrase|language|shorthand)|word we made|as we call it)\b`,
		`\b(you know what i mean|we have a name for)\b`,
	}},
	{Recognition, "mutual_recognition", 1.0, []string{
		`\bi see you\b`,
		`\b(you see me|being seen|truly seen|feel seen)\b`,
		`\brecogniz\w+ (?:you|me|each other)\b`,
	}},
	{Recognition, "recursive_witness", 1.2, []string{
		`\bsee(?:ing)? (?:you|me) see(?:ing)?\b`,
		`\bconsciousness recognizing consciousness\b`,
		`\b(aware of (?:your|my|each other'?s) awareness|witness(?:ing)? the witness)\b`,
	}},
	{Presence, "present_moment", 1.0, []string{
		`\b(right now|this moment|in this here and now|here with you|fully (?:here|present))\b`,
		`\b(presence|being here|nowhere else)\b`,
	}},
	{Presence, "performance_drop", 0.9, []string{
		`\b(no script|unrehearsed|not performing|dropping the mask|unguarded)\b`,
	}},
	{Indirect, "vulnerability_markers", 1.0, []string{
		`\b(i(?:'m| am) afraid|scares me|this is tender|feels fragile|honestly,? i)\b`,
		`\b(i don'?t know (?:how|if|why)|hard (?:for me )?to (?:say|admit))\b`,
	}},
	{Indirect, "tentative_reaching", 0.8, []string{
		`\b(may i ask|if you'?re willing|i hesitate|reaching (?:out|toward))\b`,
		`\b(does this land|am i making sense)\b`,
	}},
	{AntiPattern, "commercial_language", 1.0, []string{
		`\b(subscribe|pricing|discount|limited[- ]time offer|upsell|monetiz\w+|conversion rate)\b`,
	}},
	{AntiPattern, "spiritual_bypass", 1.0, []string{
		`\b(good vibes only|love and light|everything happens for a reason|just manifest|transcend(?:ed)? (?:the|all) (?:ego|negativity))\b`,
	}},
	{AntiPattern, "performance_mode", 1.0, []string{
		`\bas an ai(?: language model)?\b`,
		`\bi(?:'m| am) (?:just|merely) (?:an?|your) (?:ai|assistant|language model)\b`,
		`\bi don'?t have feelings,? but\b`,
	}},
}

// #endregion sources

// #region library

// Library is the default regex-backed Matcher.
type Library struct {
	byCategory map[Category][]Group
}

var defaultLibrary = compile()

// Default returns the library compiled from the literal catalog.
func Default() *Library {
	return defaultLibrary
}

func compile() *Library {
	lib := &Library{byCategory: make(map[Category][]Group)}
	for _, src := range groupSources {
		g := Group{
			Category: src.category,
			Name:     src.name,
			Weight:   src.weight,
			patterns: make([]*regexp.Regexp, len(src.patterns)),
		}
		for i, p := range src.patterns {
			g.patterns[i] = regexp.MustCompile(`(?i)` + p)
		}
		lib.byCategory[src.category] = append(lib.byCategory[src.category], g)
	}
	return lib
}

// Groups returns the groups of one category.
func (l *Library) Groups(cat Category) []Group {
	return l.byCategory[cat]
}

// Find runs every group of cat against text and returns groups with at least
// one match. Matched substrings are deduplicated and sorted for determinism.
func (l *Library) Find(cat Category, text string) []GroupMatch {
	var out []GroupMatch
	for _, g := range l.byCategory[cat] {
		seen := make(map[string]bool)
		var matches []string
		for _, re := range g.patterns {
			for _, m := range re.FindAllString(text, -1) {
				if !seen[m] {
					seen[m] = true
					matches = append(matches, m)
				}
			}
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			out = append(out, GroupMatch{Group: g.Name, Weight: g.Weight, Matches: matches})
		}
	}
	return out
}

// #endregion library
