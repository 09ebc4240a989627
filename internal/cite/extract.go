package cite

import "regexp"

// volumePattern finds a run of digits that follows a non-digit and
// captures the digits.
var volumePattern = regexp.MustCompile(`\D(\d+)`)

// Parts is the result of splitting text around a matched sub-span.
type Parts struct {
	Prefix string
	Match  string
	Suffix string
}

// ExtractSpan finds pattern in text and splits text around it.
//
// A pattern with three or more capture groups is read as (prefix, match,
// suffix). Any other pattern matches the target directly, and the prefix
// and suffix are the text on either side of its first match.
func ExtractSpan(text string, pattern *regexp.Regexp) (Parts, bool) {
	if pattern == nil {
		return Parts{}, false
	}

	if pattern.NumSubexp() >= 3 {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			return Parts{}, false
		}
		return Parts{Prefix: m[1], Match: m[2], Suffix: m[3]}, true
	}

	loc := pattern.FindStringIndex(text)
	if loc == nil || loc[0] == loc[1] {
		return Parts{}, false
	}
	return Parts{
		Prefix: text[:loc[0]],
		Match:  text[loc[0]:loc[1]],
		Suffix: text[loc[1]:],
	}, true
}

// ExtractVolume splits a journal reference around its volume number: the
// first maximal run of digits that follows non-digit text. Everything
// before the run, leading digits included, is the prefix.
func ExtractVolume(ref string) (Parts, bool) {
	loc := volumePattern.FindStringSubmatchIndex(ref)
	if loc == nil {
		return Parts{}, false
	}
	return Parts{
		Prefix: ref[:loc[2]],
		Match:  ref[loc[2]:loc[3]],
		Suffix: ref[loc[3]:],
	}, true
}

// pickPart wraps the matched part of text in a span of the given class,
// leaving the rest as plain text. Unmatched text is returned whole.
func pickPart(text, class string, parts Parts, ok bool) []Fragment {
	if !ok {
		return []Fragment{Text(text)}
	}

	var frags []Fragment
	if parts.Prefix != "" {
		frags = append(frags, Text(parts.Prefix))
	}
	frags = append(frags, Span(class, Text(parts.Match)))
	if parts.Suffix != "" {
		frags = append(frags, Text(parts.Suffix))
	}
	return frags
}
