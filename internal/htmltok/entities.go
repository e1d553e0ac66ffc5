package htmltok

import (
	"sort"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// namedEntities is the supported character-reference table.
// Each key is the reference text exactly as it appears after '&',
// including the trailing ';' when there is one: the ';'-terminated
// form and, where standard HTML allows it, the unterminated legacy
// form are listed as separate keys that decode to the same text.
var namedEntities = map[string]string{
	"amp;": "&", "amp": "&",
	"lt;": "<", "lt": "<",
	"gt;": ">", "gt": ">",
	"quot;": "\"", "quot": "\"",
	"apos;":    "'",
	"nbsp;":    " ", "nbsp": " ",
	"copy;":    "©", "copy": "©",
	"reg;":     "®", "reg": "®",
	"trade;":   "™",
	"mdash;":   "—",
	"ndash;":   "–",
	"lsquo;":   "‘",
	"rsquo;":   "’",
	"ldquo;":   "“",
	"rdquo;":   "”",
	"bull;":    "•",
	"hellip;":  "…",
	"euro;":    "€",
	"pound;":   "£", "pound": "£",
	"yen;":     "¥", "yen": "¥",
	"cent;":    "¢", "cent": "¢",
	"sect;":    "§", "sect": "§",
	"deg;":     "°", "deg": "°",
	"plusmn;":  "±", "plusmn": "±",
	"times;":   "×", "times": "×",
	"divide;":  "÷", "divide": "÷",
	"frac12;":  "½", "frac12": "½",
	"frac14;":  "¼", "frac14": "¼",
	"frac34;":  "¾", "frac34": "¾",
}

// entityMatcher is compiled once at init from namedEntities' keys,
// longest-first so regexp2's alternation prefers the longest valid
// match (e.g. "frac34;" over a hypothetical "frac3" prefix). regexp2
// turns the "longest prefix of a large static alternative set" problem
// into a single compiled-pattern lookup instead of an O(n) map scan
// per reference.
var (
	entityMatcherOnce sync.Once
	entityMatcher     *regexp2.Regexp
)

func buildEntityMatcher() *regexp2.Regexp {
	names := make([]string, 0, len(namedEntities))
	for name := range namedEntities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	// Entity names are alnum-plus-';' only, so no regex metacharacter
	// escaping is needed before joining them into an alternation.
	pattern := "^(?:" + strings.Join(names, "|") + ")"
	re := regexp2.MustCompile(pattern, regexp2.None)
	return re
}

func longestEntityMatch(s string) (name string, matchLen int) {
	entityMatcherOnce.Do(func() { entityMatcher = buildEntityMatcher() })
	m, err := entityMatcher.FindStringMatch(s)
	if err != nil || m == nil {
		return "", 0
	}
	return m.String(), m.Length
}
