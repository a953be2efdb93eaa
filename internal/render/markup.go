package render

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern       = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9]*)([^<>]*)>`)
	hrefPattern      = regexp.MustCompile(`(?i)href\s*=\s*("[^"]*"|'[^']*')`)
	blankRunsPattern = regexp.MustCompile(`\n{3,}`)
)

// allowedTags maps accepted tag names to the canonical name sent to the
// chat client.
var allowedTags = map[string]string{
	"b":      "b",
	"strong": "b",
	"i":      "i",
	"em":     "i",
	"u":      "u",
	"ins":    "u",
	"s":      "s",
	"strike": "s",
	"del":    "s",
	"code":   "code",
	"a":      "a",
}

// textEscaper escapes the characters the chat client's HTML mode reserves.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// token is a run of literal text or one allowed inline tag.
type token struct {
	src     string // literal text, or the tag as written
	tag     string // canonical tag name; empty for text
	closing bool
	open    string // normalized opening tag
	drop    bool   // a link without a target; the pair renders as nothing
	paired  bool
}

// Clean converts editor markup into text the chat client accepts in HTML
// mode. Block elements turn into newlines and allowed inline tags are
// normalized. An allowed tag survives only with a matching partner;
// otherwise it is shown as text. Other tags are dropped. Text is
// entity-decoded and then escaped, so "&amp;" stays a single ampersand
// and a bare "<" becomes "&lt;".
func Clean(s string) string {
	tokens, block := tokenize(s)
	pair(tokens)

	var b strings.Builder
	for _, t := range tokens {
		switch {
		case t.tag == "" || !t.paired:
			b.WriteString(escapeText(t.src))
		case t.drop:
		case t.closing:
			b.WriteString("</" + t.tag + ">")
		default:
			b.WriteString(t.open)
		}
	}

	out := b.String()
	if block {
		out = blankRunsPattern.ReplaceAllString(out, "\n\n")
		out = strings.TrimRight(out, "\n")
	}
	return out
}

// tokenize splits s into text and allowed tags. It reports whether any
// block markup was seen.
func tokenize(s string) ([]token, bool) {
	var tokens []token
	block := false
	last := 0
	for _, m := range tagPattern.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			tokens = append(tokens, token{src: s[last:m[0]]})
		}
		last = m[1]

		closing := m[3] > m[2]
		name := strings.ToLower(s[m[4]:m[5]])
		attrs := s[m[6]:m[7]]

		switch name {
		case "br":
			block = true
			tokens = append(tokens, token{src: "\n"})
			continue
		case "p", "div":
			block = true
			if closing {
				tokens = append(tokens, token{src: "\n"})
			}
			continue
		}

		canonical, ok := allowedTags[name]
		if !ok {
			continue
		}
		t := token{src: s[m[0]:m[1]], tag: canonical, closing: closing, open: "<" + canonical + ">"}
		if canonical == "a" && !closing {
			href := hrefPattern.FindStringSubmatch(attrs)
			if href == nil {
				t.drop = true
			} else {
				target := href[1][1 : len(href[1])-1]
				t.open = `<a href="` + html.EscapeString(html.UnescapeString(target)) + `">`
			}
		}
		tokens = append(tokens, t)
	}
	if last < len(s) {
		tokens = append(tokens, token{src: s[last:]})
	}
	return tokens, block
}

// pair marks tags that close the innermost open tag of the same name.
func pair(tokens []token) {
	var stack []int
	for i := range tokens {
		t := &tokens[i]
		if t.tag == "" {
			continue
		}
		if !t.closing {
			stack = append(stack, i)
			continue
		}
		n := len(stack)
		if n == 0 || tokens[stack[n-1]].tag != t.tag {
			continue
		}
		open := &tokens[stack[n-1]]
		open.paired, t.paired = true, true
		t.drop = open.drop
		stack = stack[:n-1]
	}
}

func escapeText(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return textEscaper.Replace(s)
}
