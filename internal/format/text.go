// Copyright (c) 2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
package format

// In this file: message text flattening for CSV output, and the link
// unfurling policy.

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/structures"
)

var (
	slackLinkRe = regexp.MustCompile(`<(https?://[^>|]+)\|([^>]+)>`)
	mdLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)]+)\)`)
	htmlLinkRe  = regexp.MustCompile(`<a\s+href=["']([^"']+)["'][^>]*>([^<]+)</a>`)

	urlRe = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")
	// cleanRe matches everything outside the retained set: letters,
	// digits, underscore, whitespace and light punctuation.
	cleanRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,\-:/?=&%]`)
	spaceRe = regexp.MustCompile(`[ \t]+`)

	bareURLRe = regexp.MustCompile(`https?://\S+`)
	hostRe    = regexp.MustCompile(`^https?://([^/\s]+)`)
)

// SlackTimeISO converts a message timestamp ("1234567890.123456") to an
// ISO 8601 string in UTC.
func SlackTimeISO(ts string) (string, error) {
	t, err := structures.ParseSlackTS(ts)
	if err != nil {
		return "", err
	}
	return isoTime(t), nil
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}

// ProcessText flattens message text for CSV output: links of all three
// dialects (Slack "<url|text>", markdown "[text](url)", HTML anchors)
// become "url - text", non-terminal links get a trailing comma,
// characters outside the retained set are stripped (URLs are exempt), and
// runs of spaces and tabs collapse.
func ProcessText(text string) string {
	text = rewriteLinks(text, slackLinkRe, 1, 2)
	text = rewriteLinks(text, mdLinkRe, 2, 1)
	text = rewriteLinks(text, htmlLinkRe, 1, 2)

	// URLs must survive character cleaning intact.
	urls := urlRe.FindAllString(text, -1)
	for i, u := range urls {
		text = strings.Replace(text, u, urlPlaceholder(i), 1)
	}
	text = cleanRe.ReplaceAllString(text, "")
	for i, u := range urls {
		text = strings.Replace(text, urlPlaceholder(i), u, 1)
	}

	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// rewriteLinks replaces each link match with "url - text".  A link that is
// the last non-whitespace content at the moment of replacement gets no
// trailing comma; every other one does.
func rewriteLinks(text string, re *regexp.Regexp, urlIdx, textIdx int) string {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		repl := m[urlIdx] + " - " + m[textIdx]
		if !lastInText(m[0], text) {
			repl += ","
		}
		text = strings.Replace(text, m[0], repl, 1)
	}
	return text
}

func lastInText(sub, text string) bool {
	pos := strings.LastIndex(text, sub)
	if pos < 0 {
		return false
	}
	return strings.TrimSpace(text[pos+len(sub):]) == ""
}

func urlPlaceholder(i int) string {
	return fmt.Sprintf("___URL_PLACEHOLDER_%d___", i)
}

// attReplacer flattens attachment text to a single line and swaps
// parentheses for brackets, which read better inside CSV cells.
var attReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "(", "[", ")", "]")

// AttachmentText flattens one attachment into a single-line description.
// Empty fields are omitted; an attachment with no usable fields yields an
// empty string.
func AttachmentText(a slack.Attachment) string {
	var parts []string
	if a.Title != "" {
		parts = append(parts, "Title: "+a.Title)
	}
	if a.AuthorName != "" {
		parts = append(parts, "Author: "+a.AuthorName)
	}
	if a.Pretext != "" {
		parts = append(parts, "Pretext: "+a.Pretext)
	}
	if a.Text != "" {
		parts = append(parts, "Text: "+a.Text)
	}
	if a.Footer != "" {
		footer := "Footer: " + a.Footer
		if a.Ts != "" {
			if t, err := structures.ParseSlackTS(a.Ts.String()); err == nil {
				footer += " @ " + isoTime(t)
			}
		}
		parts = append(parts, footer)
	}
	return strings.TrimSpace(attReplacer.Replace(strings.Join(parts, "; ")))
}

// AttachmentSuffix renders attachments as a suffix to append to the
// message text, with a separating ". " when the text is non-empty.
func AttachmentSuffix(msgText string, atts []slack.Attachment) string {
	var descriptions []string
	for _, a := range atts {
		if s := AttachmentText(a); s != "" {
			descriptions = append(descriptions, s)
		}
	}
	if len(descriptions) == 0 {
		return ""
	}
	var prefix string
	if msgText != "" {
		prefix = ". "
	}
	return prefix + strings.Join(descriptions, ", ")
}

// UnfurlingEnabled decides whether link previews should be generated for
// a message, given the policy string: "yes"/"true"/"1" always, "no",
// "false", "0" or empty never, anything else is a comma-separated
// allowlist of domains that every URL in the text must match (the "www."
// prefix and ports are ignored).
func UnfurlingEnabled(text, policy string) bool {
	switch strings.TrimSpace(policy) {
	case "", "no", "false", "0":
		return false
	case "yes", "true", "1":
		return true
	}

	allowed := make(map[string]bool)
	for _, domain := range strings.Split(policy, ",") {
		if domain = strings.ToLower(strings.TrimSpace(domain)); domain != "" {
			allowed[domain] = true
		}
	}

	for _, u := range bareURLRe.FindAllString(text, -1) {
		m := hostRe.FindStringSubmatch(u)
		if m == nil {
			continue
		}
		host := strings.ToLower(m[1])
		host, _, _ = strings.Cut(host, ":")
		host = strings.TrimPrefix(host, "www.")
		if !allowed[host] {
			return false
		}
	}
	return true
}
