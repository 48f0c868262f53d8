package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// ToSafeHTML converts markdown to HTML restricted to a small tag set
// the web client renders directly.
func ToSafeHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	return sanitizeHTML(html)
}

// supportedTags are the tags kept after conversion.
var supportedTags = []string{
	"p", "b", "i", "u", "s", "strong", "em", "code", "pre",
	"a", "br", "ul", "ol", "li", "h1", "h2", "h3", "blockquote",
}

var (
	tagPattern     = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)(?:\s[^>]*)?>`)
	tagNamePattern = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)`)
	newlinePattern = regexp.MustCompile(`\n{3,}`)
)

// sanitizeHTML strips every tag outside the supported set along with
// all attributes except an anchor's href.
func sanitizeHTML(html string) string {
	html = tagPattern.ReplaceAllStringFunc(html, func(match string) string {
		tagMatch := tagNamePattern.FindStringSubmatch(match)
		if len(tagMatch) < 2 {
			return ""
		}

		tagName := strings.ToLower(tagMatch[1])
		for _, supported := range supportedTags {
			if tagName == supported {
				if tagName == "a" {
					return sanitizeAnchor(match)
				}
				return stripAttributes(match, tagName)
			}
		}
		return ""
	})

	html = newlinePattern.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]*)"`)

// sanitizeAnchor keeps only the href attribute, and only for http(s)
// destinations.
func sanitizeAnchor(tag string) string {
	if strings.HasPrefix(tag, "</") {
		return "</a>"
	}
	if href := hrefPattern.FindString(tag); href != "" {
		return "<a " + href + ">"
	}
	return "<a>"
}

// stripAttributes rewrites a tag with its attributes removed.
func stripAttributes(tag, name string) string {
	if strings.HasPrefix(tag, "</") {
		return "</" + name + ">"
	}
	return "<" + name + ">"
}
