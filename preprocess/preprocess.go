// Package preprocess cleans text before it is ingested with
// "ragdeck docs insert".
package preprocess

import (
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)

	// fix common ligatures / OCR artifacts
	fixes = strings.NewReplacer(
		"ﬁ", "fi", "ﬂ", "fl",
		"—", "-", "–", "-",
		"·", ".", "•", "-",
	)
)

// DefaultNoise lists boilerplate phrases whose lines are dropped from web pages.
var DefaultNoise = []string{
	"相关链接", "你可能还喜欢", "热门文章", "版权所有", "版权", "Cookie", "隐私政策", "广告",
}

// CleanBasic drops control characters except newlines, fixes OCR
// artifacts and collapses runs of blanks and blank lines.
func CleanBasic(text string) string {
	if text == "" {
		return ""
	}

	b := strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.ReplaceAll(text, "\r\n", "\n"))

	b = fixes.Replace(b)
	b = reSpaces.ReplaceAllString(b, " ")
	b = reNewlines.ReplaceAllString(b, "\n\n")

	lines := strings.Split(b, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(reNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// HTMLToText extracts headings, paragraphs, list items, code and tables
// as Markdown-ish text.
func HTMLToText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("script,style,nav,footer").Remove()

	var out []string
	doc.Find("h1,h2,h3,h4,p,li,pre,code,table").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		switch goquery.NodeName(s) {
		case "h1":
			out = append(out, "# "+text)
		case "h2":
			out = append(out, "## "+text)
		case "h3":
			out = append(out, "### "+text)
		case "h4":
			out = append(out, "#### "+text)
		case "p":
			if s.ParentsFiltered("li,table").Length() > 0 {
				return
			}
			out = append(out, text)
		case "li":
			out = append(out, "- "+text)
		case "code":
			if s.ParentsFiltered("pre").Length() > 0 {
				return
			}
			out = append(out, "`"+text+"`")
		case "pre":
			out = append(out, "```\n"+text+"\n```")
		case "table":
			out = append(out, parseTable(s))
		}
	})
	return strings.Join(out, "\n\n"), nil
}

func parseTable(sel *goquery.Selection) string {
	var rows []string
	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cols []string
		tr.Find("th,td").Each(func(j int, td *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(td.Text()))
		})
		if len(cols) > 0 {
			rows = append(rows, "| "+strings.Join(cols, " | ")+" |")
		}
	})
	return strings.Join(rows, "\n")
}

// RemoveDuplicateParagraphs dedupe by exact paragraph text
func RemoveDuplicateParagraphs(text string) string {
	parts := strings.Split(text, "\n\n")
	seen := map[string]struct{}{}
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// RemoveNoise drops every line containing one of patterns.
func RemoveNoise(s string, patterns []string) string {
	if len(patterns) == 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		skip := false
		for _, p := range patterns {
			if strings.Contains(l, p) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Preprocess runs the plain-text pipeline.
func Preprocess(raw string) string {
	t := CleanBasic(raw)
	t = RemoveNoise(t, DefaultNoise)
	t = RemoveDuplicateParagraphs(t)
	return t
}

// PreprocessHTML extracts text from an HTML page and runs the pipeline.
func PreprocessHTML(r io.Reader) (string, error) {
	text, err := HTMLToText(r)
	if err != nil {
		return "", err
	}
	return Preprocess(text), nil
}
