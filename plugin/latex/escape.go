package latex

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	sqrtParenRegexp  = regexp.MustCompile(`√\((.*?)\)`)
	sqrtNumberRegexp = regexp.MustCompile(`√(\d+\.?\d*)`)
	sqrtWordRegexp   = regexp.MustCompile(`√(\w+)`)

	mathRegexp          = regexp.MustCompile(`\$(?:\\.|[^$])*\$`)
	multilineCodeRegexp = regexp.MustCompile("(?s)```(\\w*)\n(.*?)\n```")
	inlineCodeRegexp    = regexp.MustCompile("`([^`]+)`")
)

// escapeSpecials escapes LaTeX special characters in plain text.
var escapeSpecials = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"&", `\&`,
	"%", `\%`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

// EscapeText prepares authored text for LaTeX compilation. Math segments
// ($...$) and code spans (`...`, fenced blocks) are kept verbatim while the
// surrounding plain text has its special characters escaped, so authors can
// mix prose with formulas and code in one field.
func EscapeText(text string) string {
	if text == "" {
		return ""
	}

	// Normalize bare square roots written with the unicode radical sign.
	// The result is wrapped in $...$ so the math pass below protects it
	// from special-character escaping.
	text = sqrtParenRegexp.ReplaceAllString(text, `$$\sqrt{${1}}$$`)
	text = sqrtNumberRegexp.ReplaceAllString(text, `$$\sqrt{${1}}$$`)
	text = sqrtWordRegexp.ReplaceAllString(text, `$$\sqrt{${1}}$$`)

	// Pull math and code out before escaping. The placeholders contain no
	// LaTeX specials, so the escape pass leaves them intact.
	var mathBlocks []string
	text = mathRegexp.ReplaceAllStringFunc(text, func(m string) string {
		mathBlocks = append(mathBlocks, m)
		return fmt.Sprintf("@@MATHBLOCK%d@@", len(mathBlocks)-1)
	})

	type codeBlock struct {
		lang string
		code string
	}
	var multilineBlocks []codeBlock
	text = multilineCodeRegexp.ReplaceAllStringFunc(text, func(m string) string {
		groups := multilineCodeRegexp.FindStringSubmatch(m)
		multilineBlocks = append(multilineBlocks, codeBlock{
			lang: groups[1],
			code: strings.TrimSpace(groups[2]),
		})
		return fmt.Sprintf("@@CODEBLOCK%d@@", len(multilineBlocks)-1)
	})

	var inlineBlocks []string
	text = inlineCodeRegexp.ReplaceAllStringFunc(text, func(m string) string {
		groups := inlineCodeRegexp.FindStringSubmatch(m)
		inlineBlocks = append(inlineBlocks, groups[1])
		return fmt.Sprintf("@@INLINECODE%d@@", len(inlineBlocks)-1)
	})

	text = escapeSpecials.Replace(text)

	// Paragraph breaks first, then remaining single newlines.
	text = strings.ReplaceAll(text, "\n\n", "\\par\n")
	text = strings.ReplaceAll(text, "\n", "\\newline\n")

	for i, block := range multilineBlocks {
		langOption := ""
		if block.lang != "" && block.lang != "text" {
			langOption = fmt.Sprintf("[language=%s]", block.lang)
		}
		replacement := fmt.Sprintf("\\begin{lstlisting}%s\n%s\n\\end{lstlisting}", langOption, block.code)
		text = strings.Replace(text, fmt.Sprintf("@@CODEBLOCK%d@@", i), replacement, 1)
	}
	for i, code := range inlineBlocks {
		replacement := fmt.Sprintf("\\texttt{%s}", escapeSpecials.Replace(code))
		text = strings.Replace(text, fmt.Sprintf("@@INLINECODE%d@@", i), replacement, 1)
	}
	for i, math := range mathBlocks {
		text = strings.Replace(text, fmt.Sprintf("@@MATHBLOCK%d@@", i), math, 1)
	}

	return text
}
