// Package detex converts LaTeX text fragments (BibTeX titles, authors,
// abstracts) into display-ready Unicode. Conversion is best effort: accent
// commands become combining marks, common symbol macros are replaced, inline
// math is dropped, and protective braces are stripped. Unknown markup passes
// through unchanged.
package detex

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// simpleReplacements maps LaTeX macros to their Unicode forms. Order
// matters: longer and more specific patterns come first so the single-pass
// replacer prefers them.
var simpleReplacements = []string{
	// Basic punctuation and escapes.
	`\&`, "&", `\%`, "%", `\_`, "_", `\$`, "$", `\#`, "#",
	`---`, "—", `--`, "–",
	"``", "“", "''", "”",
	`\textendash`, "–", `\textemdash`, "—",
	`\ldots`, "…", `\dots`, "…", `\textellipsis`, "…",
	`\slash`, "/", `\backslash`, `\`, `\textbackslash`, `\`,
	`\textbar`, "|", `\textless`, "<", `\textgreater`, ">",
	`\guillemotleft`, "«", `\guillemotright`, "»",
	`\guilsinglleft`, "‹", `\guilsinglright`, "›",
	`\textquotedblleft`, "“", `\textquotedblright`, "”",
	`\textquoteleft`, "‘", `\textquoteright`, "’",
	`\textregistered`, "®", `\texttrademark`, "™", `\textdegree`, "°",
	`\textbullet`, "•", `\textnumero`, "№",
	`\textsection`, "§", `\textparagraph`, "¶",
	// Spaces, line breaks and thin spaces, simplified to regular spaces.
	"~", " ", `\\ `, " ", `\ `, " ", `\enspace`, " ", `\,`, " ",
	`\;`, " ", `\:`, " ", `\!`, "",
	// Ligatures and special letters.
	`\ae`, "æ", `\AE`, "Æ", `\oe`, "œ", `\OE`, "Œ",
	`\aa`, "å", `\AA`, "Å",
	`\SS`, "ẞ", `\ss`, "ß",
	// Greek lowercase.
	`\alpha`, "α", `\beta`, "β", `\gamma`, "γ", `\delta`, "δ",
	`\epsilon`, "ε", `\varepsilon`, "ε", `\zeta`, "ζ",
	`\eta`, "η", `\theta`, "θ", `\vartheta`, "ϑ", `\iota`, "ι",
	`\kappa`, "κ", `\lambda`, "λ", `\mu`, "μ", `\nu`, "ν",
	`\xi`, "ξ", `\pi`, "π", `\varpi`, "ϖ", `\rho`, "ρ",
	`\varrho`, "ϱ", `\sigma`, "σ", `\varsigma`, "ς",
	`\tau`, "τ", `\upsilon`, "υ", `\phi`, "φ", `\varphi`, "ϕ",
	`\chi`, "χ", `\psi`, "ψ", `\omega`, "ω",
	// Greek uppercase.
	`\Gamma`, "Γ", `\Delta`, "Δ", `\Theta`, "Θ", `\Lambda`, "Λ",
	`\Xi`, "Ξ", `\Pi`, "Π", `\Sigma`, "Σ", `\Upsilon`, "Υ",
	`\Phi`, "Φ", `\Psi`, "Ψ", `\Omega`, "Ω",
	// Math-ish symbols that show up in titles.
	`\pm`, "±", `\mp`, "∓", `\times`, "×", `\div`, "÷",
	`\cdot`, "⋅", `\ast`, "∗", `\star`, "★",
	`\leq`, "≤", `\geq`, "≥", `\neq`, "≠",
	`\approx`, "≈", `\simeq`, "≃", `\sim`, "∼",
	`\infty`, "∞", `\propto`, "∝", `\equiv`, "≡",
	`\rightarrow`, "→", `\to`, "→", `\leftarrow`, "←",
	`\uparrow`, "↑", `\downarrow`, "↓",
	`\subseteq`, "⊆", `\subset`, "⊂", `\supseteq`, "⊇", `\supset`, "⊃",
	`\notin`, "∉", `\in`, "∈", `\ni`, "∋",
	`\cup`, "∪", `\cap`, "∩", `\setminus`, "∖",
	`\forall`, "∀", `\exists`, "∃", `\nabla`, "∇",
	`\partial`, "∂", `\Re`, "ℜ", `\Im`, "ℑ",
	`\degree`, "°", `\circ`, "∘",
	// Single-letter macros go last so they cannot shadow the longer
	// macros they prefix (\o vs \omega, \S vs \Sigma).
	`\o`, "ø", `\O`, "Ø", `\l`, "ł", `\L`, "Ł",
	`\S`, "§", `\P`, "¶",
}

var symbolReplacer = strings.NewReplacer(simpleReplacements...)

// accentCombining maps accent commands to combining marks.
var accentCombining = map[string]string{
	`"`: "̈", // diaeresis
	"'": "́", // acute
	"`": "̀", // grave
	"^": "̂", // circumflex
	"~": "̃", // tilde
	"H": "̋", // double acute
	"c": "̧", // cedilla
	"k": "̨", // ogonek
	"r": "̊", // ring above
	"v": "̌", // caron
	"=": "̄", // macron
	".": "̇", // dot above
	"u": "̆", // breve
	"b": "̱", // macron below
}

var (
	// Punctuation-named accent commands bind directly: \"o, \'{e}, \~n.
	punctAccentRe = regexp.MustCompile("\\\\([\"'`^~=.])\\s*\\{?\\s*([A-Za-zıȷ])\\s*\\}?")
	// Letter-named accent commands need a brace or space delimiter, or
	// they would swallow the first letter of longer macros (\c vs \cdot,
	// \v vs \varepsilon, \r vs \rightarrow).
	letterAccentRe = regexp.MustCompile(`\\([Hckrvub])(?:\s+([A-Za-zıȷ])|\s*\{\s*([A-Za-zıȷ])\s*\})`)
	// Dotless \i and \j, not followed by a letter (\infty, \in and \iota
	// must stay intact).
	dotlessIRe = regexp.MustCompile(`\\i([^A-Za-z]|$)`)
	dotlessJRe = regexp.MustCompile(`\\j([^A-Za-z]|$)`)
	// Inline math, honoring escaped dollar signs.
	mathInlineRe = regexp.MustCompile(`\$(?:\\\$|[^$])*\$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Convert turns a LaTeX fragment into plain Unicode text.
func Convert(s string) string {
	if s == "" {
		return s
	}

	s = stripComments(s)
	s = replaceAccents(s)
	s = symbolReplacer.Replace(s)
	s = mathInlineRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "{", "")
	s = strings.ReplaceAll(s, "}", "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func replaceAccents(s string) string {
	// Dotless i/j first, so they can carry accents below.
	s = dotlessIRe.ReplaceAllString(s, "ı$1")
	s = dotlessJRe.ReplaceAllString(s, "ȷ$1")

	s = punctAccentRe.ReplaceAllStringFunc(s, func(match string) string {
		m := punctAccentRe.FindStringSubmatch(match)
		comb := accentCombining[m[1]]
		return norm.NFC.String(accentBase(m[2], comb) + comb)
	})
	return letterAccentRe.ReplaceAllStringFunc(s, func(match string) string {
		m := letterAccentRe.FindStringSubmatch(match)
		letter := m[2]
		if letter == "" {
			letter = m[3]
		}
		comb := accentCombining[m[1]]
		return norm.NFC.String(accentBase(letter, comb) + comb)
	})
}

// accentBase returns the letter an accent composes onto. An above-mark on
// dotless ı/ȷ lands on the dotted letter instead: that is what the dotless
// forms exist for in TeX, and NFC has no precompositions for ı itself, so
// composing onto i yields ï where ı would stay decomposed.
func accentBase(letter, comb string) string {
	switch comb {
	case "̧", "̨", "̱": // below-marks keep the dotless base
		return letter
	}
	switch letter {
	case "ı":
		return "i"
	case "ȷ":
		return "j"
	}
	return letter
}

// stripComments removes an unescaped % through end of line.
func stripComments(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		for j := 0; j < len(line); j++ {
			if line[j] == '%' && (j == 0 || line[j-1] != '\\') {
				lines[i] = line[:j]
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}
