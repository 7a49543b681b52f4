package component

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	domainerrors "compgraph/internal/core/errors"
	"compgraph/internal/shared/util"
)

var (
	defaultNameRe  = regexp.MustCompile(`\bexport\s+default\s+(?:async\s+)?(?:function\s*\*?\s*|class\s+)?([A-Z][\w$]*)`)
	functionNameRe = regexp.MustCompile(`\bfunction\s+([A-Z][\w$]*)`)
	constNameRe    = regexp.MustCompile(`\bconst\s+([A-Z][\w$]*)\s*(?::[^=\n]+)?=`)
	hookNameRe     = regexp.MustCompile(`\b(?:function|const)\s+(use[A-Z0-9][\w$]*)`)

	docBlockRe      = regexp.MustCompile(`(?s)/\*\*(.*?)\*/`)
	declStartRe     = regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?(?:default[ \t]+)?(?:declare[ \t]+)?(?:async[ \t]+)?(?:function|const|let|var|class|interface|type|enum)\b`)
	declAfterRe     = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:declare\s+)?(?:async\s+)?(?:function\s*\*?\s*|(?:const|let|var|class|interface|type|enum)\s+)([A-Za-z_$][\w$]*)`)
	lineCommentRe   = regexp.MustCompile(`(?m)^[ \t]*//[ \t]*(\S[^\n]*?)[ \t]*\r?\n[ \t]*(?:export[ \t]+)?(?:default[ \t]+)?(?:async[ \t]+)?(?:function|const|class)\b`)
	propsBlockRe    = regexp.MustCompile(`(?s)\binterface\s+[\w$]*Props\s*(?:<[^>{]*>)?\s*(?:extends\s+[^{]+)?\{(.*?)\}`)
	propFieldRe     = regexp.MustCompile(`^\s*(?:readonly\s+)?['"]?([A-Za-z_$][\w$-]*)['"]?\s*(\?)?\s*:\s*(.+?)\s*,?\s*$`)
	destructuringRe = regexp.MustCompile(`\(\s*\{([^{}]*)\}\s*(?::[^)]*)?\)`)
	defaultValueRe  = regexp.MustCompile(`^\s*([A-Za-z_$][\w$]*)\s*=\s*(.+?)\s*$`)

	importRe        = regexp.MustCompile(`(?m)^\s*import\s+(?:type\s+)?([^'";]+?)\s+from\s+['"]([^'"]+)['"]`)
	exportFuncRe    = regexp.MustCompile(`\bexport\s+(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`)
	exportClassRe   = regexp.MustCompile(`\bexport\s+(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`)
	exportConstRe   = regexp.MustCompile(`\bexport\s+(?:const|let|var)\s+([A-Za-z_$][\w$]*)`)
	exportListRe    = regexp.MustCompile(`\bexport\s*(?:type\s*)?\{([^}]*)\}`)
	exportDefaultRe = regexp.MustCompile(`\bexport\s+default\s+(?:async\s+)?(?:function\s*\*?\s*|class\s+)?([A-Za-z_$][\w$]*)`)
)

// Words that can follow "export default" without naming anything.
var defaultExportKeywords = map[string]bool{
	"function": true,
	"class":    true,
	"async":    true,
	"new":      true,
	"await":    true,
}

// Extract classifies and extracts metadata from one eligible file. The result
// depends only on (p, content); UsedBy is always empty.
func Extract(p, content string) (ComponentMetadata, error) {
	p = util.NormalizePatternPath(p)
	if !IsEligible(p, content) {
		err := domainerrors.New(domainerrors.CodeNotSupported, "file is not an analyzable component")
		return ComponentMetadata{}, domainerrors.AddContext(err, domainerrors.CtxPath, p)
	}

	name := ExtractName(p, content)
	return ComponentMetadata{
		Name:        name,
		Description: ExtractDescription(name, content),
		Type:        Classify(p, content),
		File:        p,
		Props:       ExtractProps(content),
		Uses:        ExtractUses(content),
		UsedBy:      []string{},
		Exports:     ExtractExports(content),
	}, nil
}

// IsNotComponent reports whether err is Extract's ineligibility error.
func IsNotComponent(err error) bool {
	return domainerrors.IsCode(err, domainerrors.CodeNotSupported)
}

// ExtractName tries, in order: a capitalized default export, a capitalized
// function, a capitalized const, a use* hook declaration, and finally the
// filename with its first letter upper-cased.
func ExtractName(p, content string) string {
	for _, re := range []*regexp.Regexp{defaultNameRe, functionNameRe, constNameRe, hookNameRe} {
		if m := re.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	return capitalize(util.Stem(p))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ExtractDescription returns the first text line of a leading /** */ block,
// else the text of a // comment directly above a declaration, else "".
// A doc block counts as leading when it sits directly above the declaration
// of name, or comes before every declaration without being attached to one
// of a different name.
func ExtractDescription(name, content string) string {
	firstDecl := len(content)
	if loc := declStartRe.FindStringIndex(content); loc != nil {
		firstDecl = loc[0]
	}
	for _, m := range docBlockRe.FindAllStringSubmatchIndex(content, -1) {
		attached := ""
		if d := declAfterRe.FindStringSubmatch(content[m[1]:]); d != nil {
			attached = d[1]
		}
		leading := attached == name || (attached == "" && m[0] < firstDecl)
		if !leading {
			continue
		}
		if line := firstDocLine(content[m[2]:m[3]]); line != "" {
			return line
		}
	}
	if m := lineCommentRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func firstDocLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "*"))
		if line == "" || strings.HasPrefix(line, "@") {
			continue
		}
		return line
	}
	return ""
}

// ExtractProps reads the fields of the first interface named *Props. Nested
// object types end the block early; that is a known limit of matching on text.
func ExtractProps(content string) []PropDescriptor {
	props := []PropDescriptor{}
	m := propsBlockRe.FindStringSubmatch(content)
	if m == nil {
		return props
	}

	pending := ""
	for _, line := range strings.Split(m[1], "\n") {
		comment := ""
		if i := strings.Index(line, "//"); i >= 0 {
			comment = strings.TrimSpace(line[i+2:])
			line = line[:i]
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
			text := strings.TrimSpace(strings.Trim(strings.TrimSpace(strings.TrimPrefix(trimmed, "/")), "*/ "))
			if text != "" && !strings.HasPrefix(text, "@") && pending == "" {
				pending = text
			}
			continue
		}

		for _, seg := range splitFields(line) {
			f := propFieldRe.FindStringSubmatch(seg)
			if f == nil {
				continue
			}
			desc := comment
			if desc == "" {
				desc = pending
			}
			props = append(props, PropDescriptor{
				Name:        f[1],
				Type:        strings.TrimSpace(f[3]),
				Required:    f[2] == "",
				Description: desc,
			})
			pending = ""
		}
	}

	applyDefaultValues(props, content)
	return props
}

// splitFields cuts an interface body line at ';' and ',' separators that are
// not nested inside brackets or string literals.
func splitFields(line string) []string {
	var (
		fields []string
		depth  int
		quote  rune
		start  int
		prev   rune
	)
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote && prev != '\\' {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(' || r == '[' || r == '{' || r == '<':
			depth++
		case r == ')' || r == ']' || r == '}' || (r == '>' && prev != '='):
			if depth > 0 {
				depth--
			}
		case (r == ';' || r == ',') && depth == 0:
			fields = append(fields, line[start:i])
			start = i + 1
		}
		prev = r
	}
	return append(fields, line[start:])
}

// applyDefaultValues fills DefaultValue from destructured parameters such as
// function Card({ size = "md" }: CardProps).
func applyDefaultValues(props []PropDescriptor, content string) {
	if len(props) == 0 {
		return
	}
	index := make(map[string]int, len(props))
	for i, p := range props {
		index[p.Name] = i
	}
	for _, m := range destructuringRe.FindAllStringSubmatch(content, -1) {
		matched := false
		for _, entry := range strings.Split(m[1], ",") {
			d := defaultValueRe.FindStringSubmatch(entry)
			if d == nil {
				continue
			}
			if i, ok := index[d[1]]; ok {
				props[i].DefaultValue = d[2]
				matched = true
			}
		}
		if matched {
			return
		}
	}
}

// IsLocalImport reports whether an import source is project-relative or aliased.
func IsLocalImport(source string) bool {
	return strings.HasPrefix(source, "./") ||
		strings.HasPrefix(source, "../") ||
		strings.HasPrefix(source, "@/")
}

// ExtractUses collects capitalized identifiers imported from local modules,
// in import order without repeats. Named imports contribute the exported
// name (the left side of "as").
func ExtractUses(content string) []string {
	uses := []string{}
	seen := make(map[string]bool)
	for _, m := range importRe.FindAllStringSubmatch(content, -1) {
		if !IsLocalImport(m[2]) {
			continue
		}
		for _, ident := range importedIdentifiers(m[1]) {
			if ident == "" || seen[ident] || !startsUpper(ident) {
				continue
			}
			seen[ident] = true
			uses = append(uses, ident)
		}
	}
	return uses
}

func importedIdentifiers(clause string) []string {
	clause = strings.TrimSpace(clause)
	var out []string

	named := ""
	if i := strings.Index(clause, "{"); i >= 0 {
		if j := strings.LastIndex(clause, "}"); j > i {
			named = clause[i+1 : j]
		}
		clause = strings.TrimSpace(clause[:i])
	}

	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "*") {
			if _, alias, ok := strings.Cut(part, " as "); ok {
				out = append(out, strings.TrimSpace(alias))
			}
			continue
		}
		out = append(out, part)
	}

	for _, part := range strings.Split(named, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "type "))
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, " as ")
		out = append(out, strings.TrimSpace(name))
	}
	return out
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// ExtractExports lists exported names: functions, classes, consts, export
// lists, then the default export identifier. Duplicates are kept.
func ExtractExports(content string) []string {
	exports := []string{}
	for _, re := range []*regexp.Regexp{exportFuncRe, exportClassRe, exportConstRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			exports = append(exports, m[1])
		}
	}
	for _, m := range exportListRe.FindAllStringSubmatch(content, -1) {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "type "))
			if part == "" {
				continue
			}
			if _, alias, ok := strings.Cut(part, " as "); ok {
				part = strings.TrimSpace(alias)
			}
			exports = append(exports, part)
		}
	}
	if m := exportDefaultRe.FindStringSubmatch(content); m != nil && !defaultExportKeywords[m[1]] {
		exports = append(exports, m[1])
	}
	return exports
}
