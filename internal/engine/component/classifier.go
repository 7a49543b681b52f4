package component

import (
	"path"
	"regexp"
	"strings"

	"compgraph/internal/shared/util"
)

const srcExt = `\.(tsx|jsx|ts|js)$`

// Path patterns. All operate on normalized, '/'-separated paths. The legacy
// router only lives at pages/ or src/pages/. A dynamic page is [id].tsx,
// [[...slug]].tsx, [id]/index.tsx or a page file below a [id]/ segment.
var (
	appPageRe        = regexp.MustCompile(`(^|/)app/(.+/)?page` + srcExt)
	appLayoutRe      = regexp.MustCompile(`(^|/)app/(.+/)?layout` + srcExt)
	appSpecialRe     = regexp.MustCompile(`(^|/)app/(.+/)?(loading|error|not-found|global-error)` + srcExt)
	pagesDirRe       = regexp.MustCompile(`^(src/)?pages/`)
	pagesAPIRe       = regexp.MustCompile(`^(src/)?pages/(.+/)?api/`)
	bootstrapRe      = regexp.MustCompile(`^(src/)?pages/_(app|document)` + srcExt + `|(^|/)src/(App|main|index)\.(tsx|jsx)$`)
	routeGroupPageRe = regexp.MustCompile(`(^|/)\([^/]+\)/(.+/)?page` + srcExt)
	dynamicPageRe    = regexp.MustCompile(`(^|/)\[{1,2}[^/\[\]]+\]{1,2}(/(.+/)?page|/index)?` + srcExt)
	apiRouteRe       = regexp.MustCompile(`(^|/)(pages|app|src)/(.+/)?api/|(^|/)app/(.+/)?route\.(ts|js)$`)
	configFileRe     = regexp.MustCompile(`\.config\.(js|ts|mjs|cjs)$`)
	testFileRe       = regexp.MustCompile(`\.(test|spec)` + srcExt)
	declarationRe    = regexp.MustCompile(`\.d\.ts$`)
	utilitySuffixRe  = regexp.MustCompile(`\.(utils?|helpers?|constants?|config)` + srcExt)
	hookFileRe       = regexp.MustCompile(`^use[A-Z0-9]`)
	layoutNameRe     = regexp.MustCompile(`(?i)layout`)
)

// Content patterns.
var (
	uiImportRe        = regexp.MustCompile(`(?:from\s+|require\(\s*|import\s+)['"](?:react|react-dom|react-native|next|preact|vue|svelte|solid-js)(?:/[^'"]*)?['"]`)
	markupReturnRe    = regexp.MustCompile(`return\s*\(?\s*<[A-Za-z>]`)
	defaultExportRe   = regexp.MustCompile(`\bexport\s+default\b`)
	capitalDeclRe     = regexp.MustCompile(`\b(?:function|const|class)\s+[A-Z][\w$]*`)
	exportedHookRe    = regexp.MustCompile(`\bexport\s+(?:default\s+)?(?:async\s+)?(?:function|const)\s+use[A-Z0-9]`)
	componentExportRe = regexp.MustCompile(`\bexport\s+(?:default\s+)?(?:async\s+)?(?:function|const|class)\s+[A-Z]`)
	providerRe        = regexp.MustCompile(`Provider\b`)
	layoutDeclRe      = regexp.MustCompile(`\b(?:function|const|class)\s+[A-Z][\w$]*Layout\b`)
	createContextRe   = regexp.MustCompile(`\bcreateContext\s*[(<]`)
)

var utilityDirs = []string{"utils", "util", "lib", "helpers", "helper", "config", "constants"}

func isAppRouterPage(p string) bool    { return appPageRe.MatchString(p) }
func isAppRouterLayout(p string) bool  { return appLayoutRe.MatchString(p) }
func isAppRouterSpecial(p string) bool { return appSpecialRe.MatchString(p) }
func isBootstrapFile(p string) bool    { return bootstrapRe.MatchString(p) }

func isLegacyRouterPage(p string) bool {
	if !pagesDirRe.MatchString(p) || pagesAPIRe.MatchString(p) {
		return false
	}
	return !strings.HasPrefix(path.Base(p), "_")
}

// IsFrameworkRoute reports whether p is a router page, layout or special page.
func IsFrameworkRoute(p string) bool {
	p = util.NormalizePatternPath(p)
	return isAppRouterPage(p) || isLegacyRouterPage(p) || isAppRouterLayout(p) || isAppRouterSpecial(p)
}

// IsConfigFile matches framework/tool configuration files such as next.config.js.
func IsConfigFile(p string) bool {
	return configFileRe.MatchString(path.Base(util.NormalizePatternPath(p)))
}

// IsTestFile matches *.test.* / *.spec.* files and test fixture directories.
func IsTestFile(p string) bool {
	return testFileRe.MatchString(p) || util.HasSegment(p, "__tests__", "__mocks__")
}

// IsAPIRoute matches server route handlers, which never render markup.
func IsAPIRoute(p string) bool {
	return apiRouteRe.MatchString(util.NormalizePatternPath(p))
}

// IsTypeDeclaration matches .d.ts files and types modules.
func IsTypeDeclaration(p string) bool {
	if declarationRe.MatchString(p) {
		return true
	}
	stem := util.Stem(p)
	return stem == "types" || stem == "type" || util.HasSegment(p, "types")
}

// IsUtilityPath matches utility-style directories and filename suffixes.
func IsUtilityPath(p string) bool {
	if util.HasSegment(p, utilityDirs...) {
		return true
	}
	if utilitySuffixRe.MatchString(p) {
		return true
	}
	switch util.Stem(p) {
	case "utils", "helpers", "constants":
		return true
	}
	return false
}

// IsHook reports whether the file follows the use* naming convention, by
// filename or by an exported declaration.
func IsHook(p, content string) bool {
	return hookFileRe.MatchString(util.Stem(p)) || exportedHookRe.MatchString(content)
}

func ImportsUIFramework(content string) bool { return uiImportRe.MatchString(content) }
func ReturnsMarkup(content string) bool      { return markupReturnRe.MatchString(content) }
func HasDefaultExport(content string) bool   { return defaultExportRe.MatchString(content) }
func DeclaresCapitalized(content string) bool {
	return capitalDeclRe.MatchString(content)
}

func hasComponentOrProviderExport(content string) bool {
	return componentExportRe.MatchString(content) || providerRe.MatchString(content)
}

// IsEligible decides whether (p, content) is an analyzable component artifact.
// Config files are always eligible. Everything else must carry at least one
// framework/markup/route/hook/utility signal AND at least one exported or
// declared symbol signal.
func IsEligible(p, content string) bool {
	p = util.NormalizePatternPath(p)
	if IsConfigFile(p) {
		return true
	}
	if IsTestFile(p) || IsAPIRoute(p) {
		return false
	}
	if IsTypeDeclaration(p) && !hasComponentOrProviderExport(content) {
		return false
	}

	hook := IsHook(p, content)
	utility := IsUtilityPath(p)

	looksLikeSource := ImportsUIFramework(content) ||
		ReturnsMarkup(content) ||
		IsFrameworkRoute(p) ||
		hook ||
		utility
	declaresSymbol := HasDefaultExport(content) ||
		DeclaresCapitalized(content) ||
		hook ||
		utility

	return looksLikeSource && declaresSymbol
}

// Classify assigns a ComponentType. Rules are evaluated in order and the
// first match wins; config files short-circuit to utility.
func Classify(p, content string) ComponentType {
	p = util.NormalizePatternPath(p)
	stem := util.Stem(p)

	switch {
	case IsConfigFile(p):
		return TypeUtility
	case isAppRouterPage(p):
		return TypePage
	case isLegacyRouterPage(p):
		return TypePage
	case isAppRouterLayout(p):
		return TypeLayout
	case util.HasSegment(p, "layout", "layouts") || layoutNameRe.MatchString(stem) || layoutDeclRe.MatchString(content):
		return TypeLayout
	case isAppRouterSpecial(p):
		return TypePage
	case routeGroupPageRe.MatchString(p):
		return TypePage
	case dynamicPageRe.MatchString(p):
		return TypePage
	case util.HasSegment(p, "hooks") || exportedHookRe.MatchString(content) || hookFileRe.MatchString(stem):
		return TypeHook
	case util.HasSegment(p, "context", "contexts") || strings.Contains(p, "Context") || strings.Contains(p, "Provider") || createContextRe.MatchString(content):
		return TypeContext
	case IsUtilityPath(p):
		return TypeUtility
	default:
		return TypeComponent
	}
}
