package metadata

import (
	"regexp"
	"strings"
)

var (
	pyImportRegex   = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
	pyFromRegex     = regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import\b`)
	pyFuncRegex     = regexp.MustCompile(`(?m)^def\s+(\w+)\s*\(`)
	pyClassRegex    = regexp.MustCompile(`(?m)^class\s+(\w+)`)
	jsRequireRegex  = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsImportRegex   = regexp.MustCompile(`(?m)^\s*import\b[^'"]*['"]([^'"]+)['"]`)
	jsFuncRegex     = regexp.MustCompile(`(?m)^(?:export\s+(?:default\s+)?)?(?:async\s+)?function\s+(\w+)\s*\(`)
	jsArrowRegex    = regexp.MustCompile(`(?m)^(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?\(`)
	jsClassRegex    = regexp.MustCompile(`(?m)\bclass\s+(\w+)`)
)

// CodeMetadata extracts coarse symbols from python and javascript
// bodies by pattern match: import targets, top-level functions and
// class names. Dotted import paths contribute their root package.
func CodeMetadata(language, body string) map[string]any {
	switch language {
	case "python":
		return pythonMetadata(body)
	case "javascript":
		return javascriptMetadata(body)
	}
	return nil
}

func pythonMetadata(body string) map[string]any {
	imports := collect(body, pyImportRegex, pyFromRegex)
	for i, imp := range imports {
		imports[i] = rootPackage(imp)
	}
	meta := map[string]any{}
	if imports = dedupe(imports); len(imports) > 0 {
		meta["imports"] = imports
	}
	if funcs := dedupe(collect(body, pyFuncRegex)); len(funcs) > 0 {
		meta["functions"] = funcs
	}
	if classes := dedupe(collect(body, pyClassRegex)); len(classes) > 0 {
		meta["classes"] = classes
	}
	return meta
}

func javascriptMetadata(body string) map[string]any {
	imports := collect(body, jsRequireRegex, jsImportRegex)
	meta := map[string]any{}
	if imports = dedupe(imports); len(imports) > 0 {
		meta["imports"] = imports
	}
	funcs := collect(body, jsFuncRegex, jsArrowRegex)
	if funcs = dedupe(funcs); len(funcs) > 0 {
		meta["functions"] = funcs
	}
	if classes := dedupe(collect(body, jsClassRegex)); len(classes) > 0 {
		meta["classes"] = classes
	}
	return meta
}

func collect(body string, regexes ...*regexp.Regexp) []string {
	var out []string
	for _, re := range regexes {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

func rootPackage(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx > 0 {
		return dotted[:idx]
	}
	return dotted
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
