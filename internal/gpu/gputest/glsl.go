package gputest

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	mainFunc     = regexp.MustCompile(`\bvoid\s+main\s*\(\s*(void)?\s*\)`)
	uniformStmt  = regexp.MustCompile(`\buniform\s+([^;{]+);`)
	attribDecl   = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?in\s+\w+\s+(\w+)\s*;`)
	localSizeArg = regexp.MustCompile(`local_size_([xyz])\s*=\s*(\d+)`)
	arraySuffix  = regexp.MustCompile(`\s*\[[^\]]*\]\s*$`)
)

func stripComments(src string) string {
	return lineComment.ReplaceAllString(blockComment.ReplaceAllString(src, ""), "")
}

// checkSource returns a compiler-style log for sources a GLSL compiler
// would reject outright, or "" if the source looks well formed.
func checkSource(src string) string {
	body := stripComments(src)
	if strings.Contains(body, "#error") {
		return "0:1(1): error: #error directive"
	}
	if strings.Count(body, "{") != strings.Count(body, "}") ||
		strings.Count(body, "(") != strings.Count(body, ")") {
		return "0:1(1): error: syntax error, unexpected end of file"
	}
	if !mainFunc.MatchString(body) {
		return "0:1(1): error: no function with name 'main'"
	}
	return ""
}

// uniformDecl is a declared uniform and its GLSL type, e.g. sampler2D.
type uniformDecl struct {
	name string
	typ  string
}

// uniformDecls lists declared uniforms in declaration order.
func uniformDecls(src string) []uniformDecl {
	var decls []uniformDecl
	for _, m := range uniformStmt.FindAllStringSubmatch(stripComments(src), -1) {
		decl := arraySuffix.ReplaceAllString(strings.TrimSpace(m[1]), "")
		fields := strings.Fields(decl)
		if len(fields) < 2 {
			continue
		}
		decls = append(decls, uniformDecl{name: fields[len(fields)-1], typ: fields[len(fields)-2]})
	}
	return decls
}

// attribNames lists vertex inputs in declaration order.
func attribNames(src string) []string {
	var names []string
	for _, m := range attribDecl.FindAllStringSubmatch(stripComments(src), -1) {
		names = append(names, m[1])
	}
	return names
}

func localSize(src string) [3]int {
	size := [3]int{1, 1, 1}
	for _, m := range localSizeArg.FindAllStringSubmatch(stripComments(src), -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		size[m[1][0]-'x'] = n
	}
	return size
}
