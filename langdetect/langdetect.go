/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package langdetect

import (
	"bytes"

	"github.com/cloudflare/ahocorasick"
)

// Language is a programming language name as used in fenced code blocks.
type Language string

// Supported languages.
const (
	LanguageText       Language = "text"
	LanguageGo         Language = "go"
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
	LanguageCPP        Language = "cpp"
	LanguageHTML       Language = "html"
	LanguageCSS        Language = "css"
)

// Rule binds a language to the lower-cased keywords that indicate it.
type Rule struct {
	Language Language
	Keywords []string
}

// DefaultRules are checked in order, the first language with a matched keyword wins.
var DefaultRules = []Rule{
	{Language: LanguageGo, Keywords: []string{"package main", "func ", ":= ", "fmt."}},
	{Language: LanguagePython, Keywords: []string{"def ", "import ", "class ", "__init__", "self."}},
	{Language: LanguageJavaScript, Keywords: []string{"function ", "var ", "let ", "const ", "=>"}},
	{Language: LanguageJava, Keywords: []string{"public class", "private ", "public static"}},
	{Language: LanguageCPP, Keywords: []string{"#include", "int main", "std::"}},
	{Language: LanguageHTML, Keywords: []string{"<html>", "<div>", "<script>"}},
	{Language: LanguageCSS, Keywords: []string{"{", "}", "margin:", "padding:"}},
}

// Detector detects a language of a code snippet by matching keywords of all rules in a single pass.
// It's safe for concurrent use.
type Detector struct {
	matcher *ahocorasick.Matcher
	// keywordRanks maps an index of a dictionary keyword to the index of its rule.
	keywordRanks []int
	rules        []Rule
}

// NewDetector creates a new Detector with the given rules.
// Empty rules mean DefaultRules.
func NewDetector(rules []Rule) *Detector {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	var dict []string
	var ranks []int
	for i, rule := range rules {
		for _, kw := range rule.Keywords {
			dict = append(dict, string(bytes.ToLower([]byte(kw))))
			ranks = append(ranks, i)
		}
	}
	return &Detector{matcher: ahocorasick.NewStringMatcher(dict), keywordRanks: ranks, rules: rules}
}

// Detect returns the language of the snippet or LanguageText if nothing matches.
func (d *Detector) Detect(snippet string) Language {
	if snippet == "" {
		return LanguageText
	}
	best := -1
	for _, idx := range d.matcher.MatchThreadSafe(bytes.ToLower([]byte(snippet))) {
		if rank := d.keywordRanks[idx]; best == -1 || rank < best {
			best = rank
		}
	}
	if best == -1 {
		return LanguageText
	}
	return d.rules[best].Language
}

var defaultDetector = NewDetector(nil)

// Detect returns the language of the snippet using DefaultRules.
func Detect(snippet string) Language {
	return defaultDetector.Detect(snippet)
}

// TestFramework returns a conventional unit test framework for the language.
func TestFramework(lang Language) string {
	switch lang {
	case LanguageGo:
		return "testing"
	case LanguagePython:
		return "pytest"
	case LanguageJavaScript:
		return "jest"
	case LanguageJava:
		return "junit"
	case LanguageCPP:
		return "gtest"
	default:
		return "standard"
	}
}
