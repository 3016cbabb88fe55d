/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"context"

	"github.com/acronis/go-aikit/langdetect"
	"github.com/acronis/go-aikit/log"
)

// AnalysisType is a focus of the code analysis.
type AnalysisType string

// Analysis types.
const (
	AnalysisGeneral     AnalysisType = "general"
	AnalysisSecurity    AnalysisType = "security"
	AnalysisPerformance AnalysisType = "performance"
	AnalysisStyle       AnalysisType = "style"
	AnalysisBugs        AnalysisType = "bugs"
)

// DocType is a kind of the generated documentation.
type DocType string

// Documentation types.
const (
	DocDocstring DocType = "docstring"
	DocReadme    DocType = "readme"
	DocAPI       DocType = "api"
	DocInline    DocType = "inline"
)

// TestFrameworkAuto makes GenerateTests pick the test framework by the detected language.
const TestFrameworkAuto = "auto"

// Analyze reviews the code with the given focus. Unknown analysis types fall back to AnalysisGeneral.
// Like all the task operations, it's paced and retried but never cached.
func (a *Assistant) Analyze(ctx context.Context, code string, analysisType AnalysisType) (*Response, error) {
	switch analysisType {
	case AnalysisGeneral, AnalysisSecurity, AnalysisPerformance, AnalysisStyle, AnalysisBugs:
	default:
		analysisType = AnalysisGeneral
	}
	req := &Request{Kind: KindAnalysis, Prompt: code, Task: string(analysisType)}
	return a.runTask(ctx, a.prepareRequest(req, KindAnalysis, DefaultAnalysisMaxTokens, DefaultAnalysisTemperature))
}

// Document generates documentation of the given type for the code. Unknown types fall back to DocDocstring.
func (a *Assistant) Document(ctx context.Context, code string, docType DocType) (*Response, error) {
	switch docType {
	case DocDocstring, DocReadme, DocAPI, DocInline:
	default:
		docType = DocDocstring
	}
	req := &Request{Kind: KindDocumentation, Prompt: code, Task: string(docType)}
	return a.runTask(ctx, a.prepareRequest(
		req, KindDocumentation, DefaultDocumentationMaxTokens, DefaultDocumentationTemperature))
}

// GenerateTests generates unit tests for the code using the framework.
// Empty framework or TestFrameworkAuto means the conventional framework of the detected language.
func (a *Assistant) GenerateTests(ctx context.Context, code string, framework string) (*Response, error) {
	r := a.prepareRequest(&Request{Kind: KindTests, Prompt: code}, KindTests, DefaultTestsMaxTokens, DefaultTestsTemperature)
	if framework == "" || framework == TestFrameworkAuto {
		framework = langdetect.TestFramework(r.Language)
	}
	r.Task = framework
	return a.runTask(ctx, r)
}

func (a *Assistant) runTask(ctx context.Context, r *Request) (*Response, error) {
	logger := a.logger.With(
		log.String("request_id", r.ID), log.String("kind", string(r.Kind)), log.String("task", r.Task))
	resp, err := a.generate(ctx, r, logger)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
