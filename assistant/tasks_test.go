/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-aikit/langdetect"
	"github.com/acronis/go-aikit/retry"
)

func TestAssistant_Analyze(t *testing.T) {
	tests := []struct {
		analysisType AnalysisType
		wantTask     string
	}{
		{analysisType: AnalysisSecurity, wantTask: "security"},
		{analysisType: AnalysisBugs, wantTask: "bugs"},
		{analysisType: "", wantTask: "general"},
		{analysisType: "readability", wantTask: "general"},
	}
	for _, tt := range tests {
		t.Run(string(tt.analysisType), func(t *testing.T) {
			env := newTestEnv(t, 10, Opts{})
			resp, err := env.asst.Analyze(context.Background(), "eval(input())", tt.analysisType)
			require.NoError(t, err)
			require.Equal(t, "echo: eval(input())", resp.Content)

			reqs := env.backend.Requests()
			require.Len(t, reqs, 1)
			require.Equal(t, KindAnalysis, reqs[0].Kind)
			require.Equal(t, tt.wantTask, reqs[0].Task)
			require.Equal(t, DefaultAnalysisMaxTokens, reqs[0].MaxTokens)
			require.Equal(t, DefaultAnalysisTemperature, *reqs[0].Temperature)
		})
	}
}

func TestAssistant_Document(t *testing.T) {
	env := newTestEnv(t, 10, Opts{})
	_, err := env.asst.Document(context.Background(), "def add(a, b):\n    return a + b", DocReadme)
	require.NoError(t, err)
	_, err = env.asst.Document(context.Background(), "def add(a, b):\n    return a + b", "manual")
	require.NoError(t, err)

	reqs := env.backend.Requests()
	require.Len(t, reqs, 2)
	require.Equal(t, KindDocumentation, reqs[0].Kind)
	require.Equal(t, "readme", reqs[0].Task)
	require.Equal(t, "docstring", reqs[1].Task)
	require.Equal(t, langdetect.LanguagePython, reqs[0].Language)
	require.Equal(t, DefaultDocumentationMaxTokens, reqs[0].MaxTokens)
	require.Equal(t, DefaultDocumentationTemperature, *reqs[0].Temperature)
}

func TestAssistant_GenerateTests(t *testing.T) {
	tests := []struct {
		name          string
		code          string
		framework     string
		wantFramework string
	}{
		{name: "auto for python", code: "def add(a, b):", framework: TestFrameworkAuto, wantFramework: "pytest"},
		{name: "empty for go", code: "func Add(a, b int) int {", wantFramework: "testing"},
		{name: "auto for plain text", code: "hello", framework: TestFrameworkAuto, wantFramework: "standard"},
		{name: "explicit", code: "def add(a, b):", framework: "unittest", wantFramework: "unittest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 10, Opts{})
			_, err := env.asst.GenerateTests(context.Background(), tt.code, tt.framework)
			require.NoError(t, err)
			reqs := env.backend.Requests()
			require.Len(t, reqs, 1)
			require.Equal(t, KindTests, reqs[0].Kind)
			require.Equal(t, tt.wantFramework, reqs[0].Task)
			require.Equal(t, DefaultTestsMaxTokens, reqs[0].MaxTokens)
			require.Equal(t, DefaultTestsTemperature, *reqs[0].Temperature)
		})
	}
}

func TestAssistant_TasksArePacedRetriedAndNotCached(t *testing.T) {
	env := newTestEnv(t, 10, Opts{RetryPolicy: retry.NewConstantBackoffPolicy(time.Millisecond, 3)})
	env.backend.generate = func(call int, req *Request) (*Response, error) {
		if call == 1 {
			return nil, errTemporary
		}
		return &Response{Content: "looks good"}, nil
	}
	for i := 0; i < 2; i++ {
		resp, err := env.asst.Analyze(context.Background(), "x := 1", AnalysisStyle)
		require.NoError(t, err)
		require.Equal(t, "looks good", resp.Content)
	}
	require.Len(t, env.backend.Requests(), 3)
	require.Equal(t, 3, env.pacer.Len())
	require.Equal(t, 0, env.cache.Len())

	entry, found := env.logger.FindEntry("response generated")
	require.True(t, found)
	field, found := entry.FindField("task")
	require.True(t, found)
	require.Equal(t, "style", string(field.Bytes))
}
