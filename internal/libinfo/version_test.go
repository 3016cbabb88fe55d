/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"debug/buildinfo"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestExtractLibVersion(t *testing.T) {
	tests := []struct {
		name        string
		buildInfo   *buildinfo.BuildInfo
		expectedVer string
	}{
		{
			name:        "module found",
			buildInfo:   &buildinfo.BuildInfo{Deps: []*debug.Module{{Path: moduleName, Version: "v1.2.3"}}},
			expectedVer: "v1.2.3",
		},
		{
			name:        "major version suffix",
			buildInfo:   &buildinfo.BuildInfo{Deps: []*debug.Module{{Path: moduleName + "/v2", Version: "v2.0.0"}}},
			expectedVer: "v2.0.0",
		},
		{
			name:        "similar module name",
			buildInfo:   &buildinfo.BuildInfo{Deps: []*debug.Module{{Path: moduleName + "-contrib", Version: "v1.0.0"}}},
			expectedVer: "",
		},
		{
			name:        "nil build info",
			expectedVer: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedVer, extractLibVersion(tt.buildInfo, moduleName))
		})
	}
}

func TestAddPrometheusLibVersionLabel(t *testing.T) {
	labels := prometheus.Labels{"service": "editor"}
	got := AddPrometheusLibVersionLabel(labels)
	require.Equal(t, prometheus.Labels{"service": "editor", PrometheusLibVersionLabel: GetLibVersion()}, got)
	require.Len(t, labels, 1)
}

func TestUserAgent(t *testing.T) {
	require.True(t, strings.HasPrefix(UserAgent(), "go-aikit/v"))
}
