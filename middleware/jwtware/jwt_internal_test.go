package jwtware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetExtractorsParsing(t *testing.T) {
	tests := []struct {
		name        string
		tokenLookup string
		expected    int
	}{
		{"single header", "header:Authorization", 1},
		{"header and query", "header:Authorization,query:token", 2},
		{"all sources", "header:Authorization, query:token, param:jwt, cookie:session", 4},
		{"unknown source ignored", "body:token", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extractors := GetExtractors(tc.tokenLookup, "Bearer")
			require.Len(t, extractors, tc.expected)
		})
	}
}

func TestKeyfuncOptionsRefreshErrorHandlerIsSafe(t *testing.T) {
	opts := keyfuncOptions(nil)
	require.NotNil(t, opts.RefreshErrorHandler)
	require.NotPanics(t, func() {
		opts.RefreshErrorHandler(errors.New("refresh failed"))
	})

	require.Equal(t, time.Hour, opts.RefreshInterval)
	require.Equal(t, 5*time.Minute, opts.RefreshRateLimit)
	require.Equal(t, 10*time.Second, opts.RefreshTimeout)
	require.True(t, opts.RefreshUnknownKID)
}

func TestPerformAuthorizationChecksNoConfig(t *testing.T) {
	require.NoError(t, performAuthorizationChecks(nil, Config{}))
}
