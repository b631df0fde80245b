/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerRunAll(t *testing.T) {
	checker := NewChecker()
	checker.Register("up", func(ctx context.Context) error { return nil })
	checker.Register("down", func(ctx context.Context) error { return errors.New("session expired") })

	results := checker.RunAll(context.Background())
	require.Len(t, results, 2)

	assert.Equal(t, StatusHealthy, results["up"].Status)
	assert.Empty(t, results["up"].Message)
	assert.Equal(t, StatusUnhealthy, results["down"].Status)
	assert.Equal(t, "session expired", results["down"].Message)
}

func TestCheckerHealthy(t *testing.T) {
	checker := NewChecker()
	assert.True(t, checker.Healthy(context.Background()), "no checks means healthy")

	checker.Register("vcenter", func(ctx context.Context) error { return nil })
	assert.True(t, checker.Healthy(context.Background()))

	checker.Register("broken", func(ctx context.Context) error { return errors.New("boom") })
	assert.False(t, checker.Healthy(context.Background()))
}

func TestServerEndpoints(t *testing.T) {
	checker := NewChecker()
	checker.Register("vcenter", func(ctx context.Context) error { return nil })
	srv := NewServer(":0", checker)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)
	assert.Equal(t, http.StatusOK, get("/metrics").Code)

	checker.Register("vcenter", func(ctx context.Context) error { return errors.New("session expired") })
	rec := get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "session expired")
}
