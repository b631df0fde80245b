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

package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"console info", &Config{Level: "info", Format: "console"}, false},
		{"json debug", &Config{Level: "debug", Format: "json"}, false},
		{"development", &Config{Level: "debug", Format: "console", Development: true}, false},
		{"bad level", &Config{Level: "shouting", Format: "console"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Enabled())
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{})

	ctx := IntoContext(context.Background(), log.WithValues("run", "abc123"))

	FromContext(ctx).Info("submitted relocation")
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], "submitted relocation"))
	assert.True(t, strings.Contains(lines[0], "abc123"))
}

func TestFromContextFallsBackToDiscard(t *testing.T) {
	log := FromContext(context.Background())

	// The fallback logger swallows everything instead of panicking.
	assert.False(t, log.Enabled())
	log.Info("dropped")
}
