// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphsearch

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNodeID(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("nodeid", validateNodeID))

	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"simple", "a", true},
		{"guid", "5f0c1c8e-0b9a-4a57-9c55-0c1c8e0b9a4a", true},
		{"unicode", "nœud", true},
		{"max length", strings.Repeat("x", MaxNodeIDBytes), true},
		{"empty", "", false},
		{"too long", strings.Repeat("x", MaxNodeIDBytes+1), false},
		{"space", "a b", false},
		{"tab", "a\tb", false},
		{"newline", "a\n", false},
		{"control", "a\x00b", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Var(tc.id, "nodeid")
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDescribeBindError(t *testing.T) {
	dist := -1
	req := PathsRequest{Start: "a b", Dist: &dist}

	err := testValidator(t).Struct(req)
	require.Error(t, err)

	msg := describeBindError(err)
	assert.Contains(t, msg, "start must be a non-blank id")
	assert.Contains(t, msg, "end is required")
	assert.Contains(t, msg, "dist must be at least 0")

	assert.Equal(t, "boom", describeBindError(errors.New("boom")))
}

func testValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, v.RegisterValidation("nodeid", validateNodeID))
	return v
}
