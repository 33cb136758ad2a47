// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"code.hybscloud.com/lfring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"
)

func TestRunText(t *testing.T) {
	if lfring.RaceEnabled {
		t.Skip("skip: atomix operations on separate variables")
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-order", "3", "-items", "2000"}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "lock-free order=3 cap=8")
	assert.Contains(t, out, "wait-free order=3 cap=8")
	assert.Contains(t, out, "host: ")
	assert.Equal(t, 2, strings.Count(out, " ok\n"))
}

func TestRunJSON(t *testing.T) {
	if lfring.RaceEnabled {
		t.Skip("skip: atomix operations on separate variables")
	}
	var stdout, stderr bytes.Buffer
	args := []string{"-engine", "wf", "-order", "2", "-producers", "2", "-consumers", "3", "-items", "1000", "-json"}
	require.Equal(t, 0, run(context.Background(), args, &stdout, &stderr), "stderr: %s", stderr.String())

	sc := bufio.NewScanner(&stdout)
	lines := 0
	for sc.Scan() {
		var rep map[string]any
		require.NoError(t, sonnet.Unmarshal(sc.Bytes(), &rep))
		assert.Equal(t, "wf", rep["engine"])
		assert.EqualValues(t, 2000, rep["produced"])
		assert.EqualValues(t, 2000, rep["consumed"])
		lines++
	}
	assert.Equal(t, 1, lines)
}

func TestRunInvalidFlags(t *testing.T) {
	for _, args := range [][]string{
		{"-engine", "mutex"},
		{"-producers", "0"},
		{"-order", "64"},
		{"-items", "0"},
		{"-no-such-flag"},
	} {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, run(context.Background(), args, &stdout, &stderr), "args %v", args)
		assert.Zero(t, stdout.Len(), "args %v", args)
		assert.NotZero(t, stderr.Len(), "args %v", args)
	}
}
