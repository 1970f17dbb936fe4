package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loopProgram = `{
  "functions": [
    {
      "name": "main",
      "instrs": [
        {"dest": "a", "op": "const", "type": "int", "value": 4},
        {"dest": "b", "op": "const", "type": "int", "value": 2},
        {"dest": "sum", "op": "add", "type": "int", "args": ["a", "b"]},
        {"op": "print", "args": ["sum"]}
      ]
    }
  ]
}`

func TestRunTransformNoFlagsEchoesProgram(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runTransform(nil, strings.NewReader(loopProgram), &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"op": "add"`)
	assert.Contains(t, out.String(), `"op": "print"`)
}

func TestRunTransformAppliesGlobalTDCE(t *testing.T) {
	const deadCode = `{
    "functions": [
      {
        "name": "main",
        "instrs": [
          {"dest": "unused", "op": "const", "type": "int", "value": 1},
          {"dest": "a", "op": "const", "type": "int", "value": 4},
          {"op": "print", "args": ["a"]}
        ]
      }
    ]
  }`
	var out, errOut bytes.Buffer
	err := runTransform([]string{"-o", "g_tdce"}, strings.NewReader(deadCode), &out, &errOut)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), `"dest": "unused"`)
	assert.Contains(t, out.String(), `"dest": "a"`)
}

func TestRunTransformRejectsUnknownOpt(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runTransform([]string{"-o", "bogus"}, strings.NewReader(loopProgram), &out, &errOut)
	require.Error(t, err)
}

func TestRunTransformDumpTextWritesToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runTransform([]string{"-dump-text"}, strings.NewReader(loopProgram), &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "@main(")
}

func TestRunAnalyzeLiveVariables(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runAnalyze([]string{"-a", "live"}, strings.NewReader(loopProgram), &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "main:")
	assert.Contains(t, out.String(), "in=")
}

func TestRunAnalyzeReachingDefinitions(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runAnalyze([]string{"-a", "reaching_defns"}, strings.NewReader(loopProgram), &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "main:")
}

func TestRunAnalyzeRejectsUnknownAnalysis(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runAnalyze([]string{"-a", "bogus"}, strings.NewReader(loopProgram), &out, &errOut)
	require.Error(t, err)
}

func TestJoinOptsListsEveryFlag(t *testing.T) {
	joined := joinOpts()
	assert.Contains(t, joined, "all")
	assert.Contains(t, joined, "lvn")
}
