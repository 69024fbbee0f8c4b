package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actflow/internal/domain"
)

func TestParseProcessorType(t *testing.T) {
	for in, want := range map[string]domain.ProcessorType{
		"huawei":     domain.ProcessorTypeHuaweiAct,
		" Huawei ":   domain.ProcessorTypeHuaweiAct,
		"HUAWEI_ACT": domain.ProcessorTypeHuaweiAct,
		"invoice":    domain.ProcessorTypeInvoice,
		"custom":     domain.ProcessorTypeCustom,
	} {
		got, err := parseProcessorType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseProcessorType("spreadsheet")
	assert.Error(t, err)
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, "failed", resultStatus(map[string]any{"error": "boom"}))
	assert.Equal(t, "completed", resultStatus(map[string]any{"document_type": "Акт"}))
}

func TestRootCmd_RequiresFile(t *testing.T) {
	rootCmd.SetArgs([]string{"--type", "huawei"})
	rootCmd.SetOut(new(nopWriter))
	rootCmd.SetErr(new(nopWriter))

	err := rootCmd.Execute()

	assert.Error(t, err)
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
