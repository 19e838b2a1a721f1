package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/enrollment-ingress/pkg/transfer"
)

func TestDescribeAppendsDetails(t *testing.T) {
	err := transfer.NewError(transfer.ErrorCategoryValidation, "invalid row at line 3", nil).
		WithDetails("line 3: academic_year is required")

	got := describe(err)
	assert.Contains(t, got.Error(), "invalid row at line 3")
	assert.Contains(t, got.Error(), "\n  line 3: academic_year is required")

	var tErr *transfer.Error
	assert.True(t, errors.As(got, &tErr))
}

func TestDescribePassesPlainErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, err, describe(err))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, printJSON(cmd, map[string]int{"deleted": 2}))
	assert.Equal(t, "{\n  \"deleted\": 2\n}\n", buf.String())
}

func TestSubcommandArgs(t *testing.T) {
	ingest := newIngestCmd()
	assert.Error(t, ingest.Args(ingest, []string{"enrollment"}))
	assert.NoError(t, ingest.Args(ingest, []string{"enrollment", "a.csv"}))

	clearCmd := newClearCmd()
	assert.Error(t, clearCmd.Args(clearCmd, nil))

	verify := newVerifyCmd()
	assert.Error(t, verify.Args(verify, []string{"extra"}))

	sync := newSyncWarehouseCmd()
	assert.NoError(t, sync.Args(sync, []string{"enrollment", "RAW.ENROLLMENTS"}))
}
