package tools

import (
	"errors"
	"testing"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracket_RejectsEmbeddedCloseBracket(t *testing.T) {
	t.Parallel()

	_, err := bracket("Users]; DROP TABLE dbo.Secrets; --")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestBracket_WrapsCleanIdentifier(t *testing.T) {
	t.Parallel()

	got, err := bracket("Users")
	require.NoError(t, err)
	assert.Equal(t, "[Users]", got)
}

func TestQualify_JoinsSchemaAndTable(t *testing.T) {
	t.Parallel()

	got, err := qualify("dbo", "Users")
	require.NoError(t, err)
	assert.Equal(t, "[dbo].[Users]", got)
}
