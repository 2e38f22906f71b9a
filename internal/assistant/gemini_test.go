package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContents_KeepsRolesAndOrder(t *testing.T) {
	got := contents([]Turn{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleModel, Text: "hello"},
		{Role: RoleUser, Text: "how much did I spend?"},
	})

	require.Len(t, got, 3)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, "how much did I spend?", got[2].Parts[0].Text)
}
