package oid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectIDRendering(t *testing.T) {
	raw, err := json.Marshal(map[string]any{"insertedId": ObjectID("655c7c5b037c912bb7ce3973")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"insertedId":{"$oid":"655c7c5b037c912bb7ce3973"}}`, string(raw))
}
