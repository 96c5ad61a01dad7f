package elsearch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantMatch bool
	}{
		{"empty query lists recent", "", false},
		{"text query matches fields", "acme hosting", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildSearchQuery(tt.query, 20, 10)
			assert.Equal(t, 20, q["from"])
			assert.Equal(t, 10, q["size"])

			raw, err := json.Marshal(q)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"is_archived":false`)
			if tt.wantMatch {
				assert.Contains(t, string(raw), `"multi_match"`)
				assert.Contains(t, string(raw), `"contract_number^4"`)
			} else {
				assert.NotContains(t, string(raw), "multi_match")
			}
		})
	}
}

func TestContractMappingIsValidJSON(t *testing.T) {
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(contractMapping, &m))
	assert.Contains(t, m, "mappings")
}
