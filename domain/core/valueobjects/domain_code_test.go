package valueobjects_test

import (
	"encoding/json"
	"testing"

	"referral-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCode_Normalization(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"lowercase passes through", "safeguarding", "safeguarding"},
		{"uppercase is folded", "SAFEGUARDING", "safeguarding"},
		{"mixed case is folded", "SafeGuarding", "safeguarding"},
		{"surrounding whitespace is trimmed", "  fire \t", "fire"},
		{"trim and fold combine", " Police ", "police"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := valueobjects.NewDomainCode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code.String())
		})
	}
}

func TestDomainCode_EmptyRejected(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := valueobjects.NewDomainCode(raw)
		assert.Error(t, err)
	}
}

func TestDomainCode_DifferentCasingsAreEqual(t *testing.T) {
	a, err := valueobjects.NewDomainCode("Fire")
	require.NoError(t, err)
	b, err := valueobjects.NewDomainCode("FIRE ")
	require.NoError(t, err)

	assert.True(t, a.Equals(b))
}

func TestDomainCode_Label(t *testing.T) {
	code, err := valueobjects.NewDomainCode("safeguarding")
	require.NoError(t, err)

	assert.Equal(t, "Safeguarding", code.Label())
}

func TestDomainCode_JSONRoundTrip(t *testing.T) {
	code, err := valueobjects.NewDomainCode("Fire")
	require.NoError(t, err)

	data, err := json.Marshal(code)
	require.NoError(t, err)
	assert.Equal(t, `"fire"`, string(data))

	var decoded valueobjects.DomainCode
	require.NoError(t, json.Unmarshal([]byte(`"POLICE"`), &decoded))
	assert.Equal(t, "police", decoded.String())
}
