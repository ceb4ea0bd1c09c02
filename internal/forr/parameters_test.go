package forr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeParameters(t *testing.T) {
	raw := `{"processDefinitionCode":42,"listParameters":[{"name":"param1","value":"a,b","separator":","}],"filterCondition":"b","degreeOfParallelism":3}`

	params, err := DecodeParameters(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), params.ProcessDefinitionCode)
	assert.Equal(t, []ForrInputParameter{{Name: "param1", Value: "a,b", Separator: ","}}, params.ListParameters)
	assert.Equal(t, "b", params.FilterCondition)
	assert.Equal(t, 3, params.DegreeOfParallelism)
	assert.Zero(t, params.MaxNumOfSubWorkflowInstances)
}

func TestDecodeParametersInvalid(t *testing.T) {
	for _, raw := range []string{"", "not-json", `{"listParameters":"oops"}`, `{"degreeOfParallelism":-1}`} {
		_, err := DecodeParameters(raw)
		assert.True(t, errors.Is(err, ErrInvalidTaskParameters), "raw=%q err=%v", raw, err)
	}
}

func TestResolvePlaceholders(t *testing.T) {
	params := map[string]string{"region": "cn,us", "skip": "us"}

	assert.Equal(t, "cn,us,eu", resolvePlaceholders("${region},eu", params))
	assert.Equal(t, "us", resolvePlaceholders("${skip}", params))
	assert.Equal(t, "${unknown}", resolvePlaceholders("${unknown}", params))
	assert.Equal(t, "${region}", resolvePlaceholders("${region}", nil))
}
