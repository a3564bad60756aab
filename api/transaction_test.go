package api

import (
	"reflect"
	"testing"

	"envelope/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 文档示例值必须能通过校验
func TestCreateTransactionRequest_FlagColorExample(t *testing.T) {
	field, ok := reflect.TypeOf(CreateTransactionRequest{}).FieldByName("FlagColor")
	require.True(t, ok)
	example := field.Tag.Get("example")
	assert.True(t, models.IsValidFlagColor(example), example)
	assert.False(t, models.IsValidFlagColor("RED"))
}
