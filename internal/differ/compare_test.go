package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldsEqual_NumericTypeDriftIsTolerated(t *testing.T) {
	t.Parallel()

	// Desired values come out of a YAML decoder as int; remote values come
	// out of a JSON decoder as float64.
	desired := map[string]interface{}{"retries": 3, "interval": 1.5}
	remote := map[string]interface{}{"retries": float64(3), "interval": float64(1.5)}

	assert.True(t, fieldsEqual(desired, remote, nil))
}

func TestFieldsEqual_RemoteOnlyFieldsAreIgnored(t *testing.T) {
	t.Parallel()

	desired := map[string]interface{}{"name": "Raw"}
	remote := map[string]interface{}{"name": "Raw", "id": float64(7), "writeProtected": false}

	assert.True(t, fieldsEqual(desired, remote, nil))
}

func TestFieldsEqual_MissingRemoteKeyDiffers(t *testing.T) {
	t.Parallel()

	desired := map[string]interface{}{"name": "Raw", "description": "added"}
	remote := map[string]interface{}{"name": "Raw"}

	assert.False(t, fieldsEqual(desired, remote, nil))
}

func TestFieldsEqual_ServerManagedKeysSkippedOnBothSides(t *testing.T) {
	t.Parallel()

	desired := map[string]interface{}{"name": "Raw", "lastUpdatedTime": 1}
	remote := map[string]interface{}{"name": "Raw", "lastUpdatedTime": float64(99)}

	assert.True(t, fieldsEqual(desired, remote, []string{"lastUpdatedTime"}))
}

func TestValuesEqual_NestedStructures(t *testing.T) {
	t.Parallel()

	a := map[string]interface{}{
		"destination": map[string]interface{}{"type": "assets"},
		"tags":        []interface{}{"a", "b"},
	}
	b := map[string]interface{}{
		"destination": map[string]interface{}{"type": "assets"},
		"tags":        []interface{}{"a", "b"},
	}
	assert.True(t, valuesEqual(a, b))

	// Slice order is significant.
	c := map[string]interface{}{
		"destination": map[string]interface{}{"type": "assets"},
		"tags":        []interface{}{"b", "a"},
	}
	assert.False(t, valuesEqual(a, c))
}

func TestValuesEqual_NilAndTypeMismatch(t *testing.T) {
	t.Parallel()

	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, "x"))
	assert.False(t, valuesEqual("3", 3))
	assert.False(t, valuesEqual(true, "true"))
}
