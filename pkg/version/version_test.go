package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	v := Info{}
	assert.NoError(t, json.Unmarshal([]byte(Version), &v))
	assert.Equal(t, Read(), v)
	assert.Contains(t, v.Fields(), "commit")
}
