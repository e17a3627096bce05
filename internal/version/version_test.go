package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.NotEmpty(t, Number())
	assert.NotContains(t, Number(), "\n")
	assert.Equal(t, Number()+" ("+Commit()+")", String())
}
