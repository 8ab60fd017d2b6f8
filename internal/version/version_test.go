package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoMatchesGetters(t *testing.T) {
	v, c, d := Info()

	assert.NotEmpty(t, v)
	assert.Equal(t, GetVersion(), v)
	assert.Equal(t, GetCommit(), c)
	assert.Equal(t, GetDate(), d)
}

func TestString(t *testing.T) {
	assert.Equal(t, "version="+GetVersion()+" commit="+GetCommit()+" date="+GetDate(), String())
}
