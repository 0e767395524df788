package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	cases := map[string]Environment{
		"production":   Production,
		" PROD ":       Production,
		"staging":      Staging,
		"test":         Testing,
		"testing":      Testing,
		"":             Development,
		"qa-cluster-7": Development,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseEnvironment(in), "input %q", in)
	}
}

func TestEnvironmentFlags(t *testing.T) {
	assert.True(t, Production.IsProduction())
	assert.False(t, Staging.IsProduction())
	assert.True(t, Development.ExposesErrors())
	assert.False(t, Production.ExposesErrors())
}
