package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaErrorMessageIsStable(t *testing.T) {
	err := &SchemaError{
		Missing: []string{"stock"},
		Invalid: map[string]string{
			"price":     "not a number: \"cheap\"",
			"month":     "unsupported type bool",
			"promotion": "unsupported type bool",
		},
	}
	want := `schema violation (missing: stock; month: unsupported type bool; price: not a number: "cheap"; promotion: unsupported type bool)`
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, err.Error())
	}
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestSchemaErrorEmpty(t *testing.T) {
	assert.Equal(t, ErrSchema.Error(), (&SchemaError{}).Error())
}
