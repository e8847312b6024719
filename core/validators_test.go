package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatedTag struct {
	Label string `json:"label" validate:"notblank"`
}

type validatedThing struct {
	Name   string         `json:"name" validate:"notblank"`
	Parent string         `json:"parent" validate:"required"`
	Tags   []validatedTag `json:"tags" validate:"dive"`
}

func TestTranslateErrors(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	thing := validatedThing{Name: "  ", Tags: []validatedTag{{Label: ""}}}

	err := validate.Struct(thing)
	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "Struct() error = %v", err)

	assert.Equal(t, map[string]string{
		"name":          "this field cannot be blank",
		"parent":        "this field is required",
		"tags[0].label": "this field cannot be blank",
	}, TranslateErrors(verrs, translator))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello", CleanString("  Hello\n"))
	assert.Equal(t, "hello", CleanString(" HeLLo ", true))
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID(NewID()))
	assert.False(t, IsValidID("not-an-id"))
	assert.False(t, IsValidID(""))
}
