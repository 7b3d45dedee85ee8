package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ace@arena.gg", NormalizeEmail("  Ace@Arena.GG "))
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Ace@Arena.GG", "ace@arena.gg"},
		{" +919812345678 ", "+919812345678"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeIdentifier(tt.input), tt.input)
	}
}

func TestMaskIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ace@arena.gg", "a**@arena.gg"},
		{"a@arena.gg", "a@arena.gg"},
		{"+919812345678", "*********5678"},
		{"123", "***"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MaskIdentifier(tt.input, 4), tt.input)
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.True(t, strings.HasPrefix(a, "req_"))
	assert.NotEqual(t, a, b)
}
