package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brequin/catalog/db"
)

func TestSelectTerms(t *testing.T) {
	stored := []db.TermInfo{
		{Code: "202520", Name: "Spring 2025"},
		{Code: "202510", Name: "Fall 2024"},
	}

	all, err := selectTerms(stored, "")
	require.NoError(t, err)
	assert.Equal(t, stored, all)

	one, err := selectTerms(stored, "202510")
	require.NoError(t, err)
	assert.Equal(t, []db.TermInfo{{Code: "202510", Name: "Fall 2024"}}, one)

	_, err = selectTerms(stored, "202610")
	assert.EqualError(t, err, "term 202610 is not stored, run terms first")
}
