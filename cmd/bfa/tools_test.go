package main

import (
	"testing"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWasteArgs(t *testing.T) {
	waste, err := parseWasteArgs([]string{"food_scraps=6", " market_waste = 4", "food_scraps=1.5"})
	require.NoError(t, err)
	assert.Equal(t, map[domain.WasteTypeID]float64{
		domain.FoodScraps:  7.5,
		domain.MarketWaste: 4,
	}, waste)
}

func TestParseWasteArgs_Rejects(t *testing.T) {
	for _, arg := range []string{"food_scraps", "plastic=2", "food_scraps=abc", "food_scraps=-1"} {
		_, err := parseWasteArgs([]string{arg})
		assert.Error(t, err, arg)
	}
}
