package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/model"
)

func testFruitConfig() *config.DevilFruitConfig {
	return &config.DevilFruitConfig{
		AbilityMinValue:      0,
		AbilityMaxValue:      100,
		AbilitiesMaxSum:      100,
		AbilitiesRequiredSum: 100,
	}
}

func TestComposeFruitName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "single word expands", input: "Gomu", want: "Gomu Gomu no Mi"},
		{name: "single lowercase word", input: "gomu", want: "Gomu Gomu no Mi"},
		{name: "four words kept", input: "Mera Mera no Mi", want: "Mera Mera no Mi"},
		{name: "four words title cased", input: "mera mera no mi", want: "Mera Mera no Mi"},
		{name: "mixed case", input: "HITO hito NO MI", want: "Hito Hito no Mi"},
		{name: "two words rejected", input: "Gomu Gomu", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "five words rejected", input: "Gomu Gomu no Mi extra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComposeFruitName(tt.input)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAbilities(t *testing.T) {
	cfg := testFruitConfig()

	t.Run("valid set sums up", func(t *testing.T) {
		abilities, sum, err := ValidateAbilities(cfg, []AbilityInput{
			{Type: model.AbilityFightDefenseBoost, Value: 60},
			{Type: model.AbilityGiftTax, Value: 40},
		})
		require.NoError(t, err)
		assert.Equal(t, 100, sum)
		require.Len(t, abilities, 2)
	})

	t.Run("zero value rejected", func(t *testing.T) {
		_, _, err := ValidateAbilities(cfg, []AbilityInput{
			{Type: model.AbilityGiftTax, Value: 0},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("duplicate type rejected", func(t *testing.T) {
		_, _, err := ValidateAbilities(cfg, []AbilityInput{
			{Type: model.AbilityGiftTax, Value: 10},
			{Type: model.AbilityGiftTax, Value: 20},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("fails on the first value over the cap", func(t *testing.T) {
		// 70+40 crosses the cap at the second value; the third is never reached
		_, _, err := ValidateAbilities(cfg, []AbilityInput{
			{Type: model.AbilityFightDefenseBoost, Value: 70},
			{Type: model.AbilityGiftTax, Value: 40},
			{Type: model.AbilityFightImmunityDuration, Value: 0},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Message, "maximum sum")
	})

	t.Run("value above max rejected", func(t *testing.T) {
		_, _, err := ValidateAbilities(cfg, []AbilityInput{
			{Type: model.AbilityGiftTax, Value: 101},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestAbilityMapsEqual(t *testing.T) {
	a := map[model.DevilFruitAbilityType]int{
		model.AbilityGiftTax:           40,
		model.AbilityFightDefenseBoost: 60,
	}
	b := map[model.DevilFruitAbilityType]int{
		model.AbilityFightDefenseBoost: 60,
		model.AbilityGiftTax:           40,
	}
	assert.True(t, abilityMapsEqual(a, b))

	b[model.AbilityGiftTax] = 41
	assert.False(t, abilityMapsEqual(a, b))

	delete(b, model.AbilityGiftTax)
	assert.False(t, abilityMapsEqual(a, b))
}
