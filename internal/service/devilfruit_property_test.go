// Property-based tests for the devil fruit ability validation.
package service

import (
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/model"
)

// drawAbilityInputs generates a list of distinct-typed ability inputs with
// values in the given range.
func drawAbilityInputs(t *rapid.T, minValue, maxValue int) []AbilityInput {
	types := model.AbilityTypes()
	count := rapid.IntRange(1, len(types)).Draw(t, "count")
	inputs := make([]AbilityInput, count)
	for i := 0; i < count; i++ {
		inputs[i] = AbilityInput{
			Type:  types[i],
			Value: rapid.IntRange(minValue, maxValue).Draw(t, "value"),
		}
	}
	return inputs
}

// TestAbilitySumWithinCapProperty: for any ability set whose values stay
// within the cap, validation succeeds and the returned sum is the exact
// total of the inputs.
func TestAbilitySumWithinCapProperty(t *testing.T) {
	cfg := &config.DevilFruitConfig{
		AbilityMinValue:      0,
		AbilityMaxValue:      100,
		AbilitiesMaxSum:      700,
		AbilitiesRequiredSum: 700,
	}

	rapid.Check(t, func(t *rapid.T) {
		inputs := drawAbilityInputs(t, 1, 100)

		expected := 0
		for _, in := range inputs {
			expected += in.Value
		}

		abilities, sum, err := ValidateAbilities(cfg, inputs)
		if err != nil {
			t.Fatalf("validation should succeed within the cap, got %v", err)
		}
		if sum != expected {
			t.Fatalf("sum mismatch: expected %d, got %d", expected, sum)
		}
		if len(abilities) != len(inputs) {
			t.Fatalf("expected %d ability rows, got %d", len(inputs), len(abilities))
		}
	})
}

// TestAbilitySumOverCapProperty: for any ability set whose total exceeds the
// cap, validation fails with a ValidationError before any row is returned.
func TestAbilitySumOverCapProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		inputs := drawAbilityInputs(t, 1, 100)

		total := 0
		for _, in := range inputs {
			total += in.Value
		}
		// pick a cap strictly below the total so the check must trip
		maxSum := rapid.IntRange(0, total-1).Draw(t, "maxSum")
		cfg := &config.DevilFruitConfig{
			AbilityMinValue:      0,
			AbilityMaxValue:      100,
			AbilitiesMaxSum:      maxSum,
			AbilitiesRequiredSum: maxSum,
		}

		_, _, err := ValidateAbilities(cfg, inputs)
		if err == nil {
			t.Fatalf("validation should fail: total %d over cap %d", total, maxSum)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

// TestComposeFruitNameProperty: any single alphabetic word W composes to
// "W W no Mi" with W title-cased, regardless of input casing.
func TestComposeFruitNameProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,12}`).Draw(t, "word")

		composed, err := ComposeFruitName(word)
		if err != nil {
			t.Fatalf("single word should compose, got %v", err)
		}

		titled := strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		expected := titled + " " + titled + " no Mi"
		if composed != expected {
			t.Fatalf("expected %q, got %q", expected, composed)
		}

		// composing is idempotent: the result is a valid 4-word name
		again, err := ComposeFruitName(composed)
		if err != nil {
			t.Fatalf("composed name should re-validate, got %v", err)
		}
		if again != composed {
			t.Fatalf("composition not stable: %q became %q", composed, again)
		}
	})
}
