package registry

import "testing"

func TestClassifyMatchesAmountAndHeight(t *testing.T) {
	c := NewClassifier([]TierRange{
		{MinHeight: 0, MaxHeight: 100, Amount: 1000, Tier: Cumulus},
		{MinHeight: 101, MaxHeight: 0, Amount: 1000, Tier: Nimbus},
	})
	if got := c.Classify(50, 1000); got != Cumulus {
		t.Fatalf("expected Cumulus before height 100, got %v", got)
	}
	if got := c.Classify(200, 1000); got != Nimbus {
		t.Fatalf("expected Nimbus after height 100, got %v", got)
	}
}

func TestClassifyReturnsInvalidForUnknownAmount(t *testing.T) {
	c := NewClassifier([]TierRange{{MinHeight: 0, Amount: 1000, Tier: Cumulus}})
	if got := c.Classify(0, 42); got != Invalid {
		t.Fatalf("expected Invalid, got %v", got)
	}
}

func TestClassifyLowerTierWinsOnCollision(t *testing.T) {
	c := NewClassifier([]TierRange{
		{MinHeight: 0, Amount: 1000, Tier: Cumulus},
		{MinHeight: 0, Amount: 1000, Tier: Nimbus},
	})
	if got := c.Classify(0, 1000); got != Cumulus {
		t.Fatalf("expected first-listed (lower) tier to win, got %v", got)
	}
}

func TestTiersAscending(t *testing.T) {
	tiers := Tiers()
	for i := 1; i < len(tiers); i++ {
		if tiers[i] <= tiers[i-1] {
			t.Fatalf("Tiers() not ascending: %v", tiers)
		}
	}
}
