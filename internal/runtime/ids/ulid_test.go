package ids

import "testing"

func TestCreateULIDIsMonotonic(t *testing.T) {
	prev := CreateULID()
	if len(prev) != 26 {
		t.Fatalf("expected 26 characters, got %d (%s)", len(prev), prev)
	}
	for i := 0; i < 100; i++ {
		next := CreateULID()
		if next <= prev {
			t.Fatalf("ULIDs are not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}
