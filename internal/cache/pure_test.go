package cache

import (
	"encoding/hex"
	"testing"
)

func TestHashIP(t *testing.T) {
	t.Parallel()

	addrs := []string{
		"192.168.1.1",
		"192.168.1.2",
		"10.0.0.1",
		"127.0.0.1",
		"8.8.8.8",
		"::1",
		"2001:0db8:85a3:0000:0000:8a2e:0370:7334",
		"",
	}

	seen := make(map[string]string, len(addrs))
	for _, ip := range addrs {
		h := hashIP(ip)

		if len(h) != 16 {
			t.Errorf("hashIP(%q) length = %d, want 16", ip, len(h))
		}
		if _, err := hex.DecodeString(h); err != nil {
			t.Errorf("hashIP(%q) = %q is not hex: %v", ip, h, err)
		}
		if h != hashIP(ip) {
			t.Errorf("hashIP(%q) is not deterministic", ip)
		}
		if prev, dup := seen[h]; dup {
			t.Errorf("hashIP collision: %q and %q both map to %s", prev, ip, h)
		}
		seen[h] = ip
	}
}

func TestResultsKey_Scopes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		electionID string
		expected   string
	}{
		{"global tally", "", "results:live:all"},
		{"election tally", "01HV3E8ZW0QK", "results:live:election:01HV3E8ZW0QK"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key := resultsKey(tt.electionID)
			if key != tt.expected {
				t.Errorf("resultsKey(%q) = %q, want %q", tt.electionID, key, tt.expected)
			}
		})
	}
}

func TestResultsKey_DistinctPerElection(t *testing.T) {
	t.Parallel()

	if resultsKey("a") == resultsKey("b") {
		t.Error("Different elections should cache under different keys")
	}
	if resultsKey("a") == resultsKey("") {
		t.Error("Election tally should not collide with the global tally")
	}
}
