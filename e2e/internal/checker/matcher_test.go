package checker

import "testing"

func TestMatchesExpectation(t *testing.T) {
	tests := []struct {
		name     string
		actual   interface{}
		expected interface{}
		want     bool
	}{
		{"equal strings", "sprint", "sprint", true},
		{"different strings", "sprint", "sudden_halt", false},
		{"equal numbers", 0.68, 0.68, true},
		{"int vs float", float64(30), 30, true},
		{"different numbers", 0.68, 0.9, false},
		{"regex match", "a7f3b6c0-1111-2222-3333-444455556666", "~^[0-9a-f-]{36}$~", true},
		{"regex mismatch", "not-a-uuid", "~^[0-9a-f]{8}-~", false},
		{"greater than", 0.85, ">0.6", true},
		{"greater than fails", 0.5, ">0.6", false},
		{"less or equal", float64(10), "<=10", true},
		{"map subset", map[string]interface{}{"kind": "sprint", "confidence": 0.68}, map[string]interface{}{"kind": "sprint"}, true},
		{"map missing key", map[string]interface{}{"kind": "sprint"}, map[string]interface{}{"device_id": "x"}, false},
		{"nested map", map[string]interface{}{"data": map[string]interface{}{"phase": "counting"}}, map[string]interface{}{"data": map[string]interface{}{"phase": "counting"}}, true},
		{"array match", []interface{}{"sms", "call"}, []interface{}{"sms", "call"}, true},
		{"array length mismatch", []interface{}{"sms"}, []interface{}{"sms", "call"}, false},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, "sprint", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := MatchesExpectation(tt.actual, tt.expected)
			if got != tt.want {
				t.Errorf("MatchesExpectation(%v, %v) = %v (%s), want %v",
					tt.actual, tt.expected, got, reason, tt.want)
			}
		})
	}
}

func TestMatchComparisonInvalidValues(t *testing.T) {
	if ok, _ := MatchesExpectation("not-a-number", ">5"); ok {
		t.Error("expected failure comparing non-numeric actual")
	}
	if ok, _ := MatchesExpectation(float64(5), ">abc"); ok {
		t.Error("expected failure for malformed comparison value")
	}
}
