package channel

import "testing"

func TestClassifier_ExtractDealID(t *testing.T) {
	classifier := NewClassifier("rcn")

	testCases := []struct {
		name     string
		channel  string
		expected string
	}{
		{
			name:     "deal id at end",
			channel:  "rcn-smith-deal603",
			expected: "603",
		},
		{
			name:     "deal id in middle",
			channel:  "rcn-deal42-acme",
			expected: "42",
		},
		{
			name:     "uppercase deal",
			channel:  "rcn-acme-DEAL77",
			expected: "77",
		},
		{
			name:     "mixed case deal",
			channel:  "rcn-acme-Deal901",
			expected: "901",
		},
		{
			name:     "first of two deal ids wins",
			channel:  "rcn-deal1-deal2",
			expected: "1",
		},
		{
			name:     "no deal id",
			channel:  "general",
			expected: "",
		},
		{
			name:     "deal without digits",
			channel:  "rcn-bigdeal-pending",
			expected: "",
		},
		{
			name:     "empty name",
			channel:  "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := classifier.ExtractDealID(tc.channel)
			if result != tc.expected {
				t.Errorf("ExtractDealID(%q) = %q, want %q", tc.channel, result, tc.expected)
			}
		})
	}
}

func TestClassifier_IsReconChannel(t *testing.T) {
	testCases := []struct {
		name     string
		pattern  string
		channel  string
		expected bool
	}{
		{
			name:     "match at prefix",
			pattern:  "rcn",
			channel:  "rcn-acme-deal42",
			expected: true,
		},
		{
			name:     "match in middle",
			pattern:  "rcn",
			channel:  "team-rcn-west",
			expected: true,
		},
		{
			name:     "case insensitive",
			pattern:  "rcn",
			channel:  "RCN-acme",
			expected: true,
		},
		{
			name:     "no match",
			pattern:  "rcn",
			channel:  "general",
			expected: false,
		},
		{
			name:     "custom pattern",
			pattern:  "approval",
			channel:  "sales-approval-deal9",
			expected: true,
		},
		{
			name:     "empty pattern never matches",
			pattern:  "",
			channel:  "rcn-acme",
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classifier := NewClassifier(tc.pattern)
			result := classifier.IsReconChannel(tc.channel)
			if result != tc.expected {
				t.Errorf("IsReconChannel(%q) = %v, want %v", tc.channel, result, tc.expected)
			}
		})
	}
}
