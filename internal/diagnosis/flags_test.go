package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFlags(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "plain summary",
			text:     "I worked hard on the team and learned about leadership.",
			expected: nil,
		},
		{
			name:     "quoted dialogue",
			text:     `She looked at the board. "Try it again," she said.`,
			expected: []string{FlagQuotedDialogue},
		},
		{
			name:     "named individual with surname",
			text:     "my partner Maria Alvarez rewired the arm overnight",
			expected: []string{FlagNamedIndividual},
		},
		{
			name:     "titled individual",
			text:     "every morning Coach Reyes unlocked the gym",
			expected: []string{FlagNamedIndividual},
		},
		{
			name:     "metric",
			text:     "we raised attendance by 40%",
			expected: []string{FlagQuantifiedMetric},
		},
		{
			name:     "nonlinear time",
			text:     "Looking back, the failure was the point",
			expected: []string{FlagNonlinearTime},
		},
		{
			name:     "sensory and reflection",
			text:     "the solder smelled sharp and I realized I was happy",
			expected: []string{FlagReflection, FlagSensoryDetail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFlags(tt.text))
		})
	}
}

func TestHasNamedIndividual_IgnoresSentenceStarters(t *testing.T) {
	assert.False(t, hasNamedIndividual("The Robotics club met daily."))
	assert.False(t, hasNamedIndividual("When School ended we stayed."))
	assert.True(t, hasNamedIndividual("I called Jordan Lee after practice."))
}

func TestFlagSet(t *testing.T) {
	set := NewFlagSet([]string{"b", "a"}, []string{"a", ""}, nil)
	assert.True(t, set.Has("a"))
	assert.False(t, set.Has("c"))
	assert.Equal(t, []string{"a", "b"}, set.Sorted())
}
