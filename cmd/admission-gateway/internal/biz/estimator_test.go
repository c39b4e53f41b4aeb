package biz

import (
	"math"
	"testing"
)

func TestCostEstimator_EstimateCost(t *testing.T) {
	estimator := NewCostEstimator()

	testCases := []struct {
		name         string
		model        string
		inputTokens  int
		outputTokens int
		expected     float64
	}{
		{
			name:         "已知模型 - gpt-4o",
			model:        "gpt-4o",
			inputTokens:  1_000_000,
			outputTokens: 1_000_000,
			expected:     12.50,
		},
		{
			name:         "已知模型 - claude-3-opus",
			model:        "claude-3-opus",
			inputTokens:  2_000_000,
			outputTokens: 0,
			expected:     30.00,
		},
		{
			name:         "未知模型走兜底价",
			model:        "some-unknown-model",
			inputTokens:  500_000,
			outputTokens: 500_000,
			expected:     2.00,
		},
		{
			name:         "版本化名称按前缀匹配",
			model:        "gpt-4o-2024-08-06",
			inputTokens:  1_000_000,
			outputTokens: 0,
			expected:     2.50,
		},
		{
			name:         "零 token 零成本",
			model:        "gpt-4o",
			inputTokens:  0,
			outputTokens: 0,
			expected:     0,
		},
		{
			name:         "负数 token 视为零",
			model:        "gpt-4o",
			inputTokens:  -100,
			outputTokens: -100,
			expected:     0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := estimator.EstimateCost(tc.model, tc.inputTokens, tc.outputTokens)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("EstimateCost(%s, %d, %d) = %f, want %f",
					tc.model, tc.inputTokens, tc.outputTokens, got, tc.expected)
			}
		})
	}
}

func TestCostEstimator_EstimateCost_Linearity(t *testing.T) {
	estimator := NewCostEstimator()

	single := estimator.EstimateCost("gpt-4o-mini", 1000, 500)
	double := estimator.EstimateCost("gpt-4o-mini", 2000, 1000)

	if math.Abs(double-2*single) > 1e-9 {
		t.Errorf("cost is not linear in token count: single=%f double=%f", single, double)
	}
}

func TestCostEstimator_EstimateCost_Deterministic(t *testing.T) {
	estimator := NewCostEstimator()

	first := estimator.EstimateCost("claude-3-5-sonnet", 12345, 6789)
	for i := 0; i < 10; i++ {
		if got := estimator.EstimateCost("claude-3-5-sonnet", 12345, 6789); got != first {
			t.Fatalf("estimate changed between calls: %f != %f", got, first)
		}
	}
}

func TestCostEstimator_EstimateTokens(t *testing.T) {
	estimator := NewCostEstimator()

	testCases := []struct {
		name           string
		promptChars    int
		maxTokens      int
		expectedInput  int
		expectedOutput int
	}{
		{
			name:           "按字符数估算输入",
			promptChars:    400,
			maxTokens:      200,
			expectedInput:  100,
			expectedOutput: 200,
		},
		{
			name:           "未携带输出上限取默认值",
			promptChars:    1000,
			maxTokens:      0,
			expectedInput:  250,
			expectedOutput: DefaultOutputTokens,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in, out := estimator.EstimateTokens(tc.promptChars, tc.maxTokens)
			if in != tc.expectedInput || out != tc.expectedOutput {
				t.Errorf("EstimateTokens(%d, %d) = (%d, %d), want (%d, %d)",
					tc.promptChars, tc.maxTokens, in, out, tc.expectedInput, tc.expectedOutput)
			}
		})
	}
}

func TestCostEstimator_KnownModel(t *testing.T) {
	estimator := NewCostEstimator()

	if !estimator.KnownModel("gpt-4o") {
		t.Error("gpt-4o should be known")
	}
	if estimator.KnownModel("totally-made-up") {
		t.Error("unknown model should not be known")
	}
}
