package biz

import (
	"strings"
)

// modelPrice 每百万 token 的单价（USD）
type modelPrice struct {
	InputPerM  float64
	OutputPerM float64
}

// FallbackPricePerM 未知模型的保守兜底价，对合并 token 数计费
const FallbackPricePerM = 2.0

// 内置价格表。未覆盖模型走兜底价，估价宁可偏高不可偏低。
var defaultPricing = map[string]modelPrice{
	"gpt-4o":            {InputPerM: 2.50, OutputPerM: 10.00},
	"gpt-4o-mini":       {InputPerM: 0.15, OutputPerM: 0.60},
	"gpt-4-turbo":       {InputPerM: 10.00, OutputPerM: 30.00},
	"gpt-3.5-turbo":     {InputPerM: 0.50, OutputPerM: 1.50},
	"o1":                {InputPerM: 15.00, OutputPerM: 60.00},
	"o1-mini":           {InputPerM: 1.10, OutputPerM: 4.40},
	"claude-3-opus":     {InputPerM: 15.00, OutputPerM: 75.00},
	"claude-3-5-sonnet": {InputPerM: 3.00, OutputPerM: 15.00},
	"claude-3-5-haiku":  {InputPerM: 0.80, OutputPerM: 4.00},
	"claude-3-haiku":    {InputPerM: 0.25, OutputPerM: 1.25},
	"gemini-1.5-pro":    {InputPerM: 1.25, OutputPerM: 5.00},
	"gemini-1.5-flash":  {InputPerM: 0.075, OutputPerM: 0.30},
	"gemini-2.0-flash":  {InputPerM: 0.10, OutputPerM: 0.40},
	"deepseek-chat":     {InputPerM: 0.27, OutputPerM: 1.10},
	"llama-3.1-70b":     {InputPerM: 0.60, OutputPerM: 0.80},
	"mistral-large":     {InputPerM: 2.00, OutputPerM: 6.00},
}

// DefaultOutputTokens 请求未携带输出上限时的默认预估
const DefaultOutputTokens = 1000

// CostEstimator 确定性的 token 计价器。无副作用、无失败路径：
// 未知模型回落到兜底价而不是报错。
type CostEstimator struct {
	pricing map[string]modelPrice
}

// NewCostEstimator 创建计价器
func NewCostEstimator() *CostEstimator {
	return &CostEstimator{pricing: defaultPricing}
}

// EstimateCost 按模型价格表计价；未知模型对合并 token 数套兜底价。
// 返回值恒非负。
func (e *CostEstimator) EstimateCost(model string, inputTokens, outputTokens int) float64 {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	price, ok := e.lookup(model)
	if !ok {
		return float64(inputTokens+outputTokens) / 1_000_000.0 * FallbackPricePerM
	}

	inputCost := float64(inputTokens) / 1_000_000.0 * price.InputPerM
	outputCost := float64(outputTokens) / 1_000_000.0 * price.OutputPerM
	return inputCost + outputCost
}

// EstimateTokens 近似估算：输入按总字符数除以 4，
// 输出取请求的上限，未携带时取默认值。
func (e *CostEstimator) EstimateTokens(promptChars, maxTokens int) (inputTokens, outputTokens int) {
	inputTokens = promptChars / 4
	outputTokens = maxTokens
	if outputTokens <= 0 {
		outputTokens = DefaultOutputTokens
	}
	return inputTokens, outputTokens
}

// KnownModel 价格表是否覆盖该模型
func (e *CostEstimator) KnownModel(model string) bool {
	_, ok := e.lookup(model)
	return ok
}

// lookup 先精确匹配，再按版本化名称前缀匹配
// （gpt-4o-2024-08-06 命中 gpt-4o）
func (e *CostEstimator) lookup(model string) (modelPrice, bool) {
	if price, ok := e.pricing[model]; ok {
		return price, true
	}

	var bestKey string
	for key := range e.pricing {
		if strings.HasPrefix(model, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey != "" {
		return e.pricing[bestKey], true
	}
	return modelPrice{}, false
}
