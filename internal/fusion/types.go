package fusion

// #region result

// Result is the fused scoring output returned to callers. All numeric
// fields are in [0, 1] except CompositeMetrics ratios, which cap at 10.
type Result struct {
	EnhancedStrength float32            `json:"enhanced_strength"`
	FieldStrength    float32            `json:"field_strength"`
	CompositeMetrics map[string]float32 `json:"composite_metrics"`
	Insights         []string           `json:"insights"`
}

// #endregion result
