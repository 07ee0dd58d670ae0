package unicall

// Params carries provider call parameters such as temperature or token
// limits. Providers read the keys they understand and ignore the rest.
type Params map[string]any

// Well-known parameter keys translated by every provider plug-in.
const (
	ParamMaxTokens   = "max_tokens"
	ParamTemperature = "temperature"
	ParamTopP        = "top_p"
	ParamStop        = "stop"
)

// merged layers overrides on top of defaults without mutating either.
func mergedParams(defaults, overrides Params) Params {
	out := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Float64 reads a numeric parameter, accepting the integer forms callers
// commonly write in literals.
func (p Params) Float64(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int64 reads an integer parameter.
func (p Params) Int64(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}
