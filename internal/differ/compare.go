package differ

// fieldsEqual compares the desired field mapping against the remote one by
// value, ignoring server-managed fields on both sides. Remote-only fields
// outside the ignore list are treated as server-populated defaults, so only
// desired keys drive the comparison.
func fieldsEqual(desired, remote map[string]interface{}, serverManaged []string) bool {
	ignored := make(map[string]struct{}, len(serverManaged))
	for _, f := range serverManaged {
		ignored[f] = struct{}{}
	}

	for key, want := range desired {
		if _, skip := ignored[key]; skip {
			continue
		}
		got, ok := remote[key]
		if !ok {
			return false
		}
		if !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// valuesEqual is a structural comparison that tolerates the numeric type
// drift between YAML-decoded desired values and JSON-decoded remote values.
func valuesEqual(a, b interface{}) bool {
	if na, ok := asFloat(a); ok {
		nb, ok := asFloat(b)
		return ok && na == nb
	}

	switch va := a.(type) {
	case nil:
		return b == nil
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	case map[string]interface{}:
		vb, ok := b.(map[string]interface{})
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, av := range va {
			bv, present := vb[k]
			if !present || !valuesEqual(av, bv) {
				return false
			}
		}
		return true
	case []interface{}:
		vb, ok := b.([]interface{})
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !valuesEqual(va[i], vb[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
