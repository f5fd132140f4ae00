package content

// DefaultEpsilon is the near-black threshold: 5 out of 255 per
// channel, matching print-oriented gray stacks that render as black.
const DefaultEpsilon = 5.0 / 255.0

// Rule maps a text fill color to its replacement.
type Rule func(Color) Color

// RecolorNearBlack returns white when every component is at most
// epsilon, and the input color otherwise.
func RecolorNearBlack(c Color, epsilon float64) Color {
	if c.R <= epsilon && c.G <= epsilon && c.B <= epsilon {
		return White
	}
	return c
}

// NearBlackRule binds the threshold into a Rule.
func NearBlackRule(epsilon float64) Rule {
	return func(c Color) Color { return RecolorNearBlack(c, epsilon) }
}

// RecolorText applies rule to every text span's fill and returns a
// new element slice; paths and images pass through untouched.
func RecolorText(elems []Element, rule Rule) []Element {
	out := make([]Element, len(elems))
	for i, el := range elems {
		if span, ok := el.(TextSpan); ok {
			span.Fill = rule(span.Fill)
			out[i] = span
			continue
		}
		out[i] = el
	}
	return out
}
