package difficulty

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// BlankMarker is the placeholder templates use for the unknown operand.
const BlankMarker = "_"

// Feature indexes into a FeatureVector.
const (
	FeatLength = iota
	FeatSum
	FeatMax
	FeatMin
	FeatCount
	FeatEven
	FeatOdd
	FeatBlank
	FeatDivisible
	FeatPlus
	FeatMinus
	FeatTimes
	FeatDivide
	FeatPower

	NumFeatures
)

// FeatureVector is the numeric summary of one question's text.
type FeatureVector [NumFeatures]float64

var numberPattern = regexp.MustCompile(`-?\d+`)

// Extract computes the feature vector of a question's content. It is total:
// content without digits is treated as the single number 0.
func Extract(content string) FeatureVector {
	numbers := extractNumbers(content)

	var fv FeatureVector
	fv[FeatLength] = float64(utf8.RuneCountInString(content))
	fv[FeatCount] = float64(len(numbers))

	sum, maxN, minN := int64(0), numbers[0], numbers[0]
	for _, n := range numbers {
		sum += n
		if n > maxN {
			maxN = n
		}
		if n < minN {
			minN = n
		}
		if n%2 == 0 {
			fv[FeatEven]++
		} else {
			fv[FeatOdd]++
		}
	}
	fv[FeatSum] = float64(sum)
	fv[FeatMax] = float64(maxN)
	fv[FeatMin] = float64(minN)

	if strings.Contains(content, BlankMarker) {
		fv[FeatBlank] = 1
	}
	if anyDivides(numbers) {
		fv[FeatDivisible] = 1
	}

	fv[FeatPlus] = float64(strings.Count(content, "+"))
	fv[FeatMinus] = float64(strings.Count(content, "-"))
	fv[FeatTimes] = float64(strings.Count(content, "*"))
	fv[FeatDivide] = float64(strings.Count(content, "/"))
	fv[FeatPower] = float64(strings.Count(content, "^"))
	return fv
}

// extractNumbers returns every maximal signed integer token, or [0] when the
// content holds none. Tokens too large for int64 saturate.
func extractNumbers(content string) []int64 {
	tokens := numberPattern.FindAllString(content, -1)
	if len(tokens) == 0 {
		return []int64{0}
	}
	out := make([]int64, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			// ParseInt returns the saturated value on range errors.
			if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
				continue
			}
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return []int64{0}
	}
	return out
}

// anyDivides reports whether some ordered pair of distinct positions (i, j)
// has a nonzero numbers[i] that divides numbers[j] evenly.
func anyDivides(numbers []int64) bool {
	for i, d := range numbers {
		if d == 0 {
			continue
		}
		for j, n := range numbers {
			if i != j && n%d == 0 {
				return true
			}
		}
	}
	return false
}
