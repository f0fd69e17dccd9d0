package optimize

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rustyeddy/stratlab/backtest"
)

// MaxRangeValues caps the candidates a single range may expand to.
const MaxRangeValues = 10000

// MaxCombinations caps the product of all range sizes in one request.
const MaxCombinations = backtest.MaxGridPoints

// Range is an inclusive {min, max, step} sweep of one parameter.
type Range struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Step float64 `json:"step" yaml:"step"`
}

func (r Range) Validate() error {
	for _, v := range []float64{r.Min, r.Max, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("range %v: non-finite bound", r)
		}
	}
	if r.Step <= 0 {
		return fmt.Errorf("range %v: step must be > 0", r)
	}
	if r.Min > r.Max {
		return fmt.Errorf("range %v: min greater than max", r)
	}
	if (r.Max-r.Min)/r.Step >= MaxRangeValues {
		return fmt.Errorf("range %v: more than %d values", r, MaxRangeValues)
	}
	return nil
}

// Count is the number of values Expand yields.
func (r Range) Count() (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1, nil
}

// Expand lists min, min+step, ... up to and including max. Values are
// computed as min+i*step and rounded to 1e-9 so accumulated float error
// neither drops max nor yields values like 0.30000000000000004.
func (r Range) Expand() ([]float64, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v := math.Round((r.Min+float64(i)*r.Step)*1e9) / 1e9
		if v > r.Max {
			v = r.Max
		}
		out = append(out, v)
	}
	return out, nil
}

// Grid expands every range. The combined size is checked before any
// range is expanded; past MaxCombinations it fails with
// backtest.ErrGridTooLarge.
func Grid(ranges map[string]Range) (map[string][]float64, error) {
	total := 1
	for _, name := range sortedNames(ranges) {
		n, err := ranges[name].Count()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if total > MaxCombinations/n {
			return nil, fmt.Errorf("%w: more than %d combinations", backtest.ErrGridTooLarge, MaxCombinations)
		}
		total *= n
	}

	grid := make(map[string][]float64, len(ranges))
	for name, r := range ranges {
		vals, err := r.Expand()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		grid[name] = vals
	}
	return grid, nil
}

// ParseAssignment reads a run label of the form "id(k=v,...)" back into
// the strategy id and its parameter values.
func ParseAssignment(label string) (string, map[string]float64, error) {
	open := strings.IndexByte(label, '(')
	if open <= 0 || !strings.HasSuffix(label, ")") {
		return "", nil, fmt.Errorf("malformed label %q", label)
	}
	id := label[:open]
	body := label[open+1 : len(label)-1]

	vals := map[string]float64{}
	if body == "" {
		return id, vals, nil
	}
	for _, kv := range strings.Split(body, ",") {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return "", nil, fmt.Errorf("malformed assignment %q in %q", kv, label)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return "", nil, fmt.Errorf("value of %s in %q: %w", k, label, err)
		}
		if _, dup := vals[k]; dup {
			return "", nil, fmt.Errorf("duplicate parameter %s in %q", k, label)
		}
		vals[k] = f
	}
	return id, vals, nil
}

func sortedNames(m map[string]Range) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
