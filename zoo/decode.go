package zoo

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
)

// Labels maps class indices to ImageNet WordNet ids and readable names.
type Labels struct {
	ids   []string
	names []string
}

func NewLabels(ids, names []string) (*Labels, error) {
	if len(ids) != len(names) {
		return nil, fmt.Errorf("labels: %d ids but %d names", len(ids), len(names))
	}
	return &Labels{ids: ids, names: names}, nil
}

// ParseLabels reads the Keras imagenet_class_index.json format:
// {"0": ["n01440764", "tench"], ...}
func ParseLabels(data []byte) (*Labels, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	ids := make([]string, len(raw))
	names := make([]string, len(raw))
	seen := make([]bool, len(raw))
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(raw) {
			return nil, fmt.Errorf("labels: bad class index %q", k)
		}
		if seen[i] {
			return nil, fmt.Errorf("labels: class index %d given twice", i)
		}
		seen[i] = true
		if len(v) != 2 {
			return nil, fmt.Errorf("labels: class %d: want [id, name], got %v", i, v)
		}
		ids[i], names[i] = v[0], v[1]
	}
	return &Labels{ids: ids, names: names}, nil
}

func LoadLabels(path string) (*Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLabels(data)
}

func (l *Labels) Len() int {
	return len(l.ids)
}

func (l *Labels) At(i int) (id, name string) {
	return l.ids[i], l.names[i]
}

// Softmax turns raw scores into probabilities.
func Softmax(x []float32) []float32 {
	out := make([]float32, len(x))
	if len(x) == 0 {
		return out
	}
	m := x[0]
	for _, v := range x[1:] {
		m = max(m, v)
	}
	var sum float64
	for i, v := range x {
		e := math.Exp(float64(v - m))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Decode ranks scores by probability and returns the k most probable classes.
func Decode(scores []float32, labels *Labels, k int, logits bool) ([]Prediction, error) {
	if labels == nil {
		return nil, fmt.Errorf("no labels")
	}
	if len(scores) != labels.Len() {
		return nil, fmt.Errorf("got %d scores for %d classes", len(scores), labels.Len())
	}
	probs := scores
	if logits {
		probs = Softmax(scores)
	}

	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})

	k = min(k, len(idx))
	if k <= 0 {
		k = min(DefaultTopK, len(idx))
	}
	preds := make([]Prediction, k)
	for i, c := range idx[:k] {
		id, name := labels.At(c)
		preds[i] = Prediction{ClassID: id, Label: name, Probability: probs[c]}
	}
	return preds, nil
}
