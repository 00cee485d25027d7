package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

/*
Booster is a gradient boosted tree ensemble decoded from an XGBoost JSON model.

Only the fields needed for inference are kept. The margin of an input is
the base margin plus the leaf value reached in every tree; the logistic
objectives turn that margin into a probability.
*/
type Booster struct {
	trees      []tree
	baseMargin float64
	objective  string
	numFeature int
}

/*
tree is one regression tree in XGBoost's flat array layout.

Node 0 is the root; a left child of -1 marks a leaf, whose value is stored
in splitConditions. Conditions are float32 as in XGBoost, and inputs are
narrowed to float32 before comparing so that values equal to a cut go right.
*/
type tree struct {
	left            []int
	right           []int
	splitIndices    []int
	splitConditions []float32
	defaultLeft     []bool
}

// xgbDocument is the subset of XGBoost's save_model JSON this package reads.
type xgbDocument struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
			NumClass   string `json:"num_class"`
		} `json:"learner_model_param"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
	Version []int `json:"version"`
}

type xgbTree struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float32  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
}

// flexBool decodes both the 0/1 and true/false encodings XGBoost has used.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", "true":
		*b = true
	case "0", "false":
		*b = false
	default:
		return eris.Errorf("invalid boolean %s", data)
	}
	return nil
}

var logisticObjectives = map[string]bool{
	"binary:logistic": true,
	"reg:logistic":    true,
}

/*
ParseBooster decodes an XGBoost JSON model dump
*/
func ParseBooster(data []byte) (*Booster, error) {
	var doc xgbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(ErrInvalidArtifact, "decode booster: %v", err)
	}

	learner := doc.Learner
	if learner.GradientBooster.Name != "gbtree" {
		return nil, eris.Wrapf(ErrInvalidArtifact, "booster type %q is not gbtree", learner.GradientBooster.Name)
	}
	if !logisticObjectives[learner.Objective.Name] {
		return nil, eris.Wrapf(ErrUnsupportedObjective, "objective %q", learner.Objective.Name)
	}
	if nc := learner.LearnerModelParam.NumClass; nc != "" && nc != "0" && nc != "1" {
		return nil, eris.Wrapf(ErrUnsupportedObjective, "model has %s classes", nc)
	}

	baseScore, err := parseBaseScore(learner.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}

	numFeature := 0
	if nf := learner.LearnerModelParam.NumFeature; nf != "" {
		if numFeature, err = strconv.Atoi(nf); err != nil {
			return nil, eris.Wrapf(ErrInvalidArtifact, "num_feature %q", nf)
		}
	}

	b := &Booster{
		trees:      make([]tree, 0, len(learner.GradientBooster.Model.Trees)),
		baseMargin: logit(baseScore),
		objective:  learner.Objective.Name,
		numFeature: numFeature,
	}
	for i, raw := range learner.GradientBooster.Model.Trees {
		t, err := newTree(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "tree %d", i)
		}
		b.trees = append(b.trees, t)
	}
	if len(b.trees) == 0 {
		return nil, eris.Wrap(ErrInvalidArtifact, "booster has no trees")
	}
	return b, nil
}

func newTree(raw xgbTree) (tree, error) {
	n := len(raw.LeftChildren)
	if n == 0 || len(raw.RightChildren) != n || len(raw.SplitIndices) != n ||
		len(raw.SplitConditions) != n || len(raw.DefaultLeft) != n {
		return tree{}, eris.Wrap(ErrInvalidArtifact, "node arrays differ in length")
	}

	t := tree{
		left:            raw.LeftChildren,
		right:           raw.RightChildren,
		splitIndices:    raw.SplitIndices,
		splitConditions: raw.SplitConditions,
		defaultLeft:     make([]bool, n),
	}
	for i, d := range raw.DefaultLeft {
		t.defaultLeft[i] = bool(d)
	}

	// children always come after their parent, which also rules out cycles
	for i := 0; i < n; i++ {
		l, r := t.left[i], t.right[i]
		if l == -1 {
			if r != -1 {
				return tree{}, eris.Wrapf(ErrInvalidArtifact, "node %d has only a right child", i)
			}
			continue
		}
		if l <= i || r <= i || l >= n || r >= n {
			return tree{}, eris.Wrapf(ErrInvalidArtifact, "node %d has children %d/%d out of order", i, l, r)
		}
		if t.splitIndices[i] < 0 {
			return tree{}, eris.Wrapf(ErrInvalidArtifact, "node %d splits on feature %d", i, t.splitIndices[i])
		}
	}
	return t, nil
}

// leaf walks the tree for x and returns the leaf value.
func (t *tree) leaf(x []float64) float64 {
	node := 0
	for t.left[node] != -1 {
		v := x[t.splitIndices[node]]
		switch {
		case math.IsNaN(v):
			if t.defaultLeft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case float32(v) < t.splitConditions[node]:
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return float64(t.splitConditions[node])
}

// maxFeature returns the highest feature index any split uses, or -1.
func (t *tree) maxFeature() int {
	maxIdx := -1
	for i, l := range t.left {
		if l != -1 && t.splitIndices[i] > maxIdx {
			maxIdx = t.splitIndices[i]
		}
	}
	return maxIdx
}

/*
NumFeature returns the feature count recorded in the model, or 0 if absent
*/
func (b *Booster) NumFeature() int {
	return b.numFeature
}

/*
MaxFeatureIndex returns the highest feature index used by any split
*/
func (b *Booster) MaxFeatureIndex() int {
	maxIdx := -1
	for i := range b.trees {
		if m := b.trees[i].maxFeature(); m > maxIdx {
			maxIdx = m
		}
	}
	return maxIdx
}

/*
Margin returns the untransformed ensemble output for x
*/
func (b *Booster) Margin(x []float64) float64 {
	sum := b.baseMargin
	for i := range b.trees {
		sum += b.trees[i].leaf(x)
	}
	return sum
}

/*
PredictProba returns the positive class probability for x
*/
func (b *Booster) PredictProba(x []float64) float64 {
	return sigmoid(b.Margin(x))
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" written by newer releases.
func parseBaseScore(s string) (float64, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 1 {
		return 0, eris.Wrapf(ErrInvalidArtifact, "base_score %q", s)
	}
	return v, nil
}

func logit(p float64) float64 {
	const eps = 1e-16
	p = math.Min(math.Max(p, eps), 1-eps)
	return math.Log(p / (1 - p))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
