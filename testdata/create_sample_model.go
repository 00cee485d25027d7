package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// This is a standalone utility that writes the small hand-built artifacts used
// by the tests: a two-stump XGBoost JSON model, a fitted scaler and the
// feature list.
//
// Stump 0 splits on the scaled night factor, stump 1 on the scaled victim age.
// With base_score 0.5 the margins are:
//
//	night, age < 35:  0.6 + 0.1 =  0.7  -> p = 0.668
//	day,   age < 35: -0.5 + 0.1 = -0.4  -> p = 0.401
//	day,   age >= 35: -0.5 - 0.2 = -0.7 -> p = 0.332

type stump struct {
	feature   int
	threshold float64
	left      float64
	right     float64
	defLeft   int
}

func main() {
	outDir := flag.String("output", ".", "Directory to write the artifacts into")
	flag.Parse()

	stumps := []stump{
		{feature: 4, threshold: 0.0, left: -0.5, right: 0.6, defLeft: 0},
		{feature: 3, threshold: 0.0, left: 0.1, right: -0.2, defLeft: 1},
	}

	trees := make([]map[string]any, len(stumps))
	for i, s := range stumps {
		trees[i] = map[string]any{
			"id":               i,
			"left_children":    []int{1, -1, -1},
			"right_children":   []int{2, -1, -1},
			"parents":          []int{2147483647, 0, 0},
			"split_indices":    []int{s.feature, 0, 0},
			"split_conditions": []float64{s.threshold, s.left, s.right},
			"default_left":     []int{s.defLeft, 0, 0},
			"base_weights":     []float64{0, s.left, s.right},
			"tree_param": map[string]string{
				"num_deleted":      "0",
				"num_feature":      "5",
				"num_nodes":        "3",
				"size_leaf_vector": "1",
			},
		}
	}

	model := map[string]any{
		"learner": map[string]any{
			"gradient_booster": map[string]any{
				"name": "gbtree",
				"model": map[string]any{
					"gbtree_model_param": map[string]string{"num_trees": fmt.Sprint(len(trees))},
					"trees":              trees,
				},
			},
			"learner_model_param": map[string]string{
				"base_score":  "5E-1",
				"num_class":   "0",
				"num_feature": "5",
			},
			"objective": map[string]any{"name": "binary:logistic"},
		},
		"version": []int{1, 7, 6},
	}

	scaler := map[string][]float64{
		"mean":  {12.0, 4.0, 6.5, 35.0, 0.4},
		"scale": {6.9, 2.0, 3.45, 12.0, 0.49},
	}

	features := []string{"hour", "day", "month", "victim_age", "night_factor"}

	for name, v := range map[string]any{
		"crime_model.json": model,
		"scaler.json":      scaler,
		"features.json":    features,
	} {
		if err := writeJSON(filepath.Join(*outDir, name), v); err != nil {
			fmt.Printf("Error writing %s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", name)
	}
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
