package config

import "path/filepath"

// Paths is the on-disk layout shared by the stages.
type Paths struct {
	RawDir  string
	RawFile string
	Train   string
	Test    string

	ProcessedDir   string
	ProcessedTrain string
	ProcessedTest  string
	LabelMappings  string
	ImportancePlot string

	ModelDir  string
	ModelFile string
}

// NewPaths lays out every artifact under root.
func NewPaths(root string) Paths {
	raw := filepath.Join(root, "raw")
	processed := filepath.Join(root, "processed")
	models := filepath.Join(root, "models")
	return Paths{
		RawDir:  raw,
		RawFile: filepath.Join(raw, "raw.csv"),
		Train:   filepath.Join(raw, "train.csv"),
		Test:    filepath.Join(raw, "test.csv"),

		ProcessedDir:   processed,
		ProcessedTrain: filepath.Join(processed, "processed_train.csv"),
		ProcessedTest:  filepath.Join(processed, "processed_test.csv"),
		LabelMappings:  filepath.Join(processed, "label_mappings.json"),
		ImportancePlot: filepath.Join(processed, "feature_importance.png"),

		ModelDir:  models,
		ModelFile: filepath.Join(models, "lgbm_model.gob"),
	}
}
