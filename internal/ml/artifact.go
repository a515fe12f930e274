package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lumen/internal/errors"
)

// Artifact is the persisted form of a fitted model together with the scaler it was
// trained behind
type Artifact struct {
	Kind      string          `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Log1p     bool            `json:"log1p"`
	Scaler    StandardScaler  `json:"scaler"`
	Model     json.RawMessage `json:"model"`
}

// ArtifactPath returns the artifact file for a model kind inside dir
func ArtifactPath(dir, kind string) string {
	return filepath.Join(dir, strings.ToLower(kind)+"_model.json")
}

// Kinds lists the trained model kinds in reporting order
var Kinds = []string{KindLinear, KindForest, KindBoosted}

// ResolveKind maps a case-insensitive model name onto its kind
func ResolveKind(name string) (string, error) {
	for _, kind := range Kinds {
		if strings.EqualFold(kind, strings.TrimSpace(name)) {
			return kind, nil
		}
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown model %q (expected one of %s)", name, strings.Join(Kinds, ", ")))
}

// NewRegressor constructs an empty model of the given kind
func NewRegressor(kind string) (Regressor, error) {
	switch kind {
	case KindLinear:
		return NewLinearRegression(), nil
	case KindForest:
		return &RandomForest{}, nil
	case KindBoosted:
		return &GradientBoosting{}, nil
	default:
		return nil, errors.InvalidInput("unknown model kind: " + kind)
	}
}

// SaveModel writes the model and its scaler to dir and returns the file path
func SaveModel(dir string, model Regressor, scaler StandardScaler, log1p bool) (string, error) {
	body, err := json.Marshal(model)
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode %s", model.Name())
	}
	artifact := Artifact{
		Kind:      model.Name(),
		CreatedAt: time.Now().UTC(),
		Log1p:     log1p,
		Scaler:    scaler,
		Model:     body,
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode %s artifact", model.Name())
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create model directory %s", dir)
	}
	path := ArtifactPath(dir, model.Name())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}

// LoadModel reads a persisted model of the given kind from dir
func LoadModel(dir, kind string) (Regressor, *Artifact, error) {
	path := ArtifactPath(dir, kind)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NotFound("model artifact " + path)
		}
		return nil, nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, nil, errors.WithCode(errors.CodeValidationError, errors.Wrapf(err, "malformed model artifact %s", path))
	}
	if artifact.Kind != kind {
		return nil, nil, errors.ValidationError("artifact " + path + " holds " + artifact.Kind + ", not " + kind)
	}

	model, err := NewRegressor(artifact.Kind)
	if err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(artifact.Model, model); err != nil {
		return nil, nil, errors.WithCode(errors.CodeValidationError, errors.Wrapf(err, "malformed model body in %s", path))
	}
	if lin, ok := model.(*LinearRegression); ok {
		lin.fitted = true
	}
	return model, &artifact, nil
}
