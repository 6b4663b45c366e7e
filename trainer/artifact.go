package trainer

import (
	"encoding/gob"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/linear"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/sklearn/ensemble"
	"github.com/YuminosukeSato/regselect/sklearn/neighbors"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
)

func init() {
	// Artifact.Model はインターフェースなので具象型を登録しておく
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&ensemble.GradientBoostingRegressor{})
	gob.Register(&linear.LinearRegression{})
	gob.Register(&neighbors.KNeighborsRegressor{})
	gob.Register(&ensemble.XGBRegressor{})
	gob.Register(&ensemble.CatBoostRegressor{})
	gob.Register(&ensemble.AdaBoostRegressor{})
}

// Artifact is the persisted winner of a trainer run.
type Artifact struct {
	RunID     string
	Name      string
	Score     float64 // Test R² at selection time
	NFeatures int
	Params    model.Params
	CreatedAt time.Time
	Model     model.Regressor
}

// Predict delegates to the stored model after checking the feature count.
func (a *Artifact) Predict(X mat.Matrix) (mat.Matrix, error) {
	if a.Model == nil {
		return nil, errors.NewNotFittedError("Artifact", "Predict")
	}
	if _, c := X.Dims(); c != a.NFeatures {
		return nil, errors.NewDimensionError("Artifact.Predict", a.NFeatures, c, 1)
	}
	return a.Model.Predict(X)
}

// SaveArtifact writes a to path, replacing any previous artifact.
func SaveArtifact(a *Artifact, path string) error {
	return model.SaveModel(a, path)
}

// LoadArtifact reads an artifact written by SaveArtifact.
func LoadArtifact(path string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, err
	}
	return &a, nil
}
