package model

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/pkg/errors"
)

type meanRegressor struct {
	BaseEstimator
	Mean      float64
	NFeatures int
}

func (m *meanRegressor) Fit(X, y mat.Matrix) error {
	rows, cols, err := ValidateFitInput("meanRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	var sum float64
	for _, v := range ColumnOf(y, 0) {
		sum += v
	}
	m.Mean = sum / float64(rows)
	m.NFeatures = cols
	m.SetFitted()
	return nil
}

func TestBaseEstimator_StateSurvivesGob(t *testing.T) {
	m := &meanRegressor{}
	require.NoError(t, m.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{2, 4, 6})))

	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(m, &buf))

	var loaded meanRegressor
	require.NoError(t, LoadModelFromReader(&loaded, &buf))
	assert.True(t, loaded.IsFitted())
	assert.InDelta(t, 4.0, loaded.Mean, 1e-12)

	loaded.Reset()
	assert.False(t, loaded.IsFitted())
}

func TestCheckPredictInput(t *testing.T) {
	m := &meanRegressor{}
	X := mat.NewDense(2, 2, nil)

	var nf *errors.NotFittedError
	assert.True(t, errors.As(m.CheckPredictInput("meanRegressor", X, 2), &nf))

	m.SetFitted()
	assert.NoError(t, m.CheckPredictInput("meanRegressor", X, 2))

	var dim *errors.DimensionError
	assert.True(t, errors.As(m.CheckPredictInput("meanRegressor", X, 3), &dim))
}

func TestValidateFitInput(t *testing.T) {
	X := mat.NewDense(3, 2, nil)

	_, _, err := ValidateFitInput("op", X, mat.NewDense(2, 1, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	_, _, err = ValidateFitInput("op", X, mat.NewDense(3, 2, nil))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	rows, cols, err := ValidateFitInput("op", X, mat.NewDense(3, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
}

func TestSelectRowsAndValues(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	sub := SelectRows(X, []int{2, 0})
	assert.Equal(t, []float64{5, 6, 1, 2}, sub.RawMatrix().Data)
	assert.Equal(t, []float64{30, 10}, SelectValues([]float64{10, 20, 30}, []int{2, 0}))
}

func TestParams(t *testing.T) {
	p := Params{"n_estimators": 64, "learning_rate": 0.1}
	assert.Equal(t, "learning_rate=0.1, n_estimators=64", p.String())

	c := p.Clone()
	c["n_estimators"] = 8
	assert.Equal(t, 64, p["n_estimators"])

	n, err := AsInt("n_estimators", 16.0)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	_, err = AsInt("n_estimators", 1.5)
	assert.Error(t, err)

	f, err := AsFloat("learning_rate", 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	_, err = AsString("criterion", 3)
	assert.Error(t, err)

	b, err := AsBool("fit_intercept", false)
	require.NoError(t, err)
	assert.False(t, b)

	var ve *errors.ValidationError
	assert.True(t, errors.As(UnknownParam("LinearRegression", "alpha", 1.0), &ve))
}

func TestSaveModel_AtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifacts", "model.gob")

	first := &meanRegressor{Mean: 1, NFeatures: 1}
	first.SetFitted()
	require.NoError(t, SaveModel(first, path))

	second := &meanRegressor{Mean: 2, NFeatures: 1}
	second.SetFitted()
	require.NoError(t, SaveModel(second, path))

	var loaded meanRegressor
	require.NoError(t, LoadModel(&loaded, path))
	assert.Equal(t, 2.0, loaded.Mean)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSaveModel_EncodeFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")

	// channels cannot be gob-encoded
	err := SaveModel(map[string]interface{}{"bad": make(chan int)}, path)
	require.Error(t, err)

	entries, rerr := os.ReadDir(dir)
	require.NoError(t, rerr)
	assert.Empty(t, entries)
}

func TestLoadModel_MissingFile(t *testing.T) {
	var m meanRegressor
	assert.Error(t, LoadModel(&m, filepath.Join(t.TempDir(), "missing.gob")))
}
