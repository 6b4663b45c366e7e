package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// readCSV は数値だけの CSV を行列として読み込む。header が true なら1行目を読み飛ばす
func readCSV(path string, header bool) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	m, err := parseCSV(f, header)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return m, nil
}

func parseCSV(r io.Reader, header bool) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if header && len(records) > 0 {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, errors.ErrEmptyData
	}

	cols := len(records[0])
	data := make([]float64, 0, len(records)*cols)
	for i, rec := range records {
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %d", i+1, j+1)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(len(records), cols, data), nil
}

// writeColumn は n×1 の予測値を1行1値で書き出す
func writeColumn(w io.Writer, m mat.Matrix) error {
	writer := csv.NewWriter(w)
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		if err := writer.Write([]string{strconv.FormatFloat(m.At(i, 0), 'g', -1, 64)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
