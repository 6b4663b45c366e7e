// Command regselect trains the regression catalog on CSV train/test arrays,
// keeps the best model and predicts with a saved artifact.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
