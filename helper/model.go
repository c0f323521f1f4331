package helper

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// PrepareModel downloads an ONNX model from the hugging face hub if it is
// not cached yet and returns the local model path. onnxFilePath is the
// path of the onnx file inside the model repository (e.g. "model.onnx"
// or "onnx/model.onnx").
func PrepareModel(modelName string, onnxFilePath string) (string, error) {
	modelDir := "./models"
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))

	// Check if model exists, if not download it
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(modelDir, 0755); err != nil {
			return "", NewError("create model directory", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		downloadOptions.OnnxFilePath = onnxFilePath
		downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
		if err != nil {
			return "", NewError("download model", err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}
