package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
)

// ExportFilename 是导出文件的固定文件名
const ExportFilename = "pixel-art.png"

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG 把画布编码为 PNG 写入 w
func EncodePNG(w io.Writer, img image.Image) error {
	if err := encoder.Encode(w, img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}
