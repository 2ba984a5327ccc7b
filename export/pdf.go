package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// assemblePDF builds one PDF from the captured slide images, one page
// per capture, in capture order. Page breaks fall between slides only:
// never before the first page, never after the last, so the page count
// equals the successful capture count.
func assemblePDF(captures []captured) ([]byte, error) {
	if len(captures) == 0 {
		return nil, fmt.Errorf("export: no captures to assemble")
	}

	imgs := make([]io.Reader, len(captures))
	for i, c := range captures {
		imgs[i] = bytes.NewReader(c.data)
	}

	conf := model.NewDefaultConfiguration()
	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, imgs, nil, conf); err != nil {
		return nil, fmt.Errorf("export: import images: %w", err)
	}
	return out.Bytes(), nil
}
