package knowledge

import (
	"bytes"
	"image"
	"maps"
	"slices"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/document"
	"github.com/matzehuels/recompose/pkg/errors"
)

// MaxReferenceSize is the longest edge of an optimised reference image.
const MaxReferenceSize = 512

// OptimizeReference shrinks img to fit within [MaxReferenceSize] and returns
// it as a PNG data URL. Smaller images are not enlarged.
func OptimizeReference(img image.Image) (string, error) {
	b := img.Bounds()
	if b.Dx() > MaxReferenceSize || b.Dy() > MaxReferenceSize {
		img = imaging.Fit(img, MaxReferenceSize, MaxReferenceSize, imaging.Lanczos)
	}
	return document.DataURL(img)
}

// OptimizeReferenceBytes decodes encoded image data and optimises it.
func OptimizeReferenceBytes(data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDecode, err, "reference image")
	}
	return OptimizeReference(img)
}

// Build assembles a knowledge context from extracted guideline text and
// reference images. References that fail to decode are skipped and reported
// in the returned error list.
func Build(text string, refs map[string][]byte) (design.KnowledgeContext, []error) {
	kc := design.KnowledgeContext{Rules: Distill(text, 0)}
	var failed []error
	for _, name := range slices.Sorted(maps.Keys(refs)) {
		url, err := OptimizeReferenceBytes(refs[name])
		if err != nil {
			failed = append(failed, errors.Wrap(errors.ErrCodeDecode, err, "reference %s", name))
			continue
		}
		kc.References = append(kc.References, design.ReferenceImage{Name: name, DataURL: url})
	}
	return kc, failed
}
