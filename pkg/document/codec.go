package document

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/recompose/pkg/errors"
)

// ThumbnailSize is the longest edge of generated thumbnails.
const ThumbnailSize = 256

// DecodeOptions controls what [Codec.Decode] materializes.
type DecodeOptions struct {
	// SkipPixelData leaves Node.Image nil. Structure and bounds are still read.
	SkipPixelData bool
	// SkipThumbnail leaves Document.Thumbnail nil.
	SkipThumbnail bool
}

// EncodeOptions controls [Codec.Encode].
type EncodeOptions struct {
	// GenerateThumbnail renders a fresh thumbnail from the flattened layers.
	GenerateThumbnail bool
}

// Codec reads and writes layered design documents.
type Codec interface {
	// Decode parses a document. Malformed input yields an error with code
	// [errors.ErrCodeDecode].
	Decode(r io.Reader, opts DecodeOptions) (*Document, error)
	// Encode writes doc. Failures yield [errors.ErrCodeEncode].
	Encode(w io.Writer, doc *Document, opts EncodeOptions) error
}

// JSONCodec is a [Codec] for the layered JSON format described in the
// package documentation. The zero value is ready to use.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

type wireDocument struct {
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Children  []*wireNode `json:"children"`
	Thumbnail string      `json:"thumbnail,omitempty"`
}

type wireNode struct {
	Name      string         `json:"name"`
	Top       *float64       `json:"top,omitempty"`
	Left      *float64       `json:"left,omitempty"`
	Bottom    *float64       `json:"bottom,omitempty"`
	Right     *float64       `json:"right,omitempty"`
	Hidden    bool           `json:"hidden,omitempty"`
	Opacity   *float64       `json:"opacity,omitempty"`
	BlendMode string         `json:"blendMode,omitempty"`
	Effects   map[string]any `json:"effects,omitempty"`
	Clipping  bool           `json:"clipping,omitempty"`
	Image     string         `json:"image,omitempty"`
	Children  []*wireNode    `json:"children,omitempty"`
	Group     bool           `json:"group,omitempty"`
}

// Decode implements [Codec].
func (JSONCodec) Decode(r io.Reader, opts DecodeOptions) (*Document, error) {
	var wd wireDocument
	if err := json.NewDecoder(r).Decode(&wd); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "malformed document")
	}
	if wd.Width < 0 || wd.Height < 0 {
		return nil, errors.New(errors.ErrCodeDecode, "negative canvas size %dx%d", wd.Width, wd.Height)
	}

	doc := &Document{Width: wd.Width, Height: wd.Height}
	children, err := decodeNodes(wd.Children, opts)
	if err != nil {
		return nil, err
	}
	doc.Children = children

	if !opts.SkipThumbnail && wd.Thumbnail != "" {
		img, err := decodeImage(wd.Thumbnail)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "thumbnail")
		}
		doc.Thumbnail = img
	}
	return doc, nil
}

func decodeNodes(in []*wireNode, opts DecodeOptions) ([]*Node, error) {
	out := make([]*Node, 0, len(in))
	for _, wn := range in {
		if wn == nil {
			return nil, errors.New(errors.ErrCodeDecode, "null layer")
		}
		n := &Node{
			Name:      wn.Name,
			Top:       wn.Top,
			Left:      wn.Left,
			Bottom:    wn.Bottom,
			Right:     wn.Right,
			Hidden:    wn.Hidden,
			Opacity:   1,
			BlendMode: wn.BlendMode,
			Effects:   wn.Effects,
			Clipping:  wn.Clipping,
		}
		if wn.Opacity != nil {
			if *wn.Opacity < 0 || *wn.Opacity > 1 {
				return nil, errors.New(errors.ErrCodeDecode, "layer %q: opacity %v out of range", wn.Name, *wn.Opacity)
			}
			n.Opacity = *wn.Opacity
		}
		if wn.Children != nil || wn.Group {
			children, err := decodeNodes(wn.Children, opts)
			if err != nil {
				return nil, err
			}
			n.Children = children
		}
		if wn.Image != "" && !opts.SkipPixelData {
			img, err := decodeImage(wn.Image)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeDecode, err, "layer %q pixel data", wn.Name)
			}
			n.Image = img
		}
		out = append(out, n)
	}
	return out, nil
}

// Encode implements [Codec].
func (JSONCodec) Encode(w io.Writer, doc *Document, opts EncodeOptions) error {
	if doc == nil {
		return errors.New(errors.ErrCodeEncode, "nil document")
	}
	wd := wireDocument{Width: doc.Width, Height: doc.Height}
	children, err := encodeNodes(doc.Children)
	if err != nil {
		return err
	}
	wd.Children = children

	thumb := doc.Thumbnail
	if opts.GenerateThumbnail {
		thumb = imaging.Fit(Flatten(doc), ThumbnailSize, ThumbnailSize, imaging.Lanczos)
	}
	if thumb != nil {
		s, err := encodeImage(thumb)
		if err != nil {
			return errors.Wrap(errors.ErrCodeEncode, err, "thumbnail")
		}
		wd.Thumbnail = s
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(wd); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "write document")
	}
	return nil
}

func encodeNodes(in []*Node) ([]*wireNode, error) {
	out := make([]*wireNode, 0, len(in))
	for _, n := range in {
		wn := &wireNode{
			Name:      n.Name,
			Top:       n.Top,
			Left:      n.Left,
			Bottom:    n.Bottom,
			Right:     n.Right,
			Hidden:    n.Hidden,
			BlendMode: n.BlendMode,
			Effects:   n.Effects,
			Clipping:  n.Clipping,
		}
		if n.Opacity != 1 {
			wn.Opacity = ptr(n.Opacity)
		}
		if n.IsGroup() {
			wn.Group = true
			children, err := encodeNodes(n.Children)
			if err != nil {
				return nil, err
			}
			wn.Children = children
		}
		if n.Image != nil {
			s, err := encodeImage(n.Image)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeEncode, err, "layer %q pixel data", n.Name)
			}
			wn.Image = s
		}
		out = append(out, wn)
	}
	return out, nil
}

func decodeImage(s string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(data))
}

func encodeImage(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ReadFile decodes the document at path with codec c.
func ReadFile(c Codec, path string, opts DecodeOptions) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return c.Decode(f, opts)
}

// WriteFile encodes doc to path with codec c.
func WriteFile(c Codec, path string, doc *Document, opts EncodeOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "create %s", path)
	}
	if err := c.Encode(f, doc, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "close %s", path)
	}
	return nil
}
