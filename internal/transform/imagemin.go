package transform

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/jpeg"
	"image/png"

	lru "github.com/hashicorp/golang-lru/v2"
)

// newImagemin re-encodes PNG with best compression and JPEG at a fixed quality, keeping
// the original bytes unless the result is smaller. Results are cached by content hash
// so unchanged images cost nothing on rebuild. Other formats pass through.
//
//	options: quality (jpeg, default 85), cache_size (entries, default 512)
func newImagemin(env Env, opts Options) (Adapter, error) {
	quality := opts.Int("quality", 85)
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("imagemin: quality must be within 1..100, got %d", quality)
	}
	cache, err := lru.New[string, []byte](max(opts.Int("cache_size", 512), 1))
	if err != nil {
		return nil, err
	}
	im := &imageOptimizer{quality: quality, cache: cache}
	return PerFile("imagemin", im.optimize, WithReporter(env.reporter())), nil
}

type imageOptimizer struct {
	quality int
	cache   *lru.Cache[string, []byte]
}

func (o *imageOptimizer) optimize(_ context.Context, f *File) ([]*File, error) {
	ext := f.Ext()
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return []*File{f}, nil
	}

	sum := sha256.Sum256(f.Contents)
	key := fmt.Sprintf("%s:%d:%s", ext, o.quality, hex.EncodeToString(sum[:]))
	if cached, ok := o.cache.Get(key); ok {
		return []*File{f.WithContents(bytes.Clone(cached))}, nil
	}

	var buf bytes.Buffer
	switch ext {
	case ".png":
		img, err := png.Decode(bytes.NewReader(f.Contents))
		if err != nil {
			return nil, NewTransformError("imagemin", f.Path, err, "")
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, NewTransformError("imagemin", f.Path, err, "")
		}
	default:
		img, err := jpeg.Decode(bytes.NewReader(f.Contents))
		if err != nil {
			return nil, NewTransformError("imagemin", f.Path, err, "")
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.quality}); err != nil {
			return nil, NewTransformError("imagemin", f.Path, err, "")
		}
	}

	out := buf.Bytes()
	if len(out) >= len(f.Contents) {
		out = f.Contents
	}
	o.cache.Add(key, bytes.Clone(out))
	return []*File{f.WithContents(out)}, nil
}
