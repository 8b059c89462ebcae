// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// ImageToRGBA converts img to tightly packed RGBA pixels of the given
// dimensions, rescaling when the source size differs. The returned slice is
// width*height*4 bytes, row-major, north row first.
func ImageToRGBA(img image.Image, width, height int) []byte {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}
	return dst.Pix
}
