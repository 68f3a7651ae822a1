package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/gift"
	"gocv.io/x/gocv"
)

// EncodeJPEG encodes frame as JPEG. When maxWidth is positive and the frame
// is wider, it is scaled down first, keeping the aspect ratio.
func EncodeJPEG(frame gocv.Mat, maxWidth int) ([]byte, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("encode: empty frame")
	}

	src := frame
	if maxWidth > 0 && frame.Cols() > maxWidth {
		scaled, err := scaleToWidth(frame, maxWidth)
		if err != nil {
			return nil, err
		}
		defer scaled.Close()
		src = scaled
	}

	buf, err := gocv.IMEncode(".jpg", src)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

func scaleToWidth(frame gocv.Mat, width int) (gocv.Mat, error) {
	img, err := frame.ToImage()
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("encode: %w", err)
	}

	g := gift.New(gift.Resize(width, 0, gift.LinearResampling))
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)

	mat, err := gocv.ImageToMatRGB(dst)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("encode: %w", err)
	}
	return mat, nil
}
