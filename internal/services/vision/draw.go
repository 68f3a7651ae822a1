package vision

import (
	"image/color"

	"gocv.io/x/gocv"
)

// richKeypoints draws every keypoint as a circle sized by its scale with an
// orientation tick, and skips the single-pixel markers.
const richKeypoints = gocv.DrawRichKeyPoints | gocv.NotDrawSinglePoints

var (
	keypointColor = color.RGBA{G: 255}
	matchColor    = color.RGBA{G: 255, B: 255}
)

// DrawFeatures returns a copy of img with keypoints drawn on it.
func DrawFeatures(img gocv.Mat, keypoints []gocv.KeyPoint) gocv.Mat {
	out := gocv.NewMat()
	if len(keypoints) == 0 {
		img.CopyTo(&out)
		return out
	}
	gocv.DrawKeyPoints(img, keypoints, &out, keypointColor, richKeypoints)
	return out
}

// DrawMatches puts query and reference side by side and joins every matched
// keypoint pair with a line.
func DrawMatches(query gocv.Mat, queryKeypoints []gocv.KeyPoint, reference gocv.Mat, referenceKeypoints []gocv.KeyPoint,
	matches []Match) gocv.Mat {

	dm := make([]gocv.DMatch, 0, len(matches))
	for _, m := range matches {
		if m.QueryIdx < 0 || m.QueryIdx >= len(queryKeypoints) || m.TrainIdx < 0 || m.TrainIdx >= len(referenceKeypoints) {
			continue
		}
		dm = append(dm, gocv.DMatch{QueryIdx: m.QueryIdx, TrainIdx: m.TrainIdx, Distance: m.Distance})
	}

	out := gocv.NewMat()
	gocv.DrawMatches(query, queryKeypoints, reference, referenceKeypoints, dm, &out,
		matchColor, keypointColor, nil, richKeypoints)
	return out
}
