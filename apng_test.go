package apng

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScaleDelays(t *testing.T) {
	b := newStream(4, 4, 2).actl(3, 0)
	for _, d := range []uint16{10, 20, 30} {
		b.fctl(4, 4, 0, 0, d, 1000, DisposeNone, BlendSource)
		b.fdat(frameParts(t, solid(4, 4, opaqueRed)))
	}
	anim, err := ParseBytes(b.end(), nil)
	require.NoError(t, err)
	require.Equal(t, float64(60), anim.Duration)

	anim.ScaleDelays(2)
	require.Equal(t, []float64{20, 40, 60}, delays(anim))
	require.Equal(t, float64(120), anim.Duration)

	// Scaling back is exact within float tolerance.
	anim.ScaleDelays(1.0 / 3.0)
	anim.ScaleDelays(3)
	for i, want := range []float64{20, 40, 60} {
		require.InDelta(t, want, anim.Frames[i].Delay, 1e-9)
	}
	require.InDelta(t, 120, anim.Duration, 1e-9)
}

func TestSetDuration(t *testing.T) {
	anim := fullFrameAnim(t, 4, 4, []color.NRGBA{opaqueRed, opaqueGreen}, 25, 1000)
	require.Equal(t, float64(50), anim.Duration)

	anim.SetDuration(200)
	require.InDelta(t, 200, anim.Duration, 1e-9)
	require.InDelta(t, 100, anim.Frames[0].Delay, 1e-9)
}

func TestSetDelay(t *testing.T) {
	anim := fullFrameAnim(t, 4, 4, []color.NRGBA{opaqueRed, opaqueGreen, opaqueBlue}, 25, 1000)

	anim.SetDelay(7)
	require.Equal(t, []float64{7, 7, 7}, delays(anim))
	require.Equal(t, float64(21), anim.Duration)
}

func TestFrameInfosPairing(t *testing.T) {
	anim := fullFrameAnim(t, 4, 4, []color.NRGBA{opaqueRed, opaqueGreen}, 25, 1000)

	infos := anim.FrameInfos()
	require.Len(t, infos, len(anim.Frames))
	for i, f := range anim.Frames {
		require.Equal(t, f.FrameInfo, infos[i])
	}
}

func TestParseNilReader(t *testing.T) {
	_, err := Parse(nil, nil)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestWarningStrings(t *testing.T) {
	require.Equal(t, "frame count mismatch", WarnFrameCountMismatch.String())
	require.Equal(t, "sequence out of order", WarnSequenceOutOfOrder.String())
	require.Equal(t, "crc mismatch", WarnCRCMismatch.String())
}

func delays(a *Animation) []float64 {
	ds := make([]float64, len(a.Frames))
	for i, f := range a.Frames {
		ds[i] = f.Delay
	}
	return ds
}
