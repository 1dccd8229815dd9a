package apng

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// solid returns a w×h NRGBA image filled with c. Tests that need truecolor-
// with-alpha frames keep c.A below 255 so image/png does not downgrade the
// encoding to opaque truecolor.
func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// frameParts encodes img with image/png and harvests the IDAT payloads, so
// synthetic fdAT/IDAT streams carry genuinely decodable pixel data.
func frameParts(t *testing.T, img image.Image) [][]byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	src := buf.Bytes()
	tab := crc32.MakeTable(crc32.IEEE)
	chunks, err := scanChunks(src, tab, func(Warning, string) {})
	require.NoError(t, err)
	var parts [][]byte
	for _, c := range chunks {
		if c.typ == "IDAT" {
			part := make([]byte, c.length)
			copy(part, c.data(src))
			parts = append(parts, part)
		}
	}
	require.NotEmpty(t, parts)
	return parts
}

// streamBuilder assembles APNG byte streams chunk by chunk, numbering
// animation chunks with the shared fcTL/fdAT sequence counter.
type streamBuilder struct {
	buf bytes.Buffer
	tab *crc32.Table
	seq uint32
}

// newStream starts a stream with the PNG signature and an 8-bit IHDR of the
// given color type (6 = truecolor with alpha, 2 = truecolor).
func newStream(w, h int, colorType byte) *streamBuilder {
	b := &streamBuilder{tab: crc32.MakeTable(crc32.IEEE)}
	b.buf.WriteString(pngHeader)
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(w))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(h))
	ihdr[8] = 8
	ihdr[9] = colorType
	return b.chunk("IHDR", ihdr)
}

func (b *streamBuilder) chunk(typ string, data []byte) *streamBuilder {
	b.buf.Write(appendChunk(nil, b.tab, typ, data))
	return b
}

func (b *streamBuilder) actl(frames, iterations int) *streamBuilder {
	d := make([]byte, 8)
	binary.BigEndian.PutUint32(d[0:4], uint32(frames))
	binary.BigEndian.PutUint32(d[4:8], uint32(iterations))
	return b.chunk("acTL", d)
}

func (b *streamBuilder) fctl(w, h, x, y int, num, den uint16, dispose DisposeOp, blend BlendOp) *streamBuilder {
	d := make([]byte, 26)
	binary.BigEndian.PutUint32(d[0:4], b.seq)
	b.seq++
	binary.BigEndian.PutUint32(d[4:8], uint32(w))
	binary.BigEndian.PutUint32(d[8:12], uint32(h))
	binary.BigEndian.PutUint32(d[12:16], uint32(x))
	binary.BigEndian.PutUint32(d[16:20], uint32(y))
	binary.BigEndian.PutUint16(d[20:22], num)
	binary.BigEndian.PutUint16(d[22:24], den)
	d[24] = byte(dispose)
	d[25] = byte(blend)
	return b.chunk("fcTL", d)
}

func (b *streamBuilder) fdat(parts [][]byte) *streamBuilder {
	for _, part := range parts {
		b.fdatSeq(b.seq, part)
		b.seq++
	}
	return b
}

// fdatSeq writes one fdAT with an explicit sequence number, leaving the
// automatic counter alone.
func (b *streamBuilder) fdatSeq(seq uint32, part []byte) *streamBuilder {
	d := make([]byte, 4+len(part))
	binary.BigEndian.PutUint32(d[0:4], seq)
	copy(d[4:], part)
	return b.chunk("fdAT", d)
}

func (b *streamBuilder) idat(parts [][]byte) *streamBuilder {
	for _, part := range parts {
		b.chunk("IDAT", part)
	}
	return b
}

func (b *streamBuilder) end() []byte {
	b.buf.Write(iendChunk)
	return b.buf.Bytes()
}

// fullFrameAnim builds and parses an APNG whose frames are full-canvas
// opaque solid colors drawn with source blending, one fcTL+fdAT pair per
// color, each with the given delay in num/den notation.
func fullFrameAnim(t *testing.T, w, h int, colors []color.NRGBA, num, den uint16) *Animation {
	t.Helper()
	b := newStream(w, h, 2).actl(len(colors), 0)
	for _, c := range colors {
		b.fctl(w, h, 0, 0, num, den, DisposeNone, BlendSource)
		b.fdat(frameParts(t, solid(w, h, c)))
	}
	anim, err := ParseBytes(b.end(), nil)
	require.NoError(t, err)
	require.Len(t, anim.Frames, len(colors))
	return anim
}

// plainPNG parses a single non-animated PNG into an Animation.
func plainPNG(t *testing.T, w, h int) *Animation {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h, color.NRGBA{R: 0x40, A: 0xfe})))
	anim, err := ParseBytes(buf.Bytes(), nil)
	require.NoError(t, err)
	return anim
}

func canvasAt(p *Player, x, y int) color.NRGBA {
	return p.Canvas().NRGBA().NRGBAAt(x, y)
}
