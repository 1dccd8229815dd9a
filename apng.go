// Package apng demuxes Animated PNG files into standalone single-frame PNGs
// and drives their composition back into full canvas images.
//
// The demuxer rewrites the animation's interleaved frame streams (fcTL/fdAT)
// into ordinary PNG byte sequences with recomputed CRCs, decodes each one,
// and pairs it with its composition record. The Player applies APNG
// dispose/blend rules to an accumulated canvas with mode-aware playback.
//
// https://wiki.mozilla.org/APNG_Specification
package apng

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"os"
)

var ErrUnsupported = errors.New("apng: unsupported input")

// Warning is a non-fatal parse condition. Warnings never alter the output.
type Warning uint8

const (
	WarnFrameCountMismatch Warning = iota
	WarnSequenceOutOfOrder
	WarnCRCMismatch
)

func (w Warning) String() string {
	switch w {
	case WarnFrameCountMismatch:
		return "frame count mismatch"
	case WarnSequenceOutOfOrder:
		return "sequence out of order"
	case WarnCRCMismatch:
		return "crc mismatch"
	}
	return "unknown warning"
}

type warnFunc func(Warning, string)

// DecodeFunc decodes a standalone PNG byte sequence into a drawable raster.
type DecodeFunc func([]byte) (image.Image, error)

// Options configures parsing. The zero value decodes with image/png and
// drops warnings.
type Options struct {
	// Decode replaces the PNG decoder applied to each synthesized frame.
	Decode DecodeFunc

	// Warn receives non-fatal parse warnings.
	Warn func(Warning, string)

	// OnDecodeError is called for each frame the decoder rejects, except a
	// failing final frame, which fails the parse instead. Rejected frames
	// keep a nil Image.
	OnDecodeError func(frame int, err error)
}

// Animation is a demuxed APNG: the full canvas size, loop count, total
// duration in milliseconds, and the ordered frames. A plain PNG parses to a
// single-frame Animation with IsAPNG false.
type Animation struct {
	Width, Height int
	Iterations    int // declared loop count; 0 means loop forever
	Duration      float64
	IsAPNG        bool
	Frames        []*Frame
}

// Parse reads all of r and parses it. See ParseBytes.
func Parse(r io.Reader, opts *Options) (*Animation, error) {
	if r == nil {
		return nil, ErrUnsupported
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, opts)
}

// ParseFile parses the PNG or APNG file at path.
func ParseFile(path string, opts *Options) (*Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, opts)
}

// ParseBytes demuxes src into an Animation and decodes every frame. src must
// outlive the call; the returned frames reference it only for a non-animated
// source, where the single frame's Data is src itself.
func ParseBytes(src []byte, opts *Options) (*Animation, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Decode == nil {
		o.Decode = decodePNG
	}
	warn := warnFunc(o.Warn)
	if warn == nil {
		warn = func(Warning, string) {}
	}

	tab := crc32.MakeTable(crc32.IEEE)
	chunks, err := scanChunks(src, tab, warn)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 || chunks[0].typ != "IHDR" || chunks[0].length < 13 {
		return nil, ErrNoIHDR
	}

	p := &parser{
		src:    src,
		tab:    tab,
		warn:   warn,
		width:  int(binary.BigEndian.Uint32(src[chunks[0].off:])),
		height: int(binary.BigEndian.Uint32(src[chunks[0].off+4:])),
	}
	anim, err := p.demux(chunks)
	if err != nil {
		return nil, err
	}
	if err := decodeFrames(anim.Frames, o.Decode, o.OnDecodeError); err != nil {
		return nil, err
	}
	return anim, nil
}

func decodePNG(b []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(b))
}

// FrameInfos returns the composition records in frame order.
func (a *Animation) FrameInfos() []FrameInfo {
	infos := make([]FrameInfo, len(a.Frames))
	for i, f := range a.Frames {
		infos[i] = f.FrameInfo
	}
	return infos
}

// ScaleDelays multiplies every frame delay by k and recomputes Duration.
// Retiming must not run while a Player is playing the animation.
func (a *Animation) ScaleDelays(k float64) {
	for _, f := range a.Frames {
		f.Delay *= k
	}
	a.recomputeDuration()
}

// SetDuration rescales all delays so the total duration becomes d
// milliseconds.
func (a *Animation) SetDuration(d float64) {
	a.ScaleDelays(d / a.Duration)
}

// SetDelay gives every frame the same delay of d milliseconds.
func (a *Animation) SetDelay(d float64) {
	for _, f := range a.Frames {
		f.Delay = d
	}
	a.recomputeDuration()
}

func (a *Animation) recomputeDuration() {
	a.Duration = 0
	for _, f := range a.Frames {
		a.Duration += f.Delay
	}
}
