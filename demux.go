package apng

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"runtime"
	"sync"
)

// headerChunkTypes are the chunks copied from the source into every
// synthesized frame PNG. IHDR is special-cased: it is rewritten with the
// frame's region size and a fresh CRC.
var headerChunkTypes = map[string]bool{
	"IHDR": true,
	"PLTE": true,
	"gAMA": true,
	"pHYs": true,
	"tRNS": true,
	"iCCP": true,
	"sRGB": true,
	"sBIT": true,
	"sPLT": true,
}

// iendChunk is the fixed terminal chunk: zero length, type IEND,
// CRC 0xAE426082.
var iendChunk = []byte{
	0x00, 0x00, 0x00, 0x00,
	0x49, 0x45, 0x4E, 0x44,
	0xAE, 0x42, 0x60, 0x82,
}

type parser struct {
	src    []byte
	tab    *crc32.Table
	warn   warnFunc
	width  int
	height int

	header    []chunk // header chunks in source order
	lastSeq   int64
	seqWarned bool
}

// demux walks the chunk index, splits the interleaved animation stream into
// per-frame data part lists, and rebuilds each frame as a standalone PNG.
// Without an acTL chunk the source is returned unchanged as a single frame.
func (p *parser) demux(chunks []chunk) (*Animation, error) {
	anim := &Animation{Width: p.width, Height: p.height}

	var (
		files    [][][]byte // completed per-frame data part lists
		parts    [][]byte   // data parts of the frame being accumulated
		infos    []FrameInfo
		seenFCTL bool // latched by the first fcTL; later IDATs join the animation
		declared int
	)
	p.lastSeq = -1

	for _, c := range chunks {
		d := c.data(p.src)
		switch c.typ {
		case "acTL":
			if c.length < 8 {
				continue
			}
			anim.IsAPNG = true
			declared = int(binary.BigEndian.Uint32(d[0:4]))
			anim.Iterations = int(binary.BigEndian.Uint32(d[4:8]))
		case "fcTL":
			if c.length < 26 {
				continue
			}
			p.noteSeq(d)
			if len(parts) > 0 {
				files = append(files, parts)
				parts = nil
			}
			seenFCTL = true
			infos = append(infos, parseFCTL(d))
		case "IDAT":
			if seenFCTL {
				parts = append(parts, d)
			}
		case "fdAT":
			if c.length < 4 {
				continue
			}
			p.noteSeq(d)
			parts = append(parts, d[4:])
		default:
			if headerChunkTypes[c.typ] {
				p.header = append(p.header, c)
			}
		}
	}
	if len(parts) > 0 {
		files = append(files, parts)
	}

	if !anim.IsAPNG {
		anim.Frames = []*Frame{{
			Data: p.src,
			FrameInfo: FrameInfo{
				Width:   p.width,
				Height:  p.height,
				Delay:   -1,
				Dispose: DisposeBackground,
				Blend:   BlendSource,
			},
		}}
		anim.Duration = -1
		return anim, nil
	}

	if declared != len(infos) {
		p.warn(WarnFrameCountMismatch, fmt.Sprintf("acTL declares %d frames, found %d fcTL chunks", declared, len(infos)))
	}
	if n := min(len(files), len(infos)); n < len(files) || n < len(infos) {
		files, infos = files[:n], infos[:n]
	}

	anim.Frames = make([]*Frame, len(files))
	for i := range files {
		anim.Frames[i] = &Frame{
			Data:      p.buildFrame(files[i], infos[i]),
			FrameInfo: infos[i],
		}
		anim.Duration += infos[i].Delay
	}
	return anim, nil
}

// noteSeq tracks the shared fcTL/fdAT sequence numbering; a decrease warns
// once and never fails the parse.
func (p *parser) noteSeq(d []byte) {
	seq := int64(binary.BigEndian.Uint32(d[0:4]))
	if seq < p.lastSeq && !p.seqWarned {
		p.warn(WarnSequenceOutOfOrder, fmt.Sprintf("sequence number %d follows %d", seq, p.lastSeq))
		p.seqWarned = true
	}
	p.lastSeq = seq
}

// parseFCTL decodes a frame control record. A zero delay denominator pins
// the delay to 10 ms rather than the APNG rule of reading it as 100: the
// ratio is computed with 1 in its place and then overwritten.
func parseFCTL(d []byte) FrameInfo {
	num := binary.BigEndian.Uint16(d[20:22])
	den := binary.BigEndian.Uint16(d[22:24])
	effDen := den
	if effDen == 0 {
		effDen = 1
	}
	delay := float64(num) / float64(effDen) * 1000
	if den == 0 {
		delay = 10
	}
	return FrameInfo{
		Width:   int(binary.BigEndian.Uint32(d[4:8])),
		Height:  int(binary.BigEndian.Uint32(d[8:12])),
		X:       int(binary.BigEndian.Uint32(d[12:16])),
		Y:       int(binary.BigEndian.Uint32(d[16:20])),
		Delay:   delay,
		Dispose: DisposeOp(d[24]),
		Blend:   BlendOp(d[25]),
	}
}

// buildFrame assembles one standalone PNG: signature, the source's header
// chunks (IHDR rewritten to the frame's region size), one IDAT per data
// part, and the fixed IEND.
func (p *parser) buildFrame(parts [][]byte, fi FrameInfo) []byte {
	n := len(pngHeader) + len(iendChunk)
	for _, h := range p.header {
		n += h.length + 12
	}
	for _, part := range parts {
		n += len(part) + 12
	}

	out := make([]byte, 0, n)
	out = append(out, pngHeader...)
	for _, h := range p.header {
		if h.typ == "IHDR" {
			ihdr := make([]byte, h.length)
			copy(ihdr, h.data(p.src))
			binary.BigEndian.PutUint32(ihdr[0:4], uint32(fi.Width))
			binary.BigEndian.PutUint32(ihdr[4:8], uint32(fi.Height))
			out = appendChunk(out, p.tab, "IHDR", ihdr)
			continue
		}
		out = append(out, h.raw(p.src)...)
	}
	for _, part := range parts {
		out = appendChunk(out, p.tab, "IDAT", part)
	}
	return append(out, iendChunk...)
}

// decodeFrames runs the decoder over every frame. Frames decode on a worker
// pool bounded by GOMAXPROCS when there are more than two. A frame the
// decoder rejects keeps a nil Image and is reported through onErr, except
// the last frame, whose failure fails the whole parse.
func decodeFrames(frames []*Frame, decode DecodeFunc, onErr func(int, error)) error {
	errs := make([]error, len(frames))

	if len(frames) <= 2 {
		for i, f := range frames {
			f.Image, errs[i] = decode(f.Data)
		}
	} else {
		workers := runtime.GOMAXPROCS(0)
		if workers > len(frames) {
			workers = len(frames)
		}
		work := make(chan int, len(frames))
		for i := range frames {
			work <- i
		}
		close(work)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range work {
					frames[i].Image, errs[i] = decode(frames[i].Data)
				}
			}()
		}
		wg.Wait()
	}

	last := len(frames) - 1
	for i, err := range errs {
		if err == nil {
			continue
		}
		if i == last {
			return fmt.Errorf("apng: decoding frame %d: %w", i, err)
		}
		if onErr != nil {
			onErr(i, err)
		}
	}
	return nil
}
