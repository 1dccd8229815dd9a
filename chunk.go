package apng

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const pngHeader = "\x89PNG\r\n\x1a\n"

var (
	ErrSignature = errors.New("apng: not a PNG: bad signature")
	ErrNoIHDR    = errors.New("apng: malformed PNG: first chunk is not IHDR")
)

// chunk is a non-owning reference to one chunk's payload inside the source
// buffer. off is the offset of the data bytes; the 8-byte length/type prefix
// sits at off-8 and the CRC at off+length.
type chunk struct {
	typ    string
	off    int
	length int
}

func (c chunk) data(src []byte) []byte { return src[c.off : c.off+c.length] }

// raw returns the whole chunk including length, type and CRC fields.
func (c chunk) raw(src []byte) []byte { return src[c.off-8 : c.off+c.length+4] }

// chunkCRC computes the PNG CRC32 over the chunk type tag followed by the
// data bytes. The length prefix is never included.
func chunkCRC(tab *crc32.Table, typ string, data []byte) uint32 {
	return crc32.Update(crc32.Checksum([]byte(typ), tab), tab, data)
}

// scanChunks indexes src as a PNG signature followed by chunks. Chunk CRCs
// are checked but a mismatch only raises WarnCRCMismatch; a truncated
// trailing chunk ends the walk.
func scanChunks(src []byte, tab *crc32.Table, warn warnFunc) ([]chunk, error) {
	if len(src) < len(pngHeader) || string(src[:len(pngHeader)]) != pngHeader {
		return nil, ErrSignature
	}

	var chunks []chunk
	pos := len(pngHeader)
	for pos+12 <= len(src) {
		length := int(binary.BigEndian.Uint32(src[pos:]))
		if length < 0 || pos+12+length > len(src) {
			break
		}
		c := chunk{
			typ:    string(src[pos+4 : pos+8]),
			off:    pos + 8,
			length: length,
		}
		want := binary.BigEndian.Uint32(src[c.off+c.length:])
		if got := chunkCRC(tab, c.typ, c.data(src)); got != want {
			warn(WarnCRCMismatch, fmt.Sprintf("%s chunk at offset %d: crc %08x, expected %08x", c.typ, pos, got, want))
		}
		chunks = append(chunks, c)
		pos += length + 12
	}
	return chunks, nil
}

// appendChunk frames data as a chunk of the given type, with a freshly
// computed CRC, and appends it to dst.
func appendChunk(dst []byte, tab *crc32.Table, typ string, data []byte) []byte {
	var u [4]byte
	binary.BigEndian.PutUint32(u[:], uint32(len(data)))
	dst = append(dst, u[:]...)
	dst = append(dst, typ...)
	dst = append(dst, data...)
	binary.BigEndian.PutUint32(u[:], chunkCRC(tab, typ, data))
	return append(dst, u[:]...)
}
