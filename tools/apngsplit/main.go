// Command apngsplit splits an APNG into standalone per-frame PNG files,
// renders a sprite sheet, or lists the container's chunk layout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/undernet/pngchunks"

	apng "github.com/epistemex/apng-parser"
)

var (
	outDir     = flag.String("out", ".", "directory for extracted frame files")
	sheet      = flag.String("sheet", "", "write a sprite sheet to this path instead of frame files")
	sheetWidth = flag.Int("sheetwidth", apng.DefaultSheetMaxWidth, "maximum sprite sheet width in pixels")
	inspect    = flag.Bool("inspect", false, "list the container's chunks and exit")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: apngsplit [flags] file.png")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	if *inspect {
		if err := inspectChunks(path); err != nil {
			log.Fatalf("%s", err)
		}
		return
	}

	anim, err := apng.ParseFile(path, &apng.Options{
		Warn: func(w apng.Warning, detail string) {
			color.Yellow("warning: %s: %s", w, detail)
		},
		OnDecodeError: func(frame int, err error) {
			color.Red("frame %d did not decode: %s", frame, err)
		},
	})
	if err != nil {
		log.Fatalf("%s", err)
	}

	color.Green("%s: %dx%d, %d frame(s), %.0f ms, iterations=%d, apng=%v",
		filepath.Base(path), anim.Width, anim.Height, len(anim.Frames),
		anim.Duration, anim.Iterations, anim.IsAPNG)

	if *sheet != "" {
		if err := writeSheet(anim, *sheet, *sheetWidth); err != nil {
			log.Fatalf("%s", err)
		}
		return
	}
	if err := writeFrames(anim, *outDir); err != nil {
		log.Fatalf("%s", err)
	}
}

// writeFrames dumps each frame's synthesized standalone PNG verbatim.
func writeFrames(anim *apng.Animation, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, f := range anim.Frames {
		name := filepath.Join(dir, fmt.Sprintf("frame-%03d.png", i))
		if err := os.WriteFile(name, f.Data, 0o644); err != nil {
			return err
		}
		fmt.Printf("%s  %dx%d at (%d,%d)  delay=%.2fms  dispose=%d  blend=%d\n",
			name, f.Width, f.Height, f.X, f.Y, f.Delay, f.Dispose, f.Blend)
	}
	return nil
}

func writeSheet(anim *apng.Animation, path string, maxWidth int) error {
	img := anim.SpriteSheet(maxWidth)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	b := img.Bounds()
	color.Green("%s: %dx%d sheet, %d cell(s)", path, b.Dx(), b.Dy(), len(anim.Frames))
	return nil
}

// inspectChunks streams the file's chunk layout without demuxing it.
func inspectChunks(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := pngchunks.NewReader(f)
	if err != nil {
		return err
	}

	animated := color.New(color.FgCyan)
	for {
		chunk, err := r.NextChunk()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		n, err := io.Copy(io.Discard, chunk)
		if err != nil {
			return err
		}
		switch chunk.Type() {
		case "acTL", "fcTL", "fdAT":
			animated.Printf("%s  %6d bytes\n", chunk.Type(), n)
		default:
			fmt.Printf("%s  %6d bytes\n", chunk.Type(), n)
		}

		if err := chunk.Close(); err != nil {
			return err
		}
	}
	return nil
}
