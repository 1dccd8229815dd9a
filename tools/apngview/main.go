package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"

	apng "github.com/epistemex/apng-parser"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/examples/resources/fonts"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

var (
	debug = flag.Bool("debug", false, "stroke frame regions and show dispose/blend operators")
	mode  = flag.String("mode", "forward", "playback mode: forward, backward or pingpong")
)

func main() {
	flag.Parse()

	anim, err := apng.ParseFile(flag.Arg(0), &apng.Options{
		Warn: func(w apng.Warning, detail string) {
			log.Printf("warning: %s: %s", w, detail)
		},
	})
	if err != nil {
		log.Fatalf("%s", err)
	}

	tt, err := opentype.Parse(fonts.PressStart2P_ttf)
	if err != nil {
		log.Fatalf("%s", err)
	}

	const dpi = 72
	fontFace, err := opentype.NewFace(tt, &opentype.FaceOptions{
		Size:    8,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Fatalf("%s", err)
	}

	g := &game{fontFace: fontFace, anim: anim}
	g.player = apng.NewPlayer(anim, &apng.PlayerOptions{
		Iterations: -1,
		Mode:       parseMode(*mode),
		Debug:      *debug,
		OnFrame:    g.onFrame,
	})
	g.player.Play()

	ebiten.SetWindowSize(anim.Width*2, anim.Height*2)
	ebiten.SetWindowTitle(flag.Arg(0))
	if err := ebiten.RunGame(g); err != nil {
		log.Fatalf("%s", err)
	}
}

func parseMode(s string) apng.Mode {
	switch s {
	case "backward":
		return apng.ModeBackward
	case "pingpong":
		return apng.ModePingPong
	default:
		return apng.ModeForward
	}
}

type game struct {
	fontFace font.Face
	anim     *apng.Animation
	player   *apng.Player

	mu    sync.Mutex
	frame *image.NRGBA
	dirty bool
	img   *ebiten.Image
}

// onFrame snapshots the player canvas; it fires on the player's scheduling
// goroutine during playback, and on the calling goroutine for Play's first
// frame, seeks and Stop.
func (g *game) onFrame(int) {
	g.mu.Lock()
	src := g.player.Canvas().NRGBA()
	if g.frame == nil {
		g.frame = image.NewNRGBA(src.Bounds())
	}
	copy(g.frame.Pix, src.Pix)
	g.dirty = true
	g.mu.Unlock()
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.anim.Width, g.anim.Height
}

func (g *game) Draw(screen *ebiten.Image) {
	g.mu.Lock()
	if g.dirty && g.frame != nil {
		g.img = ebiten.NewImageFromImage(g.frame)
		g.dirty = false
	}
	g.mu.Unlock()

	screen.Fill(color.RGBA{0x30, 0x30, 0x30, 0xff})
	if g.img != nil {
		screen.DrawImage(g.img, nil)
	}

	hud := fmt.Sprintf("frame: %d/%d\nmode: %s\nloop: %d",
		g.player.CurrentFrame(), g.player.SequenceLength(), g.player.Mode(), g.player.Loops())
	text.Draw(screen, hud, g.fontFace, 4, 12, color.RGBA{0x00, 0xff, 0x00, 0xff})
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if g.player.Playing() {
			g.player.Pause()
		} else {
			g.player.Play()
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
		g.player.Pause()
		g.player.SetFrame(g.player.CurrentFrame() + 1)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
		g.player.Pause()
		g.player.SetFrame(g.player.CurrentFrame() - 1)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		g.player.SetMode((g.player.Mode() + 1) % 3)
		g.player.SetFrame(0)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.player.Stop()
	}

	return nil
}
