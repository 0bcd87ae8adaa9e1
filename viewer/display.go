package viewer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/exp/shiny/screen"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/size"
)

var hudColor = color.RGBA{0, 255, 0, 255}

// Display opens the viewer window and shows the frames produced by Run until
// q or Escape is pressed or the window is closed.
func (v *Viewer) Display(s screen.Screen) {
	w, err := s.NewWindow(&screen.NewWindowOptions{
		Title:  v.opts.Title,
		Width:  v.size.X,
		Height: v.size.Y,
	})
	if err != nil {
		v.stopped <- fmt.Errorf("could not create window: %w", err)
		return
	}
	defer w.Release()

	tex, err := s.NewTexture(v.size)
	if err != nil {
		v.stopped <- fmt.Errorf("could not create texture: %w", err)
		return
	}
	defer tex.Release()

	buf, err := s.NewBuffer(v.size)
	if err != nil {
		v.stopped <- fmt.Errorf("could not create buffer: %w", err)
		return
	}
	defer buf.Release()

	go publishRefreshEvent(w, v.refreshImage)

	sizeEvent := size.Event{WidthPx: v.size.X, HeightPx: v.size.Y}
	for {
		event := w.NextEvent()

		switch e := event.(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				v.stopped <- nil
				return
			}

		case key.Event:
			if isQuitKey(e) {
				v.stopped <- nil
				return
			}

		case size.Event:
			sizeEvent = e

		case uploadEvent:
			copy(buf.RGBA().Pix, e.Pixels)
			tex.Upload(image.Point{}, buf, buf.Bounds())
		}

		w.Scale(sizeEvent.Bounds(), tex, tex.Bounds(), draw.Src, nil)
		w.Publish()
	}
}

func isQuitKey(e key.Event) bool {
	if e.Direction == key.DirRelease {
		return false
	}
	return e.Code == key.CodeEscape || e.Rune == 'q'
}

func publishRefreshEvent(q screen.EventDeque, refreshImage chan *image.RGBA) {
	for i := range refreshImage {
		q.Send(uploadEvent{
			Pixels: i.Pix,
		})
	}
}

type uploadEvent struct {
	Pixels []uint8
}

// drawHUD writes a status line in the top left corner of img.
func drawHUD(img *image.RGBA, text string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(hudColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 13),
	}
	d.DrawString(text)
}
