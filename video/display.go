// 利用 SDL2 將擷取到的 RGB24 影格顯示在視窗中
package video

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/cowby123/droidscreen/internal/capture"
)

// Display 使用 SDL2 顯示擷取流程輸出的影格
type Display struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	texW     int
	texH     int
}

// NewDisplay 建立 SDL 視窗與繪圖器；winW/winH 為視窗大小，影格會縮放填滿
func NewDisplay(title string, winW, winH int) (*Display, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(winW), int32(winH), sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("create window: %w", err)
	}
	rend, err := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		win.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	return &Display{window: win, renderer: rend}, nil
}

// Render 將 RGB24 影格寫入紋理並更新畫面；影格尺寸改變時重建紋理
func (d *Display) Render(f capture.Frame) error {
	if d.texture == nil || f.Width != d.texW || f.Height != d.texH {
		if d.texture != nil {
			d.texture.Destroy()
			d.texture = nil
		}
		tex, err := d.renderer.CreateTexture(sdl.PIXELFORMAT_RGB24, sdl.TEXTUREACCESS_STREAMING,
			int32(f.Width), int32(f.Height))
		if err != nil {
			return fmt.Errorf("create texture: %w", err)
		}
		d.texture, d.texW, d.texH = tex, f.Width, f.Height
	}

	pixels, pitch, err := d.texture.Lock(nil)
	if err != nil {
		return fmt.Errorf("lock texture: %w", err)
	}
	for y := 0; y < f.Height; y++ {
		copy(pixels[y*pitch:y*pitch+f.Width*3], f.Pix[y*f.Stride:])
	}
	d.texture.Unlock()

	if err := d.renderer.Clear(); err != nil {
		return err
	}
	if err := d.renderer.Copy(d.texture, nil, nil); err != nil {
		return err
	}
	d.renderer.Present()
	return nil
}

// Poll 處理事件以維持視窗運作，收到關閉事件時回傳 false
func (d *Display) Poll() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event.(type) {
		case *sdl.QuitEvent:
			return false
		}
	}
	return true
}

// Close 釋放 SDL 資源
func (d *Display) Close() {
	if d.texture != nil {
		d.texture.Destroy()
	}
	d.renderer.Destroy()
	d.window.Destroy()
	sdl.Quit()
}
