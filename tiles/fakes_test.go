package tiles

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

// solidTile is a tile filled with a single color.
func solidTile(c color.Color) image.Image {
	return &image.Uniform{C: c}
}

// fakeProvider serves a solid tile for every address, optionally failing or
// blocking on selected ones, and counts the calls per address.
type fakeProvider struct {
	mu    sync.Mutex
	calls map[TileAddress]int
	total atomic.Int32

	fail    map[TileAddress]error
	block   chan struct{} // when set, every call waits for it or ctx
	ignore  bool          // keep blocking even after ctx is done
	started chan TileAddress
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: make(map[TileAddress]int), fail: make(map[TileAddress]error)}
}

func (p *fakeProvider) GetTile(ctx context.Context, tile TileAddress) (image.Image, error) {
	p.mu.Lock()
	p.calls[tile]++
	err := p.fail[tile]
	p.mu.Unlock()
	p.total.Add(1)

	if p.started != nil {
		p.started <- tile
	}
	if err != nil {
		return nil, err
	}
	if p.block != nil {
		if p.ignore {
			<-p.block
		} else {
			select {
			case <-p.block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return solidTile(color.RGBA{uint8(tile.X), uint8(tile.Y), uint8(tile.Zoom), 255}), nil
}

func (p *fakeProvider) Calls(tile TileAddress) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[tile]
}
