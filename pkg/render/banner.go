package render

import (
	"sync"
	"time"
)

// Banner is a transient error notice shown outside the transcript.
type Banner struct {
	ID        string
	Message   string
	Fading    bool
	CreatedAt time.Time
}

// BannerBoard holds the banners currently on screen.
type BannerBoard struct {
	mu      sync.RWMutex
	banners []Banner
}

func NewBannerBoard() *BannerBoard {
	return &BannerBoard{}
}

func (b *BannerBoard) Add(banner Banner) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banners = append(b.banners, banner)
}

func (b *BannerBoard) SetFading(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.banners {
		if b.banners[i].ID == id {
			b.banners[i].Fading = true
			return true
		}
	}
	return false
}

func (b *BannerBoard) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.banners {
		if b.banners[i].ID == id {
			b.banners = append(b.banners[:i], b.banners[i+1:]...)
			return true
		}
	}
	return false
}

// Banners returns the visible banners, oldest first.
func (b *BannerBoard) Banners() []Banner {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Banner, len(b.banners))
	copy(out, b.banners)
	return out
}
