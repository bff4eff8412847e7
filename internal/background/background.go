// Package background holds the cosmetic background customization settings.
package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"moosedocs/internal/storage"
)

const (
	TypeColor     = "color"
	TypeGradient  = "gradient"
	TypeImage     = "image"
	TypeParticles = "particles"
)

type Gradient struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Direction string `json:"direction"`
}

type Image struct {
	URL            string  `json:"url"`
	Overlay        bool    `json:"overlay"`
	OverlayColor   string  `json:"overlay_color"`
	OverlayOpacity float64 `json:"overlay_opacity"`
}

type Particles struct {
	ColorMode       string  `json:"color_mode"` // single, cycling, rainbow
	Color           string  `json:"color"`
	ColorSecondary  string  `json:"color_secondary"`
	ColorCycleSpeed int     `json:"color_cycle_speed"`
	Number          int     `json:"number"`
	Speed           float64 `json:"speed"`
	Connected       bool    `json:"connected"`
	RepulseDistance int     `json:"repulse_distance"`
}

type Settings struct {
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	Gradient  Gradient  `json:"gradient"`
	Image     Image     `json:"image"`
	Particles Particles `json:"particles"`
}

func DefaultSettings() Settings {
	return Settings{
		Type:  TypeColor,
		Color: "#f9fafb",
		Gradient: Gradient{
			From:      "#4f46e5",
			To:        "#06b6d4",
			Direction: "to bottom right",
		},
		Image: Image{
			URL:            "/placeholder.svg?height=1080&width=1920",
			Overlay:        true,
			OverlayColor:   "#000000",
			OverlayOpacity: 0.5,
		},
		Particles: Particles{
			ColorMode:       "single",
			Color:           "#4f46e5",
			ColorSecondary:  "#ef4444",
			ColorCycleSpeed: 3,
			Number:          80,
			Speed:           2,
			Connected:       true,
			RepulseDistance: 100,
		},
	}
}

var ErrInvalidType = errors.New("invalid background type")

func validType(t string) bool {
	return t == TypeColor || t == TypeGradient || t == TypeImage || t == TypeParticles
}

type Store struct {
	mu       sync.RWMutex
	backend  storage.Backend
	settings Settings
}

func NewStore(ctx context.Context, backend storage.Backend) (*Store, error) {
	s := &Store{backend: backend, settings: DefaultSettings()}

	data, err := backend.Load(ctx, storage.KeyBackground)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load background settings: %w", err)
	}
	if err := json.Unmarshal(data, &s.settings); err != nil {
		return nil, fmt.Errorf("decode background settings: %w", err)
	}
	return s, nil
}

func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) Update(ctx context.Context, settings Settings) error {
	if !validType(settings.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidType, settings.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return s.persist(ctx)
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = DefaultSettings()
	return s.persist(ctx)
}

// called with the lock held
func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.settings)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, storage.KeyBackground, data)
}
