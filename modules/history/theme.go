package history

import (
	"context"
	"errors"
	"log"
	"strings"

	"quel-marketing-studio/modules/common/slot"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

var ErrInvalidTheme = errors.New(`theme must be "dark" or "light"`)

// Preferences - 테마 설정 슬롯
type Preferences struct {
	slots slot.Slots
}

func NewPreferences(slots slot.Slots) *Preferences {
	return &Preferences{slots: slots}
}

// Theme - 저장된 테마 (없거나 알 수 없는 값이면 light)
func (p *Preferences) Theme(ctx context.Context) string {
	value, found, err := p.slots.Get(ctx, ThemeKey)
	if err != nil {
		log.Printf("⚠️ [History] Failed to read theme, using %s: %v", ThemeLight, err)
		return ThemeLight
	}
	if !found {
		return ThemeLight
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeLight
	}
}

// SetTheme - 테마 저장. 저장 실패는 로그만 남김
func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeDark && theme != ThemeLight {
		return ErrInvalidTheme
	}

	if err := p.slots.Set(ctx, ThemeKey, theme); err != nil {
		log.Printf("⚠️ [History] Failed to save theme %s: %v", theme, err)
		return nil
	}
	log.Printf("🎨 [History] Theme set to %s", theme)
	return nil
}
