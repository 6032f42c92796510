package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CutoutTheme provides a custom theme for the application.
type CutoutTheme struct{}

var _ fyne.Theme = (*CutoutTheme)(nil)

func (t *CutoutTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0xC6, G: 0x28, B: 0x28, A: 0xFF} // matches the segmentation highlight
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0x60}
	case theme.ColorNameBackground:
		if variant == theme.VariantDark {
			return color.NRGBA{R: 0x28, G: 0x28, B: 0x28, A: 0xFF}
		}
		return theme.DefaultTheme().Color(name, variant)
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *CutoutTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *CutoutTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *CutoutTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameInlineIcon:
		return 24 // larger toolbar icons for touch screens
	default:
		return theme.DefaultTheme().Size(name)
	}
}
