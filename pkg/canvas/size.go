package canvas

import "github.com/hrhrng/clash-sub002/pkg/geom"

// MinGroupSize is the smallest size a group is ever scaled to.
var MinGroupSize = geom.Size{Width: 200, Height: 200}

var defaultSizes = map[Kind]geom.Size{
	KindGroup:  {Width: 400, Height: 300},
	KindText:   {Width: 300, Height: 200},
	KindImage:  {Width: 300, Height: 300},
	KindVideo:  {Width: 400, Height: 225},
	KindAudio:  {Width: 300, Height: 100},
	KindAction: {Width: 320, Height: 180},
	KindPrompt: {Width: 320, Height: 200},
}

var fallbackSize = geom.Size{Width: 300, Height: 200}

// DefaultSize returns the size used for a kind when nothing else is known.
func DefaultSize(k Kind) geom.Size {
	if s, ok := defaultSizes[k]; ok {
		return s
	}
	return fallbackSize
}

// ResolveSize returns the effective size of n.
//
// The chain is: explicit measured size, media aspect ratio applied to the
// default width, style overrides per axis, kind default.
func ResolveSize(n Node) geom.Size {
	if n.Size != nil && !n.Size.IsZero() {
		return *n.Size
	}

	def := DefaultSize(n.Kind)
	if n.Kind.IsMedia() && n.Media != nil && n.Media.AspectRatio > 0 {
		w := def.Width
		if n.Style != nil && n.Style.Width > 0 {
			w = n.Style.Width
		}
		return geom.Size{Width: w, Height: w / n.Media.AspectRatio}
	}

	if n.Style != nil {
		out := def
		if n.Style.Width > 0 {
			out.Width = n.Style.Width
		}
		if n.Style.Height > 0 {
			out.Height = n.Style.Height
		}
		return out
	}
	return def
}

// Rect returns n's rectangle in its parent's coordinate space.
func Rect(n Node) geom.Rect {
	return geom.RectAt(n.Position, ResolveSize(n))
}
