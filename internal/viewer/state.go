// Package viewer holds the model viewer's display state and key bindings,
// independent of the window system.
package viewer

import (
	"github.com/Faultbox/plyview/pkg/mesh"
)

// Action is what the host must do after a key press.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionOpen
	ActionRebind // color or shade changed, re-upload attributes
	ActionProjection
	ActionToggleUV
	ActionResetCamera
	ActionOrientation
	ActionExportWireframe
	ActionScreenshot
)

// KeyEscape is the escape key code, matching SDL's keycode.
const KeyEscape = 27

// Orientations cycled by the c key, world up axis first.
var Orientations = []string{"zx", "yx", "xy", "zy", "yz", "xz"}

// State is the user's current view selection.
type State struct {
	Color       mesh.ColorMode
	Shade       mesh.Shade
	Ortho       bool
	UVView      bool
	Orientation string
}

// colorKeys maps the number row to color modes.
var colorKeys = map[rune]mesh.ColorMode{
	'1': mesh.ColorNormals,
	'2': mesh.ColorObjectSpace,
	'3': mesh.ColorUV,
	'4': mesh.ColorVertex,
	'5': mesh.ColorMatcap,
}

// HandleKey applies a key press and reports the follow-up action. Letter
// keys are case insensitive.
func (s *State) HandleKey(key rune) Action {
	if key >= 'A' && key <= 'Z' {
		key += 'a' - 'A'
	}

	if m, ok := colorKeys[key]; ok {
		if m == s.Color {
			return ActionNone
		}
		s.Color = m
		return ActionRebind
	}

	switch key {
	case KeyEscape:
		return ActionQuit
	case 'o':
		return ActionOpen
	case 'v':
		return s.setShade(mesh.ShadeVertex)
	case 't':
		return s.setShade(mesh.ShadeTriangle)
	case 'f':
		return s.setShade(mesh.ShadeFace)
	case 'p':
		s.Ortho = !s.Ortho
		return ActionProjection
	case 'u':
		s.UVView = !s.UVView
		return ActionToggleUV
	case 'r':
		return ActionResetCamera
	case 'c':
		s.Orientation = nextOrientation(s.Orientation)
		return ActionOrientation
	case 'w':
		return ActionExportWireframe
	case 's':
		return ActionScreenshot
	}
	return ActionNone
}

func (s *State) setShade(sh mesh.Shade) Action {
	if sh == s.Shade {
		return ActionNone
	}
	s.Shade = sh
	return ActionRebind
}

func nextOrientation(cur string) string {
	for i, o := range Orientations {
		if o == cur {
			return Orientations[(i+1)%len(Orientations)]
		}
	}
	return Orientations[0]
}
