package widget

import (
	"context"
	"fmt"
	"strconv"
)

// PanelState is the visible state of the chat panel.
type PanelState int

const (
	PanelHidden PanelState = iota
	PanelOpen
	PanelCollapsed
)

func (s PanelState) String() string {
	switch s {
	case PanelOpen:
		return "open"
	case PanelCollapsed:
		return "collapsed"
	default:
		return "hidden"
	}
}

// Prefs are the two persisted panel preferences. Collapsed survives a close so
// reopening restores the prior sub-state.
type Prefs struct {
	Open      bool
	Collapsed bool
}

func (p Prefs) State() PanelState {
	switch {
	case !p.Open:
		return PanelHidden
	case p.Collapsed:
		return PanelCollapsed
	default:
		return PanelOpen
	}
}

// LauncherVisible reports whether the launcher is shown. It is shown exactly
// when the panel is hidden.
func (p Prefs) LauncherVisible() bool {
	return p.State() == PanelHidden
}

// Show opens the panel into its remembered sub-state.
func Show(p Prefs) Prefs {
	p.Open = true
	return p
}

// Hide closes the panel from either open or collapsed.
func Hide(p Prefs) Prefs {
	p.Open = false
	return p
}

// Collapse minimizes a visible panel. Hidden panels are left alone.
func Collapse(p Prefs) Prefs {
	if p.Open {
		p.Collapsed = true
	}
	return p
}

// Expand restores a collapsed panel. Hidden panels are left alone.
func Expand(p Prefs) Prefs {
	if p.Open {
		p.Collapsed = false
	}
	return p
}

func ToggleCollapse(p Prefs) Prefs {
	if p.Collapsed {
		return Expand(p)
	}
	return Collapse(p)
}

// LauncherClick shows a hidden panel and hides a visible one.
func LauncherClick(p Prefs) Prefs {
	if p.Open {
		return Hide(p)
	}
	return Show(p)
}

func loadPrefs(ctx context.Context, s Store) (Prefs, error) {
	open, err := loadFlag(ctx, s, KeyOpen)
	if err != nil {
		return Prefs{}, err
	}
	collapsed, err := loadFlag(ctx, s, KeyCollapsed)
	if err != nil {
		return Prefs{}, err
	}
	return Prefs{Open: open, Collapsed: collapsed}, nil
}

func loadFlag(ctx context.Context, s Store, key string) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("widget: load %s: %w", key, err)
	}
	return ok && v == "true", nil
}

// savePrefs writes only the preferences that changed.
func savePrefs(ctx context.Context, s Store, prev, next Prefs) error {
	if prev.Open != next.Open {
		if err := s.Set(ctx, KeyOpen, strconv.FormatBool(next.Open)); err != nil {
			return fmt.Errorf("widget: save %s: %w", KeyOpen, err)
		}
	}
	if prev.Collapsed != next.Collapsed {
		if err := s.Set(ctx, KeyCollapsed, strconv.FormatBool(next.Collapsed)); err != nil {
			return fmt.Errorf("widget: save %s: %w", KeyCollapsed, err)
		}
	}
	return nil
}
