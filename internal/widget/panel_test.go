package widget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var allPrefs = []Prefs{
	{Open: false, Collapsed: false},
	{Open: false, Collapsed: true},
	{Open: true, Collapsed: false},
	{Open: true, Collapsed: true},
}

func TestPrefs_LauncherVisibleIffHidden(t *testing.T) {
	for _, p := range allPrefs {
		require.Equal(t, p.State() == PanelHidden, p.LauncherVisible(), "%+v", p)
	}
}

func TestTransitions_Idempotent(t *testing.T) {
	transitions := map[string]func(Prefs) Prefs{
		"show":     Show,
		"hide":     Hide,
		"collapse": Collapse,
		"expand":   Expand,
	}
	for name, fn := range transitions {
		for _, p := range allPrefs {
			once := fn(p)
			require.Equal(t, once, fn(once), "%s from %+v", name, p)
			require.Equal(t, once.State() == PanelHidden, once.LauncherVisible())
		}
	}
}

func TestTransitions_Table(t *testing.T) {
	hidden := Prefs{}
	hiddenCollapsed := Prefs{Collapsed: true}
	open := Prefs{Open: true}
	collapsed := Prefs{Open: true, Collapsed: true}

	require.Equal(t, PanelOpen, Show(hidden).State())
	require.Equal(t, PanelCollapsed, Show(hiddenCollapsed).State())
	require.Equal(t, PanelHidden, Hide(open).State())
	require.Equal(t, PanelHidden, Hide(collapsed).State())
	require.Equal(t, hiddenCollapsed, Hide(collapsed))

	require.Equal(t, collapsed, ToggleCollapse(open))
	require.Equal(t, open, ToggleCollapse(collapsed))
	require.Equal(t, hidden, Collapse(hidden))
	require.Equal(t, hiddenCollapsed, Expand(hiddenCollapsed))

	require.Equal(t, open, LauncherClick(hidden))
	require.Equal(t, collapsed, LauncherClick(hiddenCollapsed))
	require.Equal(t, hidden, LauncherClick(open))
	require.Equal(t, hiddenCollapsed, LauncherClick(collapsed))
}

func TestPanelState_String(t *testing.T) {
	require.Equal(t, "hidden", PanelHidden.String())
	require.Equal(t, "open", PanelOpen.String())
	require.Equal(t, "collapsed", PanelCollapsed.String())
}
