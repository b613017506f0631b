package buttons

import "testing"

func TestFakeInputScript(t *testing.T) {
	f := NewFakeInput([][]Edge{
		{EdgeVolumeUp},
		nil,
		{EdgePlayToggle, EdgeVolumeDown},
	})

	got := f.Poll()
	if len(got) != 1 || got[0] != EdgeVolumeUp {
		t.Errorf("poll 1 = %v", got)
	}
	if got := f.Poll(); got != nil {
		t.Errorf("poll 2 = %v, want nil", got)
	}
	got = f.Poll()
	if len(got) != 2 || got[0] != EdgePlayToggle || got[1] != EdgeVolumeDown {
		t.Errorf("poll 3 = %v", got)
	}
	// Exhausted.
	if got := f.Poll(); got != nil {
		t.Errorf("poll 4 = %v, want nil", got)
	}

	f.Reset()
	if got := f.Poll(); len(got) != 1 {
		t.Errorf("after reset poll = %v", got)
	}
}

func TestEdgeString(t *testing.T) {
	if EdgeVolumeDown.String() != "VOLUME_DOWN" {
		t.Errorf("got %s", EdgeVolumeDown)
	}
	if Edge(99).String() != "UNKNOWN" {
		t.Errorf("got %s", Edge(99))
	}
}
