package inject

import (
	"context"
	"testing"
)

func TestNewTypeInjectorClampsMinimumDelay(t *testing.T) {
	ti := NewTypeInjector(0)
	if ti.TypeSpeedMs != 1 {
		t.Errorf("TypeSpeedMs = %d, want 1", ti.TypeSpeedMs)
	}

	ti = NewTypeInjector(-5)
	if ti.TypeSpeedMs != 1 {
		t.Errorf("TypeSpeedMs = %d, want 1", ti.TypeSpeedMs)
	}

	ti = NewTypeInjector(20)
	if ti.TypeSpeedMs != 20 {
		t.Errorf("TypeSpeedMs = %d, want 20", ti.TypeSpeedMs)
	}
}

func TestTypeInjectorInjectEmptyTextIsNoop(t *testing.T) {
	ti := NewTypeInjector(5)
	if err := ti.Inject(context.Background(), ""); err != nil {
		t.Errorf("Inject(\"\") = %v, want nil", err)
	}
}

func TestNewClipboardInjectorDefaultDelay(t *testing.T) {
	ci := NewClipboardInjector(true)
	if ci.RestoreDelay.Milliseconds() != 500 {
		t.Errorf("RestoreDelay = %v, want 500ms", ci.RestoreDelay)
	}
	if !ci.RestoreClipboard {
		t.Error("RestoreClipboard should be true")
	}
}

func TestClipboardInjectorInjectEmptyTextIsNoop(t *testing.T) {
	ci := NewClipboardInjector(false)
	if err := ci.Inject(context.Background(), ""); err != nil {
		t.Errorf("Inject(\"\") = %v, want nil", err)
	}
}
