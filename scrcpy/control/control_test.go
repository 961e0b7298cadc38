package control

import (
	"bytes"
	"testing"
)

func TestInjectTouch_ScenarioD(t *testing.T) {
	got := InjectTouch(TouchDown, 0, 100, 200, 720, 1280, 0, 0)

	wantBytes := []byte{
		0x02,                   // type
		0x00,                   // action = down
		0, 0, 0, 0, 0, 0, 0, 0, // pointer_id = 0
		0x00, 0x00, 0x00, 0x64, // x = 100
		0x00, 0x00, 0x00, 0xC8, // y = 200
		0x02, 0xD0, // screen_w = 720
		0x05, 0x00, // screen_h = 1280
		0xFF, 0xFF, // pressure = max
		0x00, 0x00, 0x00, 0x00, // action_button
		0x00, 0x00, 0x00, 0x00, // buttons
	}

	if len(got) != 32 {
		t.Fatalf("expected 32 bytes total, got %d", len(got))
	}
	if !bytes.Equal(got, wantBytes) {
		t.Errorf("InjectTouch mismatch.\ngot:  %x\nwant: %x", got, wantBytes)
	}
}

func TestInjectKeycode_Layout(t *testing.T) {
	got := InjectKeycode(ActionDown, 29, 0)
	if len(got) != 14 {
		t.Fatalf("expected 14 bytes, got %d", len(got))
	}
	if got[0] != TypeInjectKeycode {
		t.Errorf("expected type byte 0, got %d", got[0])
	}
	if got[1] != ActionDown {
		t.Errorf("expected action byte 0, got %d", got[1])
	}
	// keycode
	if got[2] != 0 || got[3] != 0 || got[4] != 0 || got[5] != 29 {
		t.Errorf("expected keycode=29 big-endian, got %x", got[2:6])
	}
	// repeat must always be 0
	if got[6] != 0 || got[7] != 0 || got[8] != 0 || got[9] != 0 {
		t.Errorf("expected repeat=0, got %x", got[6:10])
	}
}

func TestInjectText_Layout(t *testing.T) {
	got := InjectText("hi")
	want := []byte{TypeInjectText, 0x00, 0x00, 0x00, 0x02, 'h', 'i'}
	if !bytes.Equal(got, want) {
		t.Errorf("InjectText mismatch.\ngot:  %x\nwant: %x", got, want)
	}
}

func TestInjectScroll_Layout(t *testing.T) {
	got := InjectScroll(10, 20, 720, 1280, -1, 1, 0)
	if len(got) != 25 {
		t.Fatalf("expected 25 bytes, got %d", len(got))
	}
	if got[0] != TypeInjectScroll {
		t.Errorf("expected type byte 3, got %d", got[0])
	}
	// h_scroll = -1 as big-endian uint32 is 0xFFFFFFFF
	if got[13] != 0xFF || got[14] != 0xFF || got[15] != 0xFF || got[16] != 0xFF {
		t.Errorf("expected h_scroll=-1 (0xFFFFFFFF), got %x", got[13:17])
	}
	// v_scroll = 1
	if got[17] != 0 || got[18] != 0 || got[19] != 0 || got[20] != 1 {
		t.Errorf("expected v_scroll=1, got %x", got[17:21])
	}
}
