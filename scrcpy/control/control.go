// Package control serializes scrcpy v2.7 control-socket messages:
// keycode injection, text injection, touch injection and scroll
// injection, each prefixed with a 1-byte message type.
//
// Grounded on the teacher's service/control.go (SerializeKeycode /
// SerializeText), generalized from the teacher's mixed v1.x/v3.x type
// numbering and added touch/scroll layouts following spec.md section
// 4.6's exact byte layout, which is the v2.7 wire format (the teacher's
// CtrlInjectTouchEvent lacked a body; a prior repository variant in this
// lineage encoded touch coordinates as fixed-point fractions of the
// screen size — spec.md's Open Question 1 resolves this package to raw
// pixel coordinates instead).
package control

import "encoding/binary"

// Message types the scrcpy v2.7 control socket accepts.
const (
	TypeInjectKeycode = 0
	TypeInjectText    = 1
	TypeInjectTouch   = 2
	TypeInjectScroll  = 3
)

// Android key event actions.
const (
	ActionDown = 0
	ActionUp   = 1
)

// Touch actions (AMotionEvent action constants scrcpy forwards).
const (
	TouchDown = 0
	TouchUp   = 1
	TouchMove = 2
)

const maxPressure = 0xFFFF

// InjectKeycode builds a type-0 message: action(1) + keycode(4) +
// repeat(4, always 0) + metastate(4) = 13 bytes of payload after the
// type byte.
func InjectKeycode(action int, keycode, metastate uint32) []byte {
	buf := make([]byte, 1+13)
	buf[0] = TypeInjectKeycode
	buf[1] = byte(action)
	binary.BigEndian.PutUint32(buf[2:6], keycode)
	binary.BigEndian.PutUint32(buf[6:10], 0) // repeat
	binary.BigEndian.PutUint32(buf[10:14], metastate)
	return buf
}

// InjectText builds a type-1 message: length(4) + utf8 bytes(length).
func InjectText(text string) []byte {
	body := []byte(text)
	buf := make([]byte, 1+4+len(body))
	buf[0] = TypeInjectText
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(body)))
	copy(buf[5:], body)
	return buf
}

// InjectTouch builds a type-2 message: action(1) + pointer_id(8) +
// x(4) + y(4) + screen_w(2) + screen_h(2) + pressure(2) +
// action_button(4) + buttons(4) = 31 bytes of payload. x,y are raw
// pixels in the video frame's coordinate system (spec.md section 4.6);
// screen_w/h must match the current video dimensions.
func InjectTouch(action int, pointerID uint64, x, y int32, screenW, screenH uint16, actionButton, buttons uint32) []byte {
	buf := make([]byte, 1+31)
	buf[0] = TypeInjectTouch
	buf[1] = byte(action)
	binary.BigEndian.PutUint64(buf[2:10], pointerID)
	binary.BigEndian.PutUint32(buf[10:14], uint32(x))
	binary.BigEndian.PutUint32(buf[14:18], uint32(y))
	binary.BigEndian.PutUint16(buf[18:20], screenW)
	binary.BigEndian.PutUint16(buf[20:22], screenH)
	binary.BigEndian.PutUint16(buf[22:24], maxPressure)
	binary.BigEndian.PutUint32(buf[24:28], actionButton)
	binary.BigEndian.PutUint32(buf[28:32], buttons)
	return buf
}

// InjectScroll builds a type-3 message: x(4) + y(4) + screen_w(2) +
// screen_h(2) + h_scroll(4, signed) + v_scroll(4, signed) +
// buttons(4) = 24 bytes of payload.
func InjectScroll(x, y int32, screenW, screenH uint16, hScroll, vScroll int32, buttons uint32) []byte {
	buf := make([]byte, 1+24)
	buf[0] = TypeInjectScroll
	binary.BigEndian.PutUint32(buf[1:5], uint32(x))
	binary.BigEndian.PutUint32(buf[5:9], uint32(y))
	binary.BigEndian.PutUint16(buf[9:11], screenW)
	binary.BigEndian.PutUint16(buf[11:13], screenH)
	binary.BigEndian.PutUint32(buf[13:17], uint32(hScroll))
	binary.BigEndian.PutUint32(buf[17:21], uint32(vScroll))
	binary.BigEndian.PutUint32(buf[21:25], buttons)
	return buf
}
