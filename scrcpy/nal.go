// Package scrcpy implements a client of the scrcpy v2.7 screen-mirroring
// server protocol: startup handshake, the Annex-B video loop, and
// parameter-set caching for late-joining viewers.
//
// Grounded on the teacher's service/streaming.go (readNextAnnexBFrame /
// readUntilStartCode start-code scanning) and service/scrcpy_client.go
// (the v1.x handshake this package generalizes to v2.7), reworked per
// spec.md section 4.6: the teacher accumulates whole frames (grouping
// NALs until the next VCL NAL); this package instead extracts and caches
// individual NAL units, since the spec's viewer-sync protocol needs SPS,
// PPS and IDR addressable independently.
package scrcpy

import "sync"

const (
	nalTypeSPS = 7
	nalTypePPS = 8
	nalTypeIDR = 5
)

// NAL is one extracted Annex-B NAL unit, start code included.
type NAL struct {
	Type  byte
	Bytes []byte
}

// ClassifyNAL returns the NAL type (low 5 bits) of the byte immediately
// following an Annex-B start code.
func ClassifyNAL(headerByte byte) byte {
	return headerByte & 0x1F
}

// findStartCode returns the offset and length (3 or 4) of the first
// Annex-B start code (00 00 01 or 00 00 00 01) at or after `from`, or
// (-1, 0) if none is present.
func findStartCode(buf []byte, from int) (offset int, length int) {
	for i := from; i+2 < len(buf); i++ {
		if buf[i] != 0x00 || buf[i+1] != 0x00 {
			continue
		}
		if buf[i+2] == 0x01 {
			return i, 3
		}
		if i+3 < len(buf) && buf[i+2] == 0x00 && buf[i+3] == 0x01 {
			return i, 4
		}
	}
	return -1, 0
}

// ExtractNALs scans buf for complete Annex-B NAL units: everything from
// one start code up to (not including) the next. It returns the
// complete units found and the offset of the incomplete trailing region
// the caller must keep in its accumulator for the next read.
func ExtractNALs(buf []byte) (units []NAL, remainderFrom int) {
	start, startLen := findStartCode(buf, 0)
	if start < 0 {
		return nil, 0
	}
	// Any bytes before the first start code are not part of a NAL; drop
	// them by starting the remainder there.
	remainderFrom = start

	for {
		headerPos := start + startLen
		if headerPos >= len(buf) {
			return units, remainderFrom
		}

		nextStart, nextLen := findStartCode(buf, headerPos)
		if nextStart < 0 {
			// Trailing NAL is incomplete; leave it for the next read.
			return units, remainderFrom
		}

		units = append(units, NAL{
			Type:  ClassifyNAL(buf[headerPos]),
			Bytes: append([]byte(nil), buf[start:nextStart]...),
		})

		remainderFrom = nextStart
		start, startLen = nextStart, nextLen
	}
}

// FinalizeTrailingNAL treats whatever sits in a reader's accumulator after
// its last read as one final, complete NAL unit, if a start code opens it.
// ExtractNALs deliberately holds the trailing unit back (it has no closing
// start code yet); at end-of-stream there never will be one, so the
// session's read loop calls this once after its last read returns EOF/a
// closed-peer error, closing out the final NAL unit (typically the IDR)
// instead of discarding it.
func FinalizeTrailingNAL(buf []byte) (NAL, bool) {
	start, startLen := findStartCode(buf, 0)
	if start < 0 {
		return NAL{}, false
	}
	headerPos := start + startLen
	if headerPos >= len(buf) {
		return NAL{}, false
	}
	return NAL{
		Type:  ClassifyNAL(buf[headerPos]),
		Bytes: append([]byte(nil), buf[start:]...),
	}, true
}

// ParamCache holds the most recently seen SPS, PPS and IDR NAL units,
// each including its start code, so a newly attached viewer can be
// brought up to date atomically.
type ParamCache struct {
	mu  sync.Mutex
	sps []byte
	pps []byte
	idr []byte
}

// Observe updates the cache from a freshly extracted NAL, if it is one
// of the three cached types.
func (c *ParamCache) Observe(n NAL) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch n.Type {
	case nalTypeSPS:
		c.sps = n.Bytes
	case nalTypePPS:
		c.pps = n.Bytes
	case nalTypeIDR:
		c.idr = n.Bytes
	}
}

// Snapshot returns the cached SPS, PPS and IDR in that order, omitting
// any not yet observed (spec.md section 4.6: "If any parameter set is
// not yet cached, sync emits only those available"). Held under the same
// mutex Observe uses so a viewer never sees a torn SPS/PPS/IDR set.
func (c *ParamCache) Snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out [][]byte
	if c.sps != nil {
		out = append(out, c.sps)
	}
	if c.pps != nil {
		out = append(out, c.pps)
	}
	if c.idr != nil {
		out = append(out, c.idr)
	}
	return out
}
