// Package canvas implements the length-delimited wire format used by the
// batched canvas side-channel endpoint. The encoder emits only
// length-delimited (wire type 2) fields; the decoder is total: truncated or
// malformed input yields whatever complete entries were parsed before the
// failure point, never an error.
package canvas

import "strings"

const trackURIPrefix = "spotify:track:"

const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// Outer message: repeated field 1 = one submessage per track.
// Request submessage: field 1 = track URI.
// Response submessage: field 5 = track URI, field 2 = canvas URL.
const (
	fieldEntry       = 1
	fieldRequestURI  = 1
	fieldResponseURL = 2
	fieldResponseURI = 5
)

// EncodeBatchRequest builds the request body for a batch of track ids.
// Empty ids are skipped.
func EncodeBatchRequest(trackIDs []string) []byte {
	var payload []byte
	for _, id := range trackIDs {
		if id == "" {
			continue
		}
		uri := []byte(trackURIPrefix + id)

		var entry []byte
		entry = append(entry, fieldRequestURI<<3|wireBytes)
		entry = appendVarint(entry, uint64(len(uri)))
		entry = append(entry, uri...)

		payload = append(payload, fieldEntry<<3|wireBytes)
		payload = appendVarint(payload, uint64(len(entry)))
		payload = append(payload, entry...)
	}
	return payload
}

// DecodeBatchResponse extracts trackID -> canvas URL mappings. The first
// mapping seen for a track wins.
func DecodeBatchResponse(payload []byte) map[string]string {
	canvases := make(map[string]string)
	i := 0
	for i < len(payload) {
		tag := payload[i]
		i++
		fieldNumber := int(tag >> 3)
		wireType := int(tag & 0x07)

		if fieldNumber == fieldEntry && wireType == wireBytes {
			length, next, ok := decodeVarint(payload, i)
			// Compared in uint64 space: a length near 2^64 would wrap an
			// int sum and sneak past a signed bounds check.
			if !ok || length > uint64(len(payload)-next) {
				break
			}
			end := next + int(length)
			trackID, url := parseEntry(payload[next:end])
			i = end
			if trackID == "" || url == "" {
				continue
			}
			if _, seen := canvases[trackID]; !seen {
				canvases[trackID] = url
			}
			continue
		}

		next, ok := skipField(payload, i, wireType)
		if !ok {
			break
		}
		i = next
	}
	return canvases
}

// parseEntry pulls the track URI and canvas URL out of one submessage.
func parseEntry(buf []byte) (trackID, url string) {
	var uri string
	i := 0
	for i < len(buf) {
		tag := buf[i]
		i++
		fieldNumber := int(tag >> 3)
		wireType := int(tag & 0x07)

		if wireType == wireBytes {
			length, next, ok := decodeVarint(buf, i)
			if !ok || length > uint64(len(buf)-next) {
				break
			}
			end := next + int(length)
			switch fieldNumber {
			case fieldResponseURL:
				url = string(buf[next:end])
			case fieldResponseURI:
				uri = string(buf[next:end])
			}
			i = end
			continue
		}

		next, ok := skipField(buf, i, wireType)
		if !ok {
			break
		}
		i = next
	}
	return trackIDFromURI(uri), url
}

func trackIDFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	if idx := strings.LastIndexByte(uri, ':'); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

func appendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// decodeVarint reads a varint starting at i. ok is false on truncation or
// a varint longer than 64 bits.
func decodeVarint(buf []byte, i int) (v uint64, next int, ok bool) {
	var shift uint
	for {
		if i >= len(buf) {
			return 0, i, false
		}
		b := buf[i]
		i++
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, i, true
		}
		shift += 7
		if shift >= 64 {
			return 0, i, false
		}
	}
}

// skipField advances past one field body according to its wire type.
func skipField(buf []byte, i, wireType int) (next int, ok bool) {
	switch wireType {
	case wireVarint:
		for {
			if i >= len(buf) {
				return i, false
			}
			b := buf[i]
			i++
			if b&0x80 == 0 {
				return i, true
			}
		}
	case wireFixed64:
		if i+8 > len(buf) {
			return i, false
		}
		return i + 8, true
	case wireBytes:
		length, next, ok := decodeVarint(buf, i)
		if !ok || length > uint64(len(buf)-next) {
			return i, false
		}
		return next + int(length), true
	case wireFixed32:
		if i+4 > len(buf) {
			return i, false
		}
		return i + 4, true
	default:
		return i, false
	}
}
