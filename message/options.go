package message

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// OptionID identifies an option in a message.
type OptionID uint16

// Option IDs.
const (
	IfMatch       OptionID = 1
	URIHost       OptionID = 3
	ETag          OptionID = 4
	IfNoneMatch   OptionID = 5
	Observe       OptionID = 6
	URIPort       OptionID = 7
	LocationPath  OptionID = 8
	URIPath       OptionID = 11
	ContentFormat OptionID = 12
	MaxAge        OptionID = 14
	URIQuery      OptionID = 15
	Accept        OptionID = 17
	LocationQuery OptionID = 20
	Block2        OptionID = 23
	Block1        OptionID = 27
	Size2         OptionID = 28
	ProxyURI      OptionID = 35
	ProxyScheme   OptionID = 39
	Size1         OptionID = 60
	NoResponse    OptionID = 258
)

const (
	maxPathValue = 255

	extendOptionByteCode   = 13
	extendOptionByteAddend = 13
	extendOptionWordCode   = 14
	extendOptionWordAddend = 269
	extendOptionError      = 15
	payloadMarker          = 0xff
)

// Option is a single option of a message.
type Option struct {
	ID    OptionID
	Value []byte
}

// Options is a list of options kept sorted by ID; options with equal IDs keep insertion order.
type Options []Option

// Add appends an option and keeps the list sorted.
func (options Options) Add(opt Option) Options {
	idx := sort.Search(len(options), func(i int) bool {
		return options[i].ID > opt.ID
	})
	options = append(options, Option{})
	copy(options[idx+1:], options[idx:])
	options[idx] = opt
	return options
}

// Remove drops every option with the given ID.
func (options Options) Remove(id OptionID) Options {
	out := options[:0]
	for _, o := range options {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

// Find returns values of all options with the given ID.
func (options Options) Find(id OptionID) [][]byte {
	var values [][]byte
	for _, o := range options {
		if o.ID == id {
			values = append(values, o.Value)
		}
	}
	return values
}

// HasOption reports whether an option with the given ID is present.
func (options Options) HasOption(id OptionID) bool {
	return len(options.Find(id)) > 0
}

// SetPath replaces the Uri-Path options with the segments of path.
func (options Options) SetPath(path string) (Options, error) {
	o := options.Remove(URIPath)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return o, nil
	}
	for _, segment := range strings.Split(path, "/") {
		if len(segment) > maxPathValue {
			return options, fmt.Errorf("path segment %q: %w", segment, ErrInvalidValueLength)
		}
		o = o.Add(Option{ID: URIPath, Value: []byte(segment)})
	}
	return o, nil
}

// Path returns the Uri-Path options joined by '/'.
func (options Options) Path() (string, error) {
	values := options.Find(URIPath)
	if len(values) == 0 {
		return "", ErrOptionNotFound
	}
	segments := make([]string, 0, len(values))
	for _, v := range values {
		segments = append(segments, string(v))
	}
	return "/" + strings.Join(segments, "/"), nil
}

// SetUint32 replaces the option id with the minimal big-endian encoding of value.
func (options Options) SetUint32(id OptionID, value uint32) Options {
	buf := make([]byte, 4)
	n, _ := EncodeUint32(buf, value)
	return options.Remove(id).Add(Option{ID: id, Value: buf[:n]})
}

// GetUint32 decodes the first option id as an unsigned integer.
func (options Options) GetUint32(id OptionID) (uint32, error) {
	values := options.Find(id)
	if len(values) == 0 {
		return 0, ErrOptionNotFound
	}
	if len(values[0]) > 4 {
		return 0, ErrInvalidValueLength
	}
	v, _ := DecodeUint32(values[0])
	return v, nil
}

// SetContentFormat sets the Content-Format option.
func (options Options) SetContentFormat(contentFormat MediaType) Options {
	return options.SetUint32(ContentFormat, uint32(contentFormat))
}

// ContentFormat returns the Content-Format option.
func (options Options) ContentFormat() (MediaType, error) {
	v, err := options.GetUint32(ContentFormat)
	if err != nil {
		return TextPlain, err
	}
	return MediaType(v), nil
}

func marshalOptionHeaderExt(value int) (int, []byte) {
	switch {
	case value < extendOptionByteAddend:
		return value, nil
	case value < extendOptionWordAddend:
		return extendOptionByteCode, []byte{byte(value - extendOptionByteAddend)}
	default:
		ext := make([]byte, 2)
		binary.BigEndian.PutUint16(ext, uint16(value-extendOptionWordAddend))
		return extendOptionWordCode, ext
	}
}

// Marshal appends the encoded options to buf.
func (options Options) Marshal(buf []byte) ([]byte, error) {
	prev := 0
	for _, o := range options {
		delta := int(o.ID) - prev
		if delta < 0 {
			return nil, fmt.Errorf("options are not sorted: %v after %v", o.ID, prev)
		}
		if len(o.Value) > 0xffff+extendOptionWordAddend {
			return nil, ErrInvalidValueLength
		}
		deltaCode, deltaExt := marshalOptionHeaderExt(delta)
		lengthCode, lengthExt := marshalOptionHeaderExt(len(o.Value))
		buf = append(buf, byte(deltaCode<<4|lengthCode))
		buf = append(buf, deltaExt...)
		buf = append(buf, lengthExt...)
		buf = append(buf, o.Value...)
		prev = int(o.ID)
	}
	return buf, nil
}

func parseExtOpt(data []byte, opt int) (int, int, error) {
	switch opt {
	case extendOptionByteCode:
		if len(data) < 1 {
			return 0, -1, ErrOptionTruncated
		}
		return int(data[0]) + extendOptionByteAddend, 1, nil
	case extendOptionWordCode:
		if len(data) < 2 {
			return 0, -1, ErrOptionTruncated
		}
		return int(binary.BigEndian.Uint16(data[:2])) + extendOptionWordAddend, 2, nil
	case extendOptionError:
		return 0, -1, ErrOptionUnexpectedExtendMarker
	}
	return opt, 0, nil
}

// Unmarshal decodes options from data and returns them together with the number of
// consumed bytes. Decoding stops at the payload marker, which is not consumed.
func (options Options) Unmarshal(data []byte) (Options, int, error) {
	processed := 0
	prev := 0
	for len(data) > 0 {
		if data[0] == payloadMarker {
			return options, processed, nil
		}
		delta := int(data[0] >> 4)
		length := int(data[0] & 0x0f)
		data = data[1:]
		processed++

		delta, n, err := parseExtOpt(data, delta)
		if err != nil {
			return options, -1, err
		}
		data = data[n:]
		processed += n

		length, n, err = parseExtOpt(data, length)
		if err != nil {
			return options, -1, err
		}
		data = data[n:]
		processed += n

		if len(data) < length {
			return options, -1, ErrOptionTruncated
		}
		prev += delta
		value := make([]byte, length)
		copy(value, data[:length])
		options = append(options, Option{ID: OptionID(prev), Value: value})
		data = data[length:]
		processed += length
	}
	return options, processed, nil
}
