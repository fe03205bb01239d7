package redisstore

import (
	"bytes"
	"encoding/binary"
	"errors"

	goSession "github.com/MrEthical07/goSession"
)

const profileFormatVersionCurrent = 1

// ErrCorruptProfile is returned when a stored profile blob cannot be decoded.
var ErrCorruptProfile = errors.New("corrupt profile record")

// Encode serializes a profile. The id is not stored; it is the hash field.
//
// Layout v1: version(1) | type(1) | nameLen(2, big endian) | name.
func Encode(p goSession.Profile) ([]byte, error) {
	if len(p.Name) > 0xFFFF {
		return nil, errors.New("profile name too long")
	}

	var buf bytes.Buffer
	buf.Grow(4 + len(p.Name))
	buf.WriteByte(profileFormatVersionCurrent)
	buf.WriteByte(byte(p.Type))
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(p.Name))); err != nil {
		return nil, err
	}
	buf.WriteString(p.Name)
	return buf.Bytes(), nil
}

// Decode parses a blob written by Encode and attaches id.
func Decode(id string, data []byte) (goSession.Profile, error) {
	if len(data) < 4 {
		return goSession.Profile{}, ErrCorruptProfile
	}
	if data[0] != profileFormatVersionCurrent {
		return goSession.Profile{}, ErrCorruptProfile
	}

	typ := goSession.ParseProfileType(goSession.ProfileType(data[1]).String())
	n := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data) != 4+n {
		return goSession.Profile{}, ErrCorruptProfile
	}
	return goSession.Profile{
		ID:   id,
		Name: string(data[4:]),
		Type: typ,
	}, nil
}
