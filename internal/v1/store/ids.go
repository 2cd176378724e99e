package store

import (
	"crypto/rand"
	"errors"
)

// ErrNoRoom is returned by With when the room id is unknown. Callers
// map it to the protocol's not_found code.
var ErrNoRoom = errors.New("room does not exist")

// Room ids are short, lowercase, and unambiguous (no 0/o, 1/l).
const idAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
const idLength = 6

// NewRoomID generates a fresh room id not currently in the store.
func (s *Store) NewRoomID() string {
	for {
		id := randomID()
		if !s.Exists(id) {
			return id
		}
	}
}

func randomID() string {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}
