package room

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/quickmate/server/internal/v1/game"
)

// Settings configures admission and play for a room. The password is
// retained only as a bcrypt hash; the hash never leaves the server and
// is excluded from JSON so cached copies stay free of credentials too.
type Settings struct {
	TimeControl     *game.TimeControl `json:"timeControl,omitempty"`
	AllowSpectators bool              `json:"allowSpectators"`
	AllowJoin       bool              `json:"allowJoin"`
	IsPrivate       bool              `json:"isPrivate"`
	RoomName        string            `json:"roomName,omitempty"`
	IsLocked        bool              `json:"isLocked"`

	passwordHash []byte
}

// DefaultSettings are applied when room:create omits fields.
func DefaultSettings() Settings {
	return Settings{
		AllowSpectators: true,
		AllowJoin:       true,
	}
}

// SetPassword hashes and stores the room password. An empty plaintext
// clears the password, leaving a pure lock.
func (s *Settings) SetPassword(plain string) error {
	if plain == "" {
		s.passwordHash = nil
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.passwordHash = hash
	return nil
}

// HasPassword reports whether a password is set.
func (s *Settings) HasPassword() bool { return len(s.passwordHash) > 0 }

// CheckPassword reports whether plain matches the stored hash.
func (s *Settings) CheckPassword(plain string) bool {
	if len(s.passwordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.passwordHash, []byte(plain)) == nil
}

func (s Settings) clone() Settings {
	dup := s
	if s.TimeControl != nil {
		tc := *s.TimeControl
		dup.TimeControl = &tc
	}
	dup.passwordHash = append([]byte(nil), s.passwordHash...)
	return dup
}
