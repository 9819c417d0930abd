package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

const sessionName = "cloudfiles"

const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

// SessionStore keeps flash messages in a signed and encrypted cookie.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore derives the cookie keys from secret. An empty secret
// gets a random one, so flashes do not survive a restart.
func NewSessionStore(secret string) (*SessionStore, error) {
	master := []byte(secret)
	if len(master) == 0 {
		master = make([]byte, 32)
		if _, err := rand.Read(master); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}

	authKey, err := deriveKey(master, "cloudfiles session authentication")
	if err != nil {
		return nil, err
	}
	encKey, err := deriveKey(master, "cloudfiles session encryption")
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(authKey, encKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}, nil
}

func deriveKey(master []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// AddFlash queues a message for the next page render.
func (s *SessionStore) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) error {
	// A cookie that no longer decodes still yields a fresh session.
	session, _ := s.store.Get(r, sessionName)
	session.AddFlash(Flash{Category: category, Message: message})
	return session.Save(r, w)
}

// Flashes returns and clears the pending messages.
func (s *SessionStore) Flashes(w http.ResponseWriter, r *http.Request) ([]Flash, error) {
	session, _ := s.store.Get(r, sessionName)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil, nil
	}

	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	if err := session.Save(r, w); err != nil {
		return flashes, err
	}
	return flashes, nil
}
