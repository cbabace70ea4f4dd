package tokenstore

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

var _ Store = (*FileStore)(nil)
var _ Notifier = (*FileStore)(nil)

// ErrInvalidKeyLength is returned when the at-rest encryption key is not
// chacha20poly1305.KeySize bytes.
var ErrInvalidKeyLength = errors.New("invalid key length")

// filePair is the on-disk layout. The field names mirror the storage keys
// every BioVerify console client uses.
type filePair struct {
	Access  string `json:"bioverify_access_token,omitempty"`
	Refresh string `json:"bioverify_refresh_token,omitempty"`
}

// FileStore persists the token pair in a single file so sessions survive
// process restarts. With a key it seals the file with XChaCha20-Poly1305;
// the stored form is nonce||ciphertext. Writes go through a temp file and
// rename so a crash never leaves a half-written pair.
type FileStore struct {
	notifier

	lock sync.Mutex // serialises read-modify-write cycles on the file
	path string
	key  []byte // nil means plaintext JSON
}

// NewFileStore creates a file-backed store at path. key must be nil or
// exactly chacha20poly1305.KeySize bytes.
func NewFileStore(path string, key []byte) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[NewFileStore] path is required")
	}
	if key != nil && len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKeyLength
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] MkdirAll")
	}
	return &FileStore{path: path, key: key}, nil
}

func (s *FileStore) Get(kind Kind) (string, error) {
	s.lock.Lock()
	pair, err := s.load()
	s.lock.Unlock()
	if err != nil {
		return "", err
	}

	token := pair.Access
	if kind == Refresh {
		token = pair.Refresh
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

func (s *FileStore) SetAccess(token string) error {
	s.lock.Lock()
	pair, err := s.load()
	if err != nil {
		s.lock.Unlock()
		return err
	}
	pair.Access = token
	err = s.save(pair)
	s.lock.Unlock()
	if err != nil {
		return err
	}

	s.publish()
	return nil
}

func (s *FileStore) SetPair(access, refresh string) error {
	s.lock.Lock()
	err := s.save(filePair{Access: access, Refresh: refresh})
	s.lock.Unlock()
	if err != nil {
		return err
	}

	s.publish()
	return nil
}

func (s *FileStore) Clear() error {
	s.lock.Lock()
	err := os.Remove(s.path)
	s.lock.Unlock()
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] Remove")
	}

	s.publish()
	return nil
}

func (s *FileStore) load() (filePair, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return filePair{}, nil
	}
	if err != nil {
		return filePair{}, errors.Wrap(err, "[FileStore.load] ReadFile")
	}

	if s.key != nil {
		data, err = s.open(data)
		if err != nil {
			return filePair{}, err
		}
	}

	var pair filePair
	if err := json.Unmarshal(data, &pair); err != nil {
		return filePair{}, errors.Wrap(err, "[FileStore.load] Unmarshal")
	}
	return pair, nil
}

func (s *FileStore) save(pair filePair) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return errors.Wrap(err, "[FileStore.save] Marshal")
	}

	if s.key != nil {
		data, err = s.seal(data)
		if err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.save] WriteFile")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[FileStore.save] Rename")
	}
	return nil
}

func (s *FileStore) seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.seal] NewX")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "[FileStore.seal] rand.Read")
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *FileStore) open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.open] NewX")
	}

	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("[FileStore.open] sealed data too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.open] Open")
	}
	return plaintext, nil
}
