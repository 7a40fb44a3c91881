// Package signing creates and serves the ed25519 signatures attached to
// published packages. A signature ships as a "sigzip": a zip holding the
// signature manifest (package size and digests) and the detached signature
// over those manifest bytes.
package signing

import (
	"archive/zip"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

// Sigzip entry names, fixed by the signature format clients verify.
const (
	ManifestEntry  = ".signature.manifest"
	SignatureEntry = ".signature.sig"

	// placeholderEntry is an empty marker entry clients expect to find.
	placeholderEntry = ".signature.p7s"
)

// GenerateKeyPair creates a new active ed25519 key pair.
func GenerateKeyPair() (*registry.SignatureKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &registry.SignatureKeyPair{
		PublicID:   uuid.NewString(),
		PublicKey:  pub,
		PrivateKey: priv,
		Created:    time.Now().UTC(),
		Active:     true,
	}, nil
}

// signatureManifest is the signed document: the package size plus its
// digests, base64-encoded.
type signatureManifest struct {
	Package struct {
		Size    int64             `json:"size"`
		Digests map[string]string `json:"digests"`
	} `json:"package"`
}

// Sign produces the sigzip for one package.
func Sign(keyPair *registry.SignatureKeyPair, content []byte) ([]byte, error) {
	if len(keyPair.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: %d", len(keyPair.PrivateKey))
	}

	digest := sha256.Sum256(content)
	var m signatureManifest
	m.Package.Size = int64(len(content))
	m.Package.Digests = map[string]string{
		"sha256": base64.StdEncoding.EncodeToString(digest[:]),
	}
	manifest, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature manifest: %w", err)
	}

	signature := ed25519.Sign(ed25519.PrivateKey(keyPair.PrivateKey), manifest)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name string
		data []byte
	}{
		{ManifestEntry, manifest},
		{SignatureEntry, signature},
		{placeholderEntry, nil},
	}
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", entry.name, err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish signature zip: %w", err)
	}
	return buf.Bytes(), nil
}

// PublicKeyPEM renders a key pair's public key as a PEM document.
func PublicKeyPEM(keyPair *registry.SignatureKeyPair) ([]byte, error) {
	if len(keyPair.PublicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: %d", len(keyPair.PublicKey))
	}
	der, err := x509.MarshalPKIXPublicKey(ed25519.PublicKey(keyPair.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
