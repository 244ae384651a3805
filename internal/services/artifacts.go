package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"wg-access-bot/internal/constants"
	"wg-access-bot/internal/errors"
)

// Artifacts holds the deliverables for one peer: the WireGuard client
// config and a QR image of it
type Artifacts struct {
	Conf []byte
	QR   []byte
}

// ArtifactService reads the files the peer management tool writes under
// the config root. Generation is the tool's responsibility; this service
// only reads and returns.
type ArtifactService struct {
	configRoot string
	logger     *logrus.Logger
}

// NewArtifactService creates an artifact service rooted at configRoot
func NewArtifactService(configRoot string, logger *logrus.Logger) *ArtifactService {
	return &ArtifactService{
		configRoot: configRoot,
		logger:     logger,
	}
}

// ConfPath returns the path of the peer's client config
func (s *ArtifactService) ConfPath(peerID string) string {
	dir := constants.PeerDirPrefix + peerID
	return filepath.Join(s.configRoot, dir, dir+".conf")
}

// QRPath returns the path of the peer's QR image
func (s *ArtifactService) QRPath(peerID string) string {
	dir := constants.PeerDirPrefix + peerID
	return filepath.Join(s.configRoot, dir, dir+".png")
}

// Load reads both artifacts for a peer. A missing config is a not-found
// error; a missing QR image is recovered by rendering the config locally.
func (s *ArtifactService) Load(peerID string) (Artifacts, error) {
	conf, err := os.ReadFile(s.ConfPath(peerID))
	if os.IsNotExist(err) {
		return Artifacts{}, &errors.NotFoundError{Kind: "peer config", Key: peerID}
	}
	if err != nil {
		return Artifacts{}, fmt.Errorf("failed to read peer config: %w", err)
	}

	qr, err := os.ReadFile(s.QRPath(peerID))
	if err != nil {
		s.logger.Warnf("QR image missing for %s, rendering from config: %v", peerID, err)
		qr, err = qrcode.Encode(string(conf), qrcode.Medium, 256)
		if err != nil {
			return Artifacts{}, fmt.Errorf("failed to render QR code: %w", err)
		}
	}

	return Artifacts{Conf: conf, QR: qr}, nil
}
