package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// Fingerprint computes the deterministic version hash for one (user, day).
// It digests the identity of the GPS inputs contributing to the day plus the
// active config, so any change to either invalidates the hash.
func Fingerprint(userID string, dayStart int64, inputSignature string, cfg models.TimelineConfig) string {
	cfgJSON, _ := json.Marshal(cfg)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s", userID, dayStart, inputSignature, cfgJSON)
	return hex.EncodeToString(h.Sum(nil))
}
