package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid, falling
// back to a SHA1 name based UUID when hashing fails. Keys must be prefixed by
// their domain to avoid collisions across entity types.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// RecordUUID identifies a fixture record by its kind and source path.
func RecordUUID(kind, path string) uuid.UUID {
	return UUID("replace:record:" + strings.ToLower(strings.TrimSpace(kind)) + ":" + strings.TrimSpace(path))
}

// ReportUUID derives report ids for imported or replayed reports.
func ReportUUID(key string) uuid.UUID {
	return UUID("replace:report:" + strings.TrimSpace(key))
}
