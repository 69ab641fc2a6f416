package types

import (
	"crypto/sha1"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ContentID is a Git-style SHA-1 content hash (20 bytes).
// It keys cached classifications so identical content is only sent to the
// category classifier once.
type ContentID [20]byte

// ComputeContentID computes a Git-style blob hash: SHA-1("blob {len}\0{content}").
func ComputeContentID(content []byte) ContentID {
	header := fmt.Sprintf("blob %d\x00", len(content))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(content)

	var id ContentID
	copy(id[:], h.Sum(nil))
	return id
}

// Hex returns 40-character hex string.
func (id ContentID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements Stringer (returns Hex()).
func (id ContentID) String() string {
	return id.Hex()
}

// ParseContentID parses 40-char hex string to ContentID.
func ParseContentID(hexStr string) (ContentID, error) {
	if len(hexStr) != 40 {
		return ContentID{}, fmt.Errorf("invalid content ID length: expected 40, got %d", len(hexStr))
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid hex string: %w", err)
	}

	var id ContentID
	copy(id[:], decoded)
	return id, nil
}

// MarshalJSON implements json.Marshaler.
func (id ContentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ContentID) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}

	parsed, err := ParseContentID(hexStr)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

// Value implements driver.Valuer for SQL serialization.
func (id ContentID) Value() (driver.Value, error) {
	return id.Hex(), nil
}

// Scan implements sql.Scanner for SQL deserialization.
func (id *ContentID) Scan(value interface{}) error {
	if value == nil {
		return fmt.Errorf("cannot scan nil into ContentID")
	}

	var hexStr string
	switch v := value.(type) {
	case string:
		hexStr = v
	case []byte:
		hexStr = string(v)
	default:
		return fmt.Errorf("cannot scan type %T into ContentID", value)
	}

	parsed, err := ParseContentID(hexStr)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
