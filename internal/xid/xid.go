package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New returns "<prefix>-<uuidv7>". Version 7 UUIDs embed a millisecond
// timestamp, so ids sort in creation order.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		buf := make([]byte, 8)
		_, _ = rand.Read(buf)
		return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}
