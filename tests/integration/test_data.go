package integration

import (
	"fmt"
	"time"
)

// SeedPassword is the password behind every seeded account's hash.
const SeedPassword = "Correct-Horse-Battery-7"

// TestAccountEmail generates a unique account email using a timestamp
func TestAccountEmail(suffix string) string {
	return fmt.Sprintf("test-%d-%s@example.com", time.Now().UnixNano(), suffix)
}
