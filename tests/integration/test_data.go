package integration

import (
	"fmt"
	"time"
)

// TestCredentials generates unique test identity credentials using timestamp
func TestCredentials(suffix string) (email, password string) {
	ts := time.Now().Unix()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123"
	return
}
