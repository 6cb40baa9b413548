package ratelimit

import (
	"fmt"
	"strings"
)

// KeyForClient builds a limiter key for an anonymous client address.
func KeyForClient(action Action, clientIP string) string {
	clientIP = strings.TrimSpace(clientIP)
	if action == "" || clientIP == "" {
		return ""
	}
	return fmt.Sprintf("%s:ip:%s", action, clientIP)
}

// KeyForAccount builds a limiter key for a signed-in account.
func KeyForAccount(action Action, accountID uint64) string {
	if action == "" || accountID == 0 {
		return ""
	}
	return fmt.Sprintf("%s:acct:%d", action, accountID)
}
