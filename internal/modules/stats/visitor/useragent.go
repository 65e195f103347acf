package visitor

import (
	"strings"

	"github.com/mx-space/footprint/internal/models"
)

// clientInfo is the coarse classification of a user-agent string.
type clientInfo struct {
	Device  string
	Browser string
	OS      string
}

// parseUA classifies device, browser and OS by substring matching.
// An empty UA is a desktop with no browser or OS label.
func parseUA(ua string) clientInfo {
	info := clientInfo{Device: parseDevice(ua)}
	if ua == "" {
		return info
	}

	switch {
	case strings.Contains(ua, "Edg"):
		info.Browser = "Edge"
	case strings.Contains(ua, "Chrome"):
		info.Browser = "Chrome"
	case strings.Contains(ua, "Firefox"):
		info.Browser = "Firefox"
	case strings.Contains(ua, "Safari"):
		info.Browser = "Safari"
	default:
		info.Browser = "Other"
	}

	switch {
	case strings.Contains(ua, "Windows"):
		info.OS = "Windows"
	case strings.Contains(ua, "Android"):
		info.OS = "Android"
	case containsAny(ua, "iPhone", "iPad", "iOS"):
		info.OS = "iOS"
	case strings.Contains(ua, "Mac"):
		info.OS = "macOS"
	case strings.Contains(ua, "Linux"):
		info.OS = "Linux"
	default:
		info.OS = "Other"
	}
	return info
}

// parseDevice lets the tablet pattern win over the generic mobile one.
func parseDevice(ua string) string {
	switch {
	case containsAny(ua, "iPad", "Tablet"):
		return models.DeviceTablet
	case containsAny(ua, "Mobile", "Android", "iPhone"):
		return models.DeviceMobile
	default:
		return models.DeviceDesktop
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
