package mqtt

import (
	"strconv"
	"strings"
)

// ParseURL splits an mqtt://host:port value into host and port. A
// missing or unparseable port falls back to the default 1883.
func ParseURL(urlStr string) (string, int) {
	urlStr = strings.TrimPrefix(urlStr, "mqtt://")

	host, rawPort, found := strings.Cut(urlStr, ":")
	if !found {
		return host, 1883
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil || port < 1 {
		return host, 1883
	}
	return host, port
}
