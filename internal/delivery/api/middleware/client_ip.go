package middleware

import (
	"net"

	"authgate/internal/errors"

	"github.com/labstack/echo/v4"
)

// NewIPExtractor decides which address c.RealIP reports. With no trusted proxies
// the socket peer is used and forwarding headers are ignored. Otherwise the
// X-Forwarded-For chain is walked back through the listed CIDR ranges only.
func NewIPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, errors.Wrap(err, "invalid trusted proxy range "+cidr)
		}
		options = append(options, echo.TrustIPRange(ipNet))
	}

	return echo.ExtractIPFromXFFHeader(options...), nil
}
