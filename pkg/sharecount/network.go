package sharecount

import (
	"fmt"
	"strings"
)

// Network identifies which social platform a count is fetched from.
type Network string

const (
	Twitter       Network = "twitter"
	Pinterest     Network = "pinterest"
	LinkedIn      Network = "linkedin"
	Facebook      Network = "facebook"
	FacebookShare Network = "facebook_share"
	FacebookLike  Network = "facebook_like"
	GooglePlus    Network = "googleplus"

	// All is the aggregate pseudo-network summing the lookup's configured set.
	All Network = "all"
)

// Facebook link_stat columns selectable as the count type.
const (
	CountTypeLike    = "like_count"
	CountTypeShare   = "share_count"
	CountTypeClick   = "click_count"
	CountTypeComment = "comment_count"
	CountTypeTotal   = "total_count"
)

var facebookCountTypes = map[string]struct{}{
	CountTypeLike:    {},
	CountTypeShare:   {},
	CountTypeClick:   {},
	CountTypeComment: {},
	CountTypeTotal:   {},
}

// DefaultAllNetworks returns the networks summed by All, in lookup order.
func DefaultAllNetworks() []Network {
	return []Network{Pinterest, Twitter, FacebookShare, FacebookLike, LinkedIn, GooglePlus}
}

// KnownNetworks lists every identifier Count dispatches, including All.
func KnownNetworks() []Network {
	return []Network{Twitter, Pinterest, LinkedIn, Facebook, FacebookShare, FacebookLike, GooglePlus, All}
}

// API returns the endpoint table entry the network is served from.
func (n Network) API() (API, bool) {
	switch n {
	case Twitter:
		return APITwitter, true
	case Pinterest:
		return APIPinterest, true
	case LinkedIn:
		return APILinkedIn, true
	case Facebook, FacebookShare, FacebookLike:
		return APIFacebook, true
	case GooglePlus:
		return APIGooglePlus, true
	default:
		return "", false
	}
}

// Supported reports whether Count knows how to fetch n.
func (n Network) Supported() bool {
	if n == All {
		return true
	}
	_, ok := fetchers[n]
	return ok
}

func (n Network) String() string { return string(n) }

// ParseNetwork normalizes s and rejects identifiers Count cannot dispatch.
func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	if n == "" {
		return "", fmt.Errorf("%w: empty network name", ErrUnsupportedNetwork)
	}
	if !n.Supported() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, s)
	}
	return n, nil
}

// ParseNetworks parses a list whose entries may themselves be comma separated.
func ParseNetworks(values []string) ([]Network, error) {
	var out []Network
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			n, err := ParseNetwork(part)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// ValidCountType reports whether t is a Facebook link_stat column.
func ValidCountType(t string) bool {
	_, ok := facebookCountTypes[t]
	return ok
}
