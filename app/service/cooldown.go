package service

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cooldown is an advisory throttle against accidental double-submission from
// the client UI. It only gates new top-up requests, never the callback path,
// and losing its contents is harmless.
type Cooldown struct {
	ttl   time.Duration
	cache *gocache.Cache
}

func NewCooldown(ttl time.Duration) *Cooldown {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Cooldown{
		ttl:   ttl,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *Cooldown) Set(customerID uint64) {
	c.cache.Set(cooldownKey(customerID), struct{}{}, c.ttl)
}

func (c *Cooldown) Active(customerID uint64) bool {
	_, found := c.cache.Get(cooldownKey(customerID))
	return found
}

func cooldownKey(customerID uint64) string {
	return strconv.FormatUint(customerID, 10)
}
